package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/emerald-haven/api/internal/config"
	awsinfra "github.com/emerald-haven/api/internal/infrastructure/aws"
	"github.com/emerald-haven/api/internal/infrastructure/dynamo"
	jwtinfra "github.com/emerald-haven/api/internal/infrastructure/jwt"
	s3infra "github.com/emerald-haven/api/internal/infrastructure/s3"
	"github.com/emerald-haven/api/internal/infrastructure/smtp"
	"github.com/emerald-haven/api/internal/pkg/logger"
	transporthttp "github.com/emerald-haven/api/internal/transport/http"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(logger.New(os.Stdout, cfg.AppEnv))
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	// A missing signing secret is a startup failure, not a per-request one.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		fatal("jwt provider unavailable", err)
	}

	ctx := context.Background()
	awsCfg, err := awsinfra.Load(ctx, cfg)
	if err != nil {
		fatal("aws config unavailable", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	s3Client := s3infra.NewClient(awsCfg, cfg.AWSEndpointURL)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName, cfg.AWSRegion, cfg.AWSEndpointURL, cfg.S3PublicBaseURL)

	deps := &transporthttp.Deps{
		AccountRepo:  dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts, cfg.DynamoTables.AccountEmails),
		PropertyRepo: dynamo.NewPropertyRepo(dynamoClient, cfg.DynamoTables.Properties),
		ImageStore:   s3Store,
		Mailer:       smtp.NewMailer(cfg),
		Tokens:       jwtProvider,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal("forced shutdown", err)
	}
	slog.Info("server stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
