package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/emerald-haven/api/internal/application/auth"
	"github.com/emerald-haven/api/internal/application/property"
	"github.com/emerald-haven/api/internal/config"
	"github.com/emerald-haven/api/internal/pkg/password"
	"github.com/emerald-haven/api/internal/transport/http/handler"
	appmiddleware "github.com/emerald-haven/api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo  AccountRepository
	PropertyRepo PropertyRepository
	ImageStore   ObjectStore
	Mailer       Mailer
	Tokens       TokenProvider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.NotFound(handler.NotFound)

	authMw := appmiddleware.Auth(deps.Tokens, deps.AccountRepo)

	// 5 requests/second, burst of 10, on endpoints that hash passwords or send mail.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	authSvc := auth.NewService(auth.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		Mailer:      deps.Mailer,
		Tokens:      deps.Tokens,
		Hasher:      password.Hasher{},
		CodeTTL:     cfg.CodeExpiry,
	})
	propertySvc := property.NewService(property.ServiceDeps{
		PropertyRepo:  deps.PropertyRepo,
		ImageStore:    deps.ImageStore,
		MaxImageBytes: cfg.MaxImageBytes,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, handler.CookieOptions{
		Secure: cfg.CookieSecure,
		MaxAge: cfg.JWTExpiry,
	})
	propertyH := handler.NewPropertyHandler(propertySvc, cfg.MaxImageBytes)

	r.Get("/", healthH.Root)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Route("/auth", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/register", authH.Register)
			r.With(sensitiveRL.Limit).Post("/verify-email", authH.VerifyEmail)
			r.With(sensitiveRL.Limit).Post("/login", authH.Login)
			r.Post("/logout", authH.Logout)
			r.With(sensitiveRL.Limit).Post("/forgot-password", authH.ForgotPassword)
			r.With(sensitiveRL.Limit).Post("/reset-password", authH.ResetPassword)
			r.With(authMw).Post("/change-password", authH.ChangePassword)
		})

		r.Route("/properties", func(r chi.Router) {
			r.Get("/", propertyH.ListAll)

			r.Group(func(r chi.Router) {
				r.Use(authMw)

				r.Get("/my-properties", propertyH.ListMine)
				r.Post("/", propertyH.Create)
				r.Get("/{id}", propertyH.Get)
				r.Put("/{id}", propertyH.Update)
				r.Delete("/{id}", propertyH.Delete)
			})
		})
	})

	return r
}
