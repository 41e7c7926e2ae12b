package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/emerald-haven/api/internal/domain"
)

// AccountRepo is the only reader and writer of account records.
// Email uniqueness is enforced by a claim item in emailTable (PK: email)
// that is written in the same transaction as the account itself.
type AccountRepo struct {
	client     *dynamodb.Client
	tableName  string
	emailTable string
}

func NewAccountRepo(client *dynamodb.Client, tableName, emailTable string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName, emailTable: emailTable}
}

// Create persists a new account. It fails with domain.ErrConflict when the
// email is already claimed, including when a concurrent registration won the race.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	claim := map[string]types.AttributeValue{
		fieldEmail:     &types.AttributeValueMemberS{Value: a.Email},
		fieldAccountID: &types.AttributeValueMemberS{Value: a.AccountID},
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.emailTable),
				Item:                     claim,
				ConditionExpression:      aws.String("attribute_not_exists(#e)"),
				ExpressionAttributeNames: map[string]string{"#e": fieldEmail},
			}},
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
				ExpressionAttributeNames: map[string]string{"#pk": fieldAccountID},
			}},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldAccountID, accountID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &a, nil
}

// GetByEmail resolves the email claim, then loads the account it points to.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.emailTable),
		Key:            strKey(fieldEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get email claim: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	idAttr, ok := out.Item[fieldAccountID].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("email claim for %s has no account id", email)
	}
	return r.Get(ctx, idAttr.Value)
}

// Update applies set and remove in a single write, so clearing a code and the
// state change it authorizes land together. Missing accounts yield domain.ErrNotFound.
func (r *AccountRepo) Update(ctx context.Context, accountID string, set map[string]interface{}, remove ...string) error {
	in, err := accountUpdateInput(r.tableName, accountID, set, remove, time.Now().UTC())
	if err != nil {
		return err
	}
	if _, err := r.client.UpdateItem(ctx, in); err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("account not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// ConsumeCode is Update guarded by codeField still holding code. Of two
// concurrent redemptions of the same code only one write succeeds; the other,
// like a missing account, yields domain.ErrInvalidCode.
func (r *AccountRepo) ConsumeCode(ctx context.Context, accountID, codeField, code string, set map[string]interface{}, remove ...string) error {
	in, err := accountUpdateInput(r.tableName, accountID, set, remove, time.Now().UTC())
	if err != nil {
		return err
	}
	requireCode(in, codeField, code)
	if _, err := r.client.UpdateItem(ctx, in); err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("invalid or expired token: %w", domain.ErrInvalidCode)
		}
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}

func accountUpdateInput(table, accountID string, set map[string]interface{}, remove []string, now time.Time) (*dynamodb.UpdateItemInput, error) {
	fields := make(map[string]interface{}, len(set)+1)
	for k, v := range set {
		fields[k] = v
	}
	fields[fieldUpdatedAt] = now
	ue, err := buildUpdateExpr(fields, remove...)
	if err != nil {
		return nil, err
	}
	ue.Names["#pk"] = fieldAccountID
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       strKey(fieldAccountID, accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}, nil
}

func requireCode(in *dynamodb.UpdateItemInput, codeField, code string) {
	in.ConditionExpression = aws.String("attribute_exists(#pk) AND #code = :code")
	in.ExpressionAttributeNames["#code"] = codeField
	if in.ExpressionAttributeValues == nil {
		in.ExpressionAttributeValues = make(map[string]types.AttributeValue)
	}
	in.ExpressionAttributeValues[":code"] = &types.AttributeValueMemberS{Value: code}
}
