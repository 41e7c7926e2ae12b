package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "name"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"password_hash": "h",
		"is_verified":   true,
		"name":          "Ann",
	}
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)
	assert.Equal(t, "is_verified", ue1.Names["#f0"])
	assert.Equal(t, "name", ue1.Names["#f1"])
	assert.Equal(t, "password_hash", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_SetAndRemove(t *testing.T) {
	ue, err := buildUpdateExpr(
		map[string]interface{}{"is_verified": true},
		"email_verification_expires_at", "email_verification_code",
	)
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0 REMOVE #f1, #f2", ue.Expr)
	assert.Equal(t, "email_verification_code", ue.Names["#f1"])
	assert.Equal(t, "email_verification_expires_at", ue.Names["#f2"])
	assert.Len(t, ue.Values, 1)
}

func TestBuildUpdateExpr_RemoveOnly_HasNoValues(t *testing.T) {
	ue, err := buildUpdateExpr(nil, "password_reset_code")
	require.NoError(t, err)
	assert.Equal(t, "REMOVE #f0", ue.Expr)
	assert.Nil(t, ue.Values)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"is_verified": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_TimeMarshalsAsString(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ue, err := buildUpdateExpr(map[string]interface{}{"updated_at": ts})
	require.NoError(t, err)
	s, ok := ue.Values[":v0"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "2025-01-02T03:04:05Z", s.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestIsConditionFailure(t *testing.T) {
	assert.True(t, isConditionFailure(&types.ConditionalCheckFailedException{}))
	assert.True(t, isConditionFailure(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: strPtr("None")}, {Code: strPtr("ConditionalCheckFailed")}},
	}))
	assert.False(t, isConditionFailure(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: strPtr("ThrottlingError")}},
	}))
	assert.False(t, isConditionFailure(assert.AnError))
}

func strPtr(s string) *string { return &s }

func TestGSI_WithSortKey(t *testing.T) {
	g := gsi(indexOwner, fieldOwnerID, fieldPropertyID)
	require.Len(t, g.KeySchema, 2)
	assert.Equal(t, fieldOwnerID, *g.KeySchema[0].AttributeName)
	assert.Equal(t, types.KeyTypeHash, g.KeySchema[0].KeyType)
	assert.Equal(t, fieldPropertyID, *g.KeySchema[1].AttributeName)
	assert.Equal(t, types.KeyTypeRange, g.KeySchema[1].KeyType)
}
