package dynamo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is a ready-to-send UpdateExpression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts field->value pairs into a SET clause and the remove
// list into a REMOVE clause. Fields are sorted so the output is deterministic.
func buildUpdateExpr(updates map[string]interface{}, remove ...string) (updateExpr, error) {
	ue := updateExpr{Names: make(map[string]string)}
	if len(updates) == 0 && len(remove) == 0 {
		return ue, fmt.Errorf("no fields to update")
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	i := 0
	var set, rm []string
	for _, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return updateExpr{}, fmt.Errorf("marshal field %s: %w", k, err)
		}
		if ue.Values == nil {
			ue.Values = make(map[string]types.AttributeValue)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		set = append(set, nameKey+" = "+valueKey)
		i++
	}

	removeSorted := append([]string(nil), remove...)
	sort.Strings(removeSorted)
	for _, k := range removeSorted {
		nameKey := fmt.Sprintf("#f%d", i)
		ue.Names[nameKey] = k
		rm = append(rm, nameKey)
		i++
	}

	var parts []string
	if len(set) > 0 {
		parts = append(parts, "SET "+strings.Join(set, ", "))
	}
	if len(rm) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(rm, ", "))
	}
	ue.Expr = strings.Join(parts, " ")
	return ue, nil
}
