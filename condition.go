package lockql

import "github.com/zoobzio/lockql/internal/types"

// c creates a simple condition.
func c(f types.Field, op types.Operator, v types.Param) types.Condition {
	if op.Unary() {
		return types.Condition{Field: f, Operator: op}
	}
	return types.Condition{Field: f, Operator: op, Value: v}
}

// and groups conditions with AND logic.
func and(conditions ...types.ConditionItem) types.ConditionGroup {
	return types.ConditionGroup{
		Logic:      types.AND,
		Conditions: conditions,
	}
}
