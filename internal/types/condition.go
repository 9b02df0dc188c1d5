package types

// ConditionItem is one node of a WHERE or ON tree.
type ConditionItem interface {
	IsConditionItem()
}

// Condition compares a column against a named parameter. Unary operators
// leave Value empty.
type Condition struct {
	Field    Field
	Operator Operator
	Value    Param
}

// FieldComparison compares two columns; join ON clauses are built from it.
type FieldComparison struct {
	LeftField  Field
	Operator   Operator
	RightField Field
}

// SubqueryCondition is "field IN (subquery)" or "field NOT IN (subquery)".
// The subquery keeps its own ordering, limit and lock.
type SubqueryCondition struct {
	Subquery Subquery
	Field    Field
	Operator Operator
}

// Subquery wraps a nested SELECT.
type Subquery struct {
	AST *AST
}

// LogicOperator joins the members of a ConditionGroup.
type LogicOperator string

const (
	AND LogicOperator = "AND"
	OR  LogicOperator = "OR"
)

// ConditionGroup is a parenthesised AND/OR of conditions.
type ConditionGroup struct {
	Logic      LogicOperator
	Conditions []ConditionItem
}

func (Condition) IsConditionItem()         {}
func (FieldComparison) IsConditionItem()   {}
func (SubqueryCondition) IsConditionItem() {}
func (ConditionGroup) IsConditionItem()    {}
