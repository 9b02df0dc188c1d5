package types

import "fmt"

// Operation represents the type of query operation.
type Operation string

const (
	OpSelect Operation = "SELECT"
)

// Direction represents sort direction.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Field     Field
	Direction Direction
}

// JoinType represents the type of SQL join.
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
)

// Join represents a SQL JOIN clause.
type Join struct {
	On    ConditionItem
	Table Table
	Type  JoinType
}

// Constants for subquery handling.
const (
	MaxSubqueryDepth = 3 // Prevent DoS via deep nesting
)

// AST represents the abstract syntax tree for a SELECT query.
// This is exported from the internal package so the base package can use it,
// but external users cannot import this package.
//
//nolint:govet // fieldalignment: Logical grouping is preferred over memory optimization
type AST struct {
	Operation   Operation
	Target      Table
	Fields      []Field
	Joins       []Join
	WhereClause ConditionItem
	Ordering    []OrderBy
	Limit       *int
	Offset      *int
	Lock        *Lock // nil means no row locking
}

// Validate performs basic validation on the AST.
func (ast *AST) Validate() error {
	if ast.Target.Name == "" {
		return fmt.Errorf("target table is required")
	}
	if ast.Operation != OpSelect {
		return fmt.Errorf("unsupported operation: %s", ast.Operation)
	}
	if ast.Limit != nil && *ast.Limit < 0 {
		return fmt.Errorf("LIMIT must not be negative")
	}
	if ast.Offset != nil && *ast.Offset < 0 {
		return fmt.Errorf("OFFSET must not be negative")
	}
	for i, j := range ast.Joins {
		if j.On == nil {
			return fmt.Errorf("join %d (%s) requires ON clause", i, j.Table.Name)
		}
	}
	if ast.Lock != nil {
		if err := ast.Lock.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Subqueries returns the ASTs nested in the WHERE clause, depth first.
func (ast *AST) Subqueries() []*AST {
	var out []*AST
	var walk func(ConditionItem)
	walk = func(item ConditionItem) {
		switch c := item.(type) {
		case SubqueryCondition:
			if c.Subquery.AST != nil {
				out = append(out, c.Subquery.AST)
				out = append(out, c.Subquery.AST.Subqueries()...)
			}
		case ConditionGroup:
			for _, sub := range c.Conditions {
				walk(sub)
			}
		}
	}
	if ast.WhereClause != nil {
		walk(ast.WhereClause)
	}
	return out
}
