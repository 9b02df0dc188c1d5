package render

import (
	"fmt"
	"strings"

	"github.com/zoobzio/lockql/internal/types"
)

// Dialect supplies the syntax that differs between databases.
type Dialect interface {
	// Name identifies the dialect in error messages.
	Name() string
	// Capabilities returns the features the target server supports.
	Capabilities() Capabilities
	// QuoteIdentifier quotes a table, alias or column name.
	QuoteIdentifier(name string) string
	// Pagination renders LIMIT/OFFSET, or "" when neither is set.
	Pagination(ast *types.AST) (string, error)
	// LockClause renders the lock, either as a trailing clause or, when
	// Capabilities().LockAfterFrom is set, as a hint on each table reference.
	LockClause(lock *types.Lock) string
}

// renderContext tracks rendering state for parameters and depth limiting.
type renderContext struct {
	usedParams map[string]bool
	params     []string
	depth      int
}

func newRenderContext() *renderContext {
	return &renderContext{usedParams: make(map[string]bool)}
}

// withSubquery returns the context for one level of nesting.
func (ctx *renderContext) withSubquery() (*renderContext, error) {
	if ctx.depth >= types.MaxSubqueryDepth {
		return nil, fmt.Errorf("maximum subquery depth (%d) exceeded", types.MaxSubqueryDepth)
	}
	return &renderContext{
		usedParams: ctx.usedParams,
		params:     ctx.params,
		depth:      ctx.depth + 1,
	}, nil
}

// addParam registers a parameter and returns its placeholder.
// Named parameters are used throughout for sqlx.
func (ctx *renderContext) addParam(param types.Param) string {
	if !ctx.usedParams[param.Name] {
		ctx.params = append(ctx.params, param.Name)
		ctx.usedParams[param.Name] = true
	}
	return ":" + param.Name
}

// Select renders a SELECT AST with the given dialect.
func Select(d Dialect, ast *types.AST) (*types.QueryResult, error) {
	if err := ast.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AST: %w", err)
	}

	var sql strings.Builder
	ctx := newRenderContext()
	if err := renderSelect(d, ast, &sql, ctx); err != nil {
		return nil, err
	}

	return &types.QueryResult{
		SQL:            sql.String(),
		RequiredParams: ctx.params,
		Locks:          lockOperations(ast),
	}, nil
}

func lockOperations(ast *types.AST) []string {
	var ops []string
	if ast.Lock != nil {
		ops = append(ops, ast.Lock.Operation())
	}
	for _, sub := range ast.Subqueries() {
		if sub.Lock != nil {
			ops = append(ops, sub.Lock.Operation())
		}
	}
	return ops
}

func renderSelect(d Dialect, ast *types.AST, sql *strings.Builder, ctx *renderContext) error {
	if err := CheckLock(d.Name(), d.Capabilities(), ast); err != nil {
		return err
	}
	hint := ast.Lock != nil && d.Capabilities().LockAfterFrom

	sql.WriteString("SELECT ")
	if len(ast.Fields) == 0 {
		sql.WriteString("*")
	} else {
		parts := make([]string, 0, len(ast.Fields))
		for _, f := range ast.Fields {
			part := renderField(d, f)
			if f.As != "" {
				part += " AS " + d.QuoteIdentifier(f.As)
			}
			parts = append(parts, part)
		}
		sql.WriteString(strings.Join(parts, ", "))
	}

	sql.WriteString(" FROM ")
	sql.WriteString(renderTable(d, ast.Target))
	if hint {
		sql.WriteString(" ")
		sql.WriteString(d.LockClause(ast.Lock))
	}

	for _, join := range ast.Joins {
		sql.WriteString(" ")
		sql.WriteString(string(join.Type))
		sql.WriteString(" ")
		sql.WriteString(renderTable(d, join.Table))
		if hint {
			sql.WriteString(" ")
			sql.WriteString(d.LockClause(ast.Lock))
		}
		sql.WriteString(" ON ")
		if err := renderCondition(d, join.On, sql, ctx, true); err != nil {
			return err
		}
	}

	if ast.WhereClause != nil {
		sql.WriteString(" WHERE ")
		if err := renderCondition(d, ast.WhereClause, sql, ctx, true); err != nil {
			return err
		}
	}

	// ORDER BY is kept verbatim; callers rely on it for lock acquisition order.
	if len(ast.Ordering) > 0 {
		sql.WriteString(" ORDER BY ")
		parts := make([]string, 0, len(ast.Ordering))
		for _, o := range ast.Ordering {
			parts = append(parts, fmt.Sprintf("%s %s", renderField(d, o.Field), o.Direction))
		}
		sql.WriteString(strings.Join(parts, ", "))
	}

	page, err := d.Pagination(ast)
	if err != nil {
		return err
	}
	if page != "" {
		sql.WriteString(" ")
		sql.WriteString(page)
	}

	if ast.Lock != nil && !hint {
		sql.WriteString(" ")
		sql.WriteString(d.LockClause(ast.Lock))
	}
	return nil
}

func renderTable(d Dialect, t types.Table) string {
	quoted := d.QuoteIdentifier(t.Name)
	if t.Alias != "" {
		return quoted + " " + d.QuoteIdentifier(t.Alias)
	}
	return quoted
}

func renderField(d Dialect, f types.Field) string {
	if f.Table != "" {
		return d.QuoteIdentifier(f.Table) + "." + d.QuoteIdentifier(f.Name)
	}
	return d.QuoteIdentifier(f.Name)
}

func renderCondition(d Dialect, item types.ConditionItem, sql *strings.Builder, ctx *renderContext, top bool) error {
	switch c := item.(type) {
	case types.Condition:
		if c.Operator.Unary() {
			fmt.Fprintf(sql, "%s %s", renderField(d, c.Field), c.Operator)
			return nil
		}
		if c.Operator == types.IN || c.Operator == types.NotIn {
			return fmt.Errorf("%s requires a subquery", c.Operator)
		}
		fmt.Fprintf(sql, "%s %s %s", renderField(d, c.Field), c.Operator, ctx.addParam(c.Value))
	case types.FieldComparison:
		fmt.Fprintf(sql, "%s %s %s", renderField(d, c.LeftField), c.Operator, renderField(d, c.RightField))
	case types.ConditionGroup:
		if len(c.Conditions) == 0 {
			return fmt.Errorf("empty condition group")
		}
		if !top {
			sql.WriteString("(")
		}
		for i, sub := range c.Conditions {
			if i > 0 {
				fmt.Fprintf(sql, " %s ", c.Logic)
			}
			if err := renderCondition(d, sub, sql, ctx, false); err != nil {
				return err
			}
		}
		if !top {
			sql.WriteString(")")
		}
	case types.SubqueryCondition:
		if c.Subquery.AST == nil {
			return fmt.Errorf("subquery condition has no query")
		}
		sub, err := ctx.withSubquery()
		if err != nil {
			return err
		}
		if err := c.Subquery.AST.Validate(); err != nil {
			return fmt.Errorf("invalid subquery: %w", err)
		}
		fmt.Fprintf(sql, "%s %s (", renderField(d, c.Field), c.Operator)
		if err := renderSelect(d, c.Subquery.AST, sql, sub); err != nil {
			return err
		}
		ctx.params = sub.params
		sql.WriteString(")")
	default:
		return fmt.Errorf("unsupported condition type: %T", item)
	}
	return nil
}
