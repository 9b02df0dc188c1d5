package lockql

import (
	"fmt"

	"github.com/zoobzio/lockql/internal/types"
)

// filter is a WHERE condition recorded by path; paths are resolved at Build.
type filter struct {
	path  string
	op    types.Operator
	param string
	sub   *Builder
}

type ordering struct {
	path      string
	direction types.Direction
}

// Builder provides a fluent API for constructing SELECT queries over a model.
// Every method returns a new Builder and leaves its receiver unchanged. The
// first misuse records an error that later calls carry along unchanged; it
// is available from Err and returned by Build.
type Builder struct {
	model    *Model
	related  []string
	required []string
	fields   []string
	filters  []filter
	ordering []ordering
	limit    *int
	offset   *int
	lock     *lockRequest
	err      error
}

// Select creates a new SELECT query builder for a model.
func Select(m *Model) *Builder {
	if m == nil {
		return &Builder{err: fmt.Errorf("model cannot be nil")}
	}
	return &Builder{model: m}
}

// Err returns the first error recorded on the builder.
func (b *Builder) Err() error {
	return b.err
}

// Model returns the queried model.
func (b *Builder) Model() *Model {
	return b.model
}

// Locked reports whether ForShare or ForUpdate has been requested.
func (b *Builder) Locked() bool {
	return b.lock != nil
}

// derive returns a copy of b with change applied; b itself is never
// modified, so chains forked from a shared base stay independent.
func (b *Builder) derive(change func(c *Builder)) *Builder {
	if b.err != nil {
		return b
	}
	c := b.Clone()
	change(c)
	return c
}

// fail returns a copy of b carrying err.
func (b *Builder) fail(err error) *Builder {
	return b.derive(func(c *Builder) { c.err = err })
}

// SelectRelated joins the relations along each path, e.g. "born__country".
func (b *Builder) SelectRelated(paths ...string) *Builder {
	for _, p := range paths {
		if p == "" {
			return b.fail(fmt.Errorf("SelectRelated requires a non-empty path"))
		}
	}
	return b.derive(func(c *Builder) { c.related = append(c.related, paths...) })
}

// ExcludeNull keeps only rows where the selected relation at path exists.
// The relation is inner joined, which also makes it lockable with Of.
func (b *Builder) ExcludeNull(path string) *Builder {
	if path == "" {
		return b.fail(fmt.Errorf("ExcludeNull requires a non-empty path"))
	}
	return b.derive(func(c *Builder) { c.required = append(c.required, path) })
}

// Fields sets the selected columns by path, e.g. "name" or "born__name".
func (b *Builder) Fields(paths ...string) *Builder {
	return b.derive(func(c *Builder) { c.fields = append(c.fields, paths...) })
}

// Filter adds "path op :param", combined with earlier filters by AND.
// Unary operators (IsNull, IsNotNull) ignore param.
func (b *Builder) Filter(path string, op types.Operator, param string) *Builder {
	switch op {
	case types.EQ, types.NE, types.GT, types.GE, types.LT, types.LE, types.LIKE:
		if !isValidSQLIdentifier(param) {
			return b.fail(fmt.Errorf("invalid parameter name: %s", param))
		}
	case types.IsNull, types.IsNotNull:
	case types.IN, types.NotIn:
		return b.fail(fmt.Errorf("%s requires a subquery; use FilterIn", op))
	default:
		return b.fail(fmt.Errorf("unsupported operator: %s", op))
	}
	return b.derive(func(c *Builder) {
		c.filters = append(c.filters, filter{path: path, op: op, param: param})
	})
}

// FilterIn adds "path IN (sub)". The subquery keeps its own ordering and lock.
func (b *Builder) FilterIn(path string, sub *Builder) *Builder {
	if sub == nil {
		return b.fail(fmt.Errorf("FilterIn requires a subquery"))
	}
	return b.derive(func(c *Builder) {
		c.filters = append(c.filters, filter{path: path, op: types.IN, sub: sub.Clone()})
	})
}

// OrderBy adds ordering. Row locks are acquired in this order.
func (b *Builder) OrderBy(path string, direction types.Direction) *Builder {
	if direction != types.ASC && direction != types.DESC {
		return b.fail(fmt.Errorf("invalid direction: %s", direction))
	}
	return b.derive(func(c *Builder) {
		c.ordering = append(c.ordering, ordering{path: path, direction: direction})
	})
}

// Limit sets the limit.
func (b *Builder) Limit(limit int) *Builder {
	return b.derive(func(c *Builder) { c.limit = &limit })
}

// Offset sets the offset.
func (b *Builder) Offset(offset int) *Builder {
	return b.derive(func(c *Builder) { c.offset = &offset })
}

// ForShare returns a query that locks the selected rows in share mode
// (FOR SHARE, or FOR KEY SHARE with Key). Calling it again replaces the
// options; calling it after ForUpdate is an error.
func (b *Builder) ForShare(opts ...LockOption) *Builder {
	return b.setLock(true, opts)
}

// ForUpdate returns a query that locks the selected rows for update (FOR
// UPDATE, or FOR NO KEY UPDATE with NoKey). Calling it again replaces the
// options; calling it after ForShare is an error.
func (b *Builder) ForUpdate(opts ...LockOption) *Builder {
	return b.setLock(false, opts)
}

func (b *Builder) setLock(share bool, opts []LockOption) *Builder {
	if b.err != nil {
		return b
	}
	req, err := newLockRequest(share, opts)
	if err != nil {
		return b.fail(err)
	}
	if b.lock != nil && b.lock.share != share {
		return b.fail(&ConfigurationError{
			Operation: req.operation(),
			Message:   fmt.Sprintf("Cannot call %s() after .%s().", req.operation(), b.lock.operation()),
		})
	}
	return b.derive(func(c *Builder) { c.lock = req })
}

// Clone returns an independent copy of the builder, subqueries included.
func (b *Builder) Clone() *Builder {
	c := *b
	c.related = append([]string(nil), b.related...)
	c.required = append([]string(nil), b.required...)
	c.fields = append([]string(nil), b.fields...)
	c.filters = append([]filter(nil), b.filters...)
	for i, f := range c.filters {
		if f.sub != nil {
			c.filters[i].sub = f.sub.Clone()
		}
	}
	c.ordering = append([]ordering(nil), b.ordering...)
	c.lock = b.lock.clone()
	return &c
}

// Build returns the constructed AST or an error.
// Building does not change the builder; repeated builds are identical.
func (b *Builder) Build() (*types.AST, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.model == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}

	g := newJoinGraph(b.model)
	required := make(map[string]bool, len(b.required))
	for _, p := range b.required {
		required[p] = true
	}
	for _, p := range b.related {
		if err := g.selectRelated(p, required); err != nil {
			return nil, err
		}
	}

	var conditions []types.ConditionItem
	for _, p := range b.required {
		node, ok := g.nodes[p]
		if !ok || node == g.root {
			return nil, fmt.Errorf("ExcludeNull requires '%s' to be selected with SelectRelated", p)
		}
		conditions = append(conditions, types.Condition{
			Field:    types.Field{Name: node.model.pk, Table: node.table.Ref()},
			Operator: types.IsNotNull,
		})
	}

	fields := g.defaultFields()
	if len(b.fields) > 0 {
		fields = make([]types.Field, 0, len(b.fields))
		for _, p := range b.fields {
			f, err := g.column(p)
			if err != nil {
				return nil, fmt.Errorf("invalid field: %w", err)
			}
			if p != f.Name {
				f.As = p
			}
			fields = append(fields, f)
		}
	}

	for _, flt := range b.filters {
		f, err := g.column(flt.path)
		if err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
		if flt.sub != nil {
			sub, err := flt.sub.Build()
			if err != nil {
				return nil, fmt.Errorf("invalid subquery: %w", err)
			}
			if len(sub.Fields) != 1 {
				return nil, fmt.Errorf("subquery for '%s' must select exactly one field", flt.path)
			}
			conditions = append(conditions, types.SubqueryCondition{
				Field:    f,
				Operator: flt.op,
				Subquery: types.Subquery{AST: sub},
			})
			continue
		}
		conditions = append(conditions, c(f, flt.op, types.Param{Name: flt.param}))
	}

	var order []types.OrderBy
	for _, o := range b.ordering {
		f, err := g.column(o.path)
		if err != nil {
			return nil, fmt.Errorf("invalid ordering: %w", err)
		}
		order = append(order, types.OrderBy{Field: f, Direction: o.direction})
	}

	ast := &types.AST{
		Operation: types.OpSelect,
		Target:    g.root.table,
		Fields:    fields,
		Joins:     g.joins,
		Ordering:  order,
		Limit:     b.limit,
		Offset:    b.offset,
	}
	switch len(conditions) {
	case 0:
	case 1:
		ast.WhereClause = conditions[0]
	default:
		ast.WhereClause = and(conditions...)
	}

	if b.lock != nil {
		lock, err := b.lock.resolve(g)
		if err != nil {
			return nil, err
		}
		ast.Lock = lock
	}

	if err := ast.Validate(); err != nil {
		return nil, err
	}
	return ast, nil
}

// MustBuild returns the AST or panics on error.
func (b *Builder) MustBuild() *types.AST {
	ast, err := b.Build()
	if err != nil {
		panic(err)
	}
	return ast
}

// Render builds the AST and renders it with the given dialect.
func (b *Builder) Render(r Renderer) (*QueryResult, error) {
	ast, err := b.Build()
	if err != nil {
		return nil, err
	}
	return r.Render(ast)
}

// MustRender builds and renders the AST or panics on error.
func (b *Builder) MustRender(r Renderer) *QueryResult {
	result, err := b.Render(r)
	if err != nil {
		panic(err)
	}
	return result
}
