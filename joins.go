package lockql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zoobzio/lockql/internal/types"
)

// lookupSep separates relation names in a path, e.g. "born__country".
const lookupSep = "__"

// selfChoice names the root model in an OF list.
const selfChoice = "self"

// joinNode is one table in a query's join graph. Edges point from a node to
// its inheritance parents and to the relations selected through it.
type joinNode struct {
	path     string
	model    *Model // always concrete
	table    types.Table
	via      *Field
	from     *joinNode
	joinType types.JoinType
	parents  []*joinNode
	related  []*joinNode
}

// joinGraph is the directed acyclic graph of tables a query reads.
type joinGraph struct {
	root   *joinNode
	nodes  map[string]*joinNode
	joins  []types.Join
	tables map[string]int // references per table name, for aliasing
	refs   int
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + lookupSep + name
}

// newJoinGraph starts a graph at the root model and joins its inheritance chain.
func newJoinGraph(root *Model) *joinGraph {
	g := &joinGraph{
		nodes:  make(map[string]*joinNode),
		tables: make(map[string]int),
	}
	concrete := root.Concrete()
	g.root = &joinNode{model: concrete, table: g.reference(concrete.table)}
	g.nodes[""] = g.root
	g.joinParents(g.root)
	return g
}

// reference returns a table reference, aliasing every repeat use of a table.
func (g *joinGraph) reference(table string) types.Table {
	g.refs++
	g.tables[table]++
	if g.tables[table] == 1 {
		return types.Table{Name: table}
	}
	return types.Table{Name: table, Alias: "T" + strconv.Itoa(g.refs)}
}

// joinParents walks the inheritance chain above node, joining each ancestor
// table on the child's parent link column.
func (g *joinGraph) joinParents(node *joinNode) {
	for cur := node; cur.model.parent != nil; {
		link := cur.model.link
		parent := cur.model.parent
		next := &joinNode{
			path:     joinPath(cur.path, link.name),
			model:    parent,
			table:    g.reference(parent.table),
			via:      link,
			from:     cur,
			joinType: cur.joinType,
		}
		if next.joinType == "" {
			next.joinType = types.InnerJoin
		}
		g.add(next, types.FieldComparison{
			LeftField:  types.Field{Name: link.column, Table: cur.table.Ref()},
			Operator:   types.EQ,
			RightField: types.Field{Name: parent.pk, Table: next.table.Ref()},
		})
		cur.parents = append(cur.parents, next)
		cur = next
	}
}

func (g *joinGraph) add(node *joinNode, on types.ConditionItem) {
	g.nodes[node.path] = node
	g.joins = append(g.joins, types.Join{Type: node.joinType, Table: node.table, On: on})
}

// ownerNode returns the node whose table holds fields declared on owner,
// walking up from node through its inheritance joins.
func ownerNode(node *joinNode, owner *Model) *joinNode {
	for cur := node; cur != nil; {
		if cur.model == owner {
			return cur
		}
		if len(cur.parents) == 0 {
			break
		}
		cur = cur.parents[0]
	}
	return node
}

// selectRelated joins every relation along path. Relations already joined
// are reused; required paths are inner joined even when nullable.
func (g *joinGraph) selectRelated(path string, required map[string]bool) error {
	cur := g.root
	for _, name := range strings.Split(path, lookupSep) {
		p := joinPath(cur.path, name)
		if existing, ok := g.nodes[p]; ok {
			cur = existing
			continue
		}
		field, owner := cur.model.lookup(name)
		if field == nil {
			return fmt.Errorf("invalid field name given in select_related: '%s'", p)
		}
		if !field.kind.Relational() || field.kind == ParentLink {
			return fmt.Errorf("non-relational field given in select_related: '%s'", p)
		}
		src := ownerNode(cur, owner)
		target := field.target.Concrete()
		next := &joinNode{
			path:     p,
			model:    target,
			table:    g.reference(target.table),
			via:      field,
			from:     src,
			joinType: types.InnerJoin,
		}
		nullable := field.null || field.kind == ReverseOneToOne || src.joinType == types.LeftJoin
		if nullable && !required[p] {
			next.joinType = types.LeftJoin
		}

		var on types.FieldComparison
		if field.kind == ReverseOneToOne {
			on = types.FieldComparison{
				LeftField:  types.Field{Name: owner.pk, Table: src.table.Ref()},
				Operator:   types.EQ,
				RightField: types.Field{Name: field.remote.column, Table: next.table.Ref()},
			}
		} else {
			on = types.FieldComparison{
				LeftField:  types.Field{Name: field.column, Table: src.table.Ref()},
				Operator:   types.EQ,
				RightField: types.Field{Name: target.pk, Table: next.table.Ref()},
			}
		}
		g.add(next, on)
		cur.related = append(cur.related, next)
		g.joinParents(next)
		cur = next
	}
	return nil
}

// column resolves "field", "relation__field" or "pk" to a qualified column.
// The relation part must already be joined.
func (g *joinGraph) column(path string) (types.Field, error) {
	prefix, name := "", path
	if i := strings.LastIndex(path, lookupSep); i >= 0 {
		prefix, name = path[:i], path[i+len(lookupSep):]
	}
	node, ok := g.nodes[prefix]
	if !ok {
		return types.Field{}, fmt.Errorf("relation '%s' is not joined; use SelectRelated", prefix)
	}
	if name == "pk" {
		return types.Field{Name: node.model.pk, Table: node.table.Ref()}, nil
	}
	field, owner := node.model.lookup(name)
	if field == nil {
		return types.Field{}, fmt.Errorf("cannot resolve '%s' into a field of '%s'", name, node.model.name)
	}
	if field.kind == ReverseOneToOne {
		return types.Field{}, fmt.Errorf("'%s' is a reverse relation and has no column", path)
	}
	return types.Field{Name: field.column, Table: ownerNode(node, owner).table.Ref()}, nil
}

// defaultFields selects every column of the root table and its ancestors,
// the first table to define a column name wins.
func (g *joinGraph) defaultFields() []types.Field {
	var out []types.Field
	seen := map[string]bool{}
	for cur := g.root; cur != nil; {
		for _, col := range cur.model.columns {
			if seen[col] {
				continue
			}
			seen[col] = true
			out = append(out, types.Field{Name: col, Table: cur.table.Ref()})
		}
		if len(cur.parents) == 0 {
			break
		}
		cur = cur.parents[0]
	}
	return out
}
