package lockql

import (
	"github.com/zoobzio/lockql/internal/types"
)

// choices lists every name an OF clause may use, breadth first from the
// root: "self", then each node's inheritance parents before the relations
// selected through it.
func (g *joinGraph) choices() []string {
	var out []string
	queue := []*joinNode{g.root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		out = append(out, g.choiceName(node))
		queue = append(queue, node.parents...)
		queue = append(queue, node.related...)
	}
	return out
}

func (g *joinGraph) choiceName(node *joinNode) string {
	if node == g.root {
		return selfChoice
	}
	return node.path
}

// resolveLockTargets maps OF names to the physical tables they lock.
// Targets keep the requested order; a name resolving to a table and column
// already listed is dropped.
func (g *joinGraph) resolveLockTargets(operation string, of []string) ([]types.LockTarget, error) {
	byChoice := make(map[string]*joinNode, len(g.nodes))
	for path, node := range g.nodes {
		if node == g.root {
			byChoice[selfChoice] = node
			continue
		}
		byChoice[path] = node
	}

	var invalid []string
	reported := map[string]bool{}
	for _, name := range of {
		if _, ok := byChoice[name]; !ok && !reported[name] {
			reported[name] = true
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return nil, &InvalidFieldError{
			Operation: operation,
			Fields:    invalid,
			Choices:   g.choices(),
		}
	}

	targets := make([]types.LockTarget, 0, len(of))
	seen := make(map[string]bool, len(of))
	for _, name := range of {
		node := byChoice[name]
		if node.joinType == types.LeftJoin {
			return nil, &ConfigurationError{
				Operation: operation,
				Message: operation + "(of=(...)) cannot lock '" + name +
					"' because it is on the nullable side of an outer join; exclude NULL " + name + " rows first.",
			}
		}
		t := types.LockTarget{
			Path:   name,
			Table:  node.table.Name,
			Alias:  node.table.Alias,
			Column: node.model.pk,
		}
		key := t.Ref() + "." + t.Column
		if seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, t)
	}
	return targets, nil
}
