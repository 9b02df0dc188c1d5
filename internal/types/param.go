package types

// Param represents a named parameter reference in a query.
type Param struct {
	Name string
}
