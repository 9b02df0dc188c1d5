package types

// Table represents a table reference in a query.
// This is exported from the internal package so providers can use it,
// but external users cannot import this package.
type Table struct {
	Name  string
	Alias string
}

// Ref returns the alias when set, otherwise the table name.
func (t Table) Ref() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}
