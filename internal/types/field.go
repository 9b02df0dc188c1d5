package types

// Field represents a column reference.
// This is exported from the internal package so providers can use it,
// but external users cannot import this package.
type Field struct {
	Name  string // The column name (required)
	Table string // Optional table name or alias qualifier
	As    string // Optional output alias
}
