package types

// QueryResult is a rendered statement ready for binding.
type QueryResult struct {
	SQL            string
	RequiredParams []string
	// Locks names the operation of each lock the statement takes, outer
	// query first, e.g. "select_for_update".
	Locks []string
}

// Locking reports whether executing the statement takes row locks.
func (r *QueryResult) Locking() bool {
	return len(r.Locks) > 0
}
