package lockql

import "github.com/zoobzio/lockql/internal/types"

// CheckTransaction returns a TransactionStateError when ast, or a subquery
// inside it, locks rows and is about to run outside a transaction.
// It belongs at execution time: building a locked query is always allowed.
func CheckTransaction(ast *types.AST, inTransaction bool) error {
	if inTransaction || ast == nil {
		return nil
	}
	if ast.Lock != nil {
		return &TransactionStateError{Operation: ast.Lock.Operation()}
	}
	for _, sub := range ast.Subqueries() {
		if sub.Lock != nil {
			return &TransactionStateError{Operation: sub.Lock.Operation()}
		}
	}
	return nil
}

// Locks reports whether executing ast takes row locks.
func Locks(ast *types.AST) bool {
	return CheckTransaction(ast, false) != nil
}
