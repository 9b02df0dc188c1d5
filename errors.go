package lockql

import (
	"fmt"
	"strings"

	"github.com/zoobzio/lockql/internal/render"
)

// ConfigurationError reports a programming error in how a query was
// configured, detected before the database is contacted.
type ConfigurationError struct {
	Operation string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// InvalidFieldError reports OF names that are not relations followed by the query.
type InvalidFieldError struct {
	Operation string
	Fields    []string // offending names, in request order
	Choices   []string // valid names, in discovery order
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf(
		"Invalid field name(s) given in %s(of=(...)): %s. Only relational fields followed in the query are allowed. Choices are: %s.",
		e.Operation, strings.Join(e.Fields, ", "), strings.Join(e.Choices, ", "),
	)
}

// TransactionStateError reports a locking query run outside a transaction.
type TransactionStateError struct {
	Operation string
}

func (e *TransactionStateError) Error() string {
	return e.Operation + " cannot be used outside of a transaction."
}

// NotSupportedError reports a feature the active dialect cannot express.
type NotSupportedError = render.UnsupportedFeatureError

// ErrNotSupported matches any NotSupportedError under errors.Is.
var ErrNotSupported = render.ErrNotSupported
