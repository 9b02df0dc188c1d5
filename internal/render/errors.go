package render

import (
	"errors"
	"fmt"
)

// ErrNotSupported matches every UnsupportedFeatureError under errors.Is.
var ErrNotSupported = errors.New("feature not supported by database")

// UnsupportedFeatureError names a locking or pagination feature the target
// server cannot express.
type UnsupportedFeatureError struct {
	Feature string
	Dialect string
	Hint    string
}

func (e UnsupportedFeatureError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s is not supported: %s", e.Dialect, e.Feature, e.Hint)
	}
	return fmt.Sprintf("%s: %s is not supported", e.Dialect, e.Feature)
}

// Is reports whether target is ErrNotSupported.
func (UnsupportedFeatureError) Is(target error) bool {
	return target == ErrNotSupported
}

// NewUnsupportedFeatureError returns an UnsupportedFeatureError with an
// optional hint.
func NewUnsupportedFeatureError(dialect, feature string, hint ...string) error {
	err := UnsupportedFeatureError{Feature: feature, Dialect: dialect}
	if len(hint) > 0 {
		err.Hint = hint[0]
	}
	return err
}
