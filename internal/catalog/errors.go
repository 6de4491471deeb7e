package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTable indicates an eligibility table with empty item or method names.
	ErrInvalidTable = errors.New("eligibility table must not contain empty item or method names")
	// ErrNoTable is returned by a store that has not been given a table yet.
	ErrNoTable = errors.New("no eligibility table configured")
)

// LoadError reports a document that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
