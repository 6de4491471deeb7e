package splitter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnfulfillable is matched by errors reporting basket items no delivery method can ship.
var ErrUnfulfillable = errors.New("basket contains items without an eligible delivery method")

// UnfulfillableItemError lists the basket items that have no eligible delivery method.
type UnfulfillableItemError struct {
	Items []string
}

func (e *UnfulfillableItemError) Error() string {
	quoted := make([]string, len(e.Items))
	for i, item := range e.Items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return fmt.Sprintf("%v: %s", ErrUnfulfillable, strings.Join(quoted, ", "))
}

func (e *UnfulfillableItemError) Is(target error) bool {
	return target == ErrUnfulfillable
}
