package query

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable signals that no dataset is loaded or it has no rows.
// Every query operation checks this up front instead of failing mid-flight.
var ErrDataUnavailable = errors.New("dataset unavailable")

// NotFoundError indicates an entity lookup miss.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("book id %q not found", e.ID)
}

// InvalidArgumentError indicates a malformed or out-of-order request
// parameter. It is a rejected request, never an empty success.
type InvalidArgumentError struct {
	Msg string
}

func (e InvalidArgumentError) Error() string {
	return e.Msg
}

func invalidArgf(format string, args ...interface{}) error {
	return InvalidArgumentError{Msg: fmt.Sprintf(format, args...)}
}
