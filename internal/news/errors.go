package news

import (
	"errors"
	"fmt"
)

var (
	// ErrSearchStatus reports a transport failure or non-2xx status from the
	// search service.
	ErrSearchStatus = errors.New("search request failed")
	// ErrSearchFormat reports a 2xx search response whose body is not a JSON array.
	ErrSearchFormat = errors.New("unexpected search response format")
	// ErrHistoryStatus reports a failed history update.
	ErrHistoryStatus = errors.New("history update failed")
)

// StatusError carries the HTTP status of a failed request. It unwraps to
// the sentinel describing which endpoint failed.
type StatusError struct {
	Op     error
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: HTTP %d", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Op
}
