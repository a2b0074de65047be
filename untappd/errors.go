package untappd

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error is an application-level error reported by the api in a response's meta section
type Error struct {
	Code   int
	Type   string
	Detail string
}

// Error implements error
func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Detail)
}

// IsNotFound returns true if err is (or wraps) an api error with a 404 code
func IsNotFound(err error) bool {
	apiErr, ok := errors.Cause(err).(*Error)
	return ok && apiErr.Code == http.StatusNotFound
}
