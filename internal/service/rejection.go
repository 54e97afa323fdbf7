package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Rejection is the structured failure payload a pipeline stage
// produces. It is data for the caller, never a bare stack trace: a
// status code, a machine-readable message and, where applicable, the
// itemized issue list.
type Rejection struct {
	Code    int
	Message string
	Issues  []string
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(code int, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

func rejectWithIssues(code int, message string, issues []string) *Rejection {
	return &Rejection{Code: code, Message: message, Issues: issues}
}

// AsRejection extracts a Rejection from an error chain, mapping any
// other error to an opaque server failure so storage errors are
// surfaced but never leaked verbatim across the boundary.
func AsRejection(err error) *Rejection {
	var r *Rejection
	if errors.As(err, &r) {
		return r
	}
	return reject(http.StatusInternalServerError, "Server error: %v", err)
}
