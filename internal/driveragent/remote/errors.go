package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
)

// ErrorKind tells the sync engine what to do with a failed item.
type ErrorKind int

const (
	// Transient failures are retried on the next pass.
	Transient ErrorKind = iota
	// Rejected failures will never succeed; the item is dead-lettered.
	Rejected
	// RateLimited is transient, and also ends the current location phase.
	RateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Rejected:
		return "rejected"
	case RateLimited:
		return "rate_limited"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is returned by every Client call that did not succeed.
type Error struct {
	Kind       ErrorKind
	StatusCode int // 0 for network failures
	Message    string

	// Set when the hub refused a status transition.
	Current  string
	Proposed string
	Allowed  []string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "hub returned %d", e.StatusCode)
	} else {
		b.WriteString("hub unreachable")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Allowed) > 0 {
		fmt.Fprintf(&b, " (allowed: %s)", strings.Join(e.Allowed, ", "))
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Errors that are not *Error are transient.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return Transient
}

func IsRejected(err error) bool    { return err != nil && KindOf(err) == Rejected }
func IsRateLimited(err error) bool { return err != nil && KindOf(err) == RateLimited }

// classify maps an HTTP status to an ErrorKind. Auth and conflict responses
// are transient: a renewed token or a refreshed stop can make them succeed.
func classify(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code >= 500,
		code == http.StatusUnauthorized,
		code == http.StatusForbidden,
		code == http.StatusRequestTimeout,
		code == http.StatusConflict:
		return Transient
	case code >= 400:
		return Rejected
	}
	return Transient
}

func newHTTPError(code int, body *v1.ErrorResponse) *Error {
	e := &Error{Kind: classify(code), StatusCode: code}
	if body != nil {
		e.Message = body.Error
		e.Current = body.Current
		e.Proposed = body.Proposed
		e.Allowed = body.Allowed
	}
	if e.Message == "" {
		e.Message = http.StatusText(code)
	}
	return e
}
