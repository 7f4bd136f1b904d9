package assist

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindCredential ErrorKind = "credential"
	KindTransport  ErrorKind = "transport"
	KindSchema     ErrorKind = "schema"
)

var ErrMissingAPIKey = errors.New("api key is missing")

// Error is returned for every failed improvement request.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ai assist %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// AsError returns err as *Error, wrapping foreign errors as transport
// failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: KindTransport, Err: err}
}
