// Package apperr defines the error kinds shared by every layer.
package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrCorrupt    = errors.New("data corruption")
	ErrParse      = errors.New("malformed document")
)

// Error pairs a kind sentinel with a message safe to show to clients.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind with a client-facing message.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Message returns the client-facing message carried anywhere in err's chain.
func Message(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg, true
	}
	return "", false
}

// Kind returns a short label for the class of err: "ok", "not_found",
// "invalid", "corrupt" or "error".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrParse):
		return "corrupt"
	}
	return "error"
}
