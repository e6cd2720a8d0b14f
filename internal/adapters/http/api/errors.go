package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrValidation    = errors.New("validation failed")
	ErrDuplicate     = errors.New("duplicate team")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrInternal      = errors.New("internal error")
	ErrStreamUpgrade = errors.New("stream upgrade failed")
)

// Error ties a failure to the handler operation that produced it.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Kind == nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no underlying cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap marks err as an internal failure of op.
func Wrap(op string, err error) error {
	return &Error{Op: op, Kind: ErrInternal, Err: err}
}

// WrapKind attaches a kind and op to err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
