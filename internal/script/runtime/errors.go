package runtime

import (
	"errors"
	"fmt"
)

// Kind classifies a bridge failure. The string form is what gets logged.
type Kind string

const (
	KindUsage           Kind = "UsageError"
	KindConfig          Kind = "ConfigError"
	KindMalformedInput  Kind = "MalformedInputError"
	KindUnknownLogLevel Kind = "UnknownLogLevelError"
	KindLoad            Kind = "LoadError"
	KindNotFound        Kind = "NotFoundError"
	KindNotCallable     Kind = "NotCallableError"
	KindInvocation      Kind = "InvocationError"
	KindSerialization   Kind = "SerializationError"
	KindOutputWrite     Kind = "OutputWriteError"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrUsage           = &Error{Kind: KindUsage}
	ErrConfig          = &Error{Kind: KindConfig}
	ErrMalformedInput  = &Error{Kind: KindMalformedInput}
	ErrUnknownLogLevel = &Error{Kind: KindUnknownLogLevel}
	ErrLoad            = &Error{Kind: KindLoad}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrNotCallable     = &Error{Kind: KindNotCallable}
	ErrInvocation      = &Error{Kind: KindInvocation}
	ErrSerialization   = &Error{Kind: KindSerialization}
	ErrOutputWrite     = &Error{Kind: KindOutputWrite}
)

// Error is a terminal bridge failure. Trace carries the script-side stack
// when one is available.
type Error struct {
	Kind    Kind
	Message string
	Trace   string
	Err     error
}

// NewError creates an error of the given kind with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an error of the given kind that wraps err. The message
// is the formatted text followed by err's own message.
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case err == nil:
	case msg == "":
		msg = err.Error()
	default:
		msg = msg + ": " + err.Error()
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInvocation when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInvocation
}

// TraceOf returns the script trace of the first *Error in err's chain.
func TraceOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Trace
	}
	return ""
}
