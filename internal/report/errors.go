package report

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrCompile       = errors.New("compile error")
	ErrIO            = errors.New("io error")
)

// Error ties a failure to the path it concerns.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is reports a match against the error kind.
func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }

// Configf returns a configuration error.
func Configf(format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Err: fmt.Errorf(format, args...)}
}

// IOErr wraps err as an io error for path.
func IOErr(path string, err error) error {
	return &Error{Kind: ErrIO, Path: path, Err: err}
}

// CompileErr wraps err as a compile error for path.
func CompileErr(path string, err error) error {
	return &Error{Kind: ErrCompile, Path: path, Err: err}
}
