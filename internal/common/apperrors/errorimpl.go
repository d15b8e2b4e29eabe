package apperrors

import (
	"errors"
	"strings"
)

// appError is the concrete Error implementation. Values are immutable;
// every derivation returns a new value so sentinels declared at package
// level are never mutated by call sites.
type appError struct {
	msg        string
	base       error
	causes     []error
	statuscode int
}

// New creates a root-level error with the given message. This is the entry
// point packages use to declare sentinel errors.
func New(msg string) Error {
	return &appError{msg: msg}
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by every wrapped cause, separated
// by "; ".
func (e *appError) ErrorAll() string {
	if len(e.causes) == 0 {
		return e.msg
	}
	var b strings.Builder
	b.WriteString(e.msg)
	for _, err := range e.causes {
		if err.Error() == e.msg {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.causes
}

// New derives a fresh error using the current error as its template. The
// derived error matches the current one under errors.Is and inherits its
// status code.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

// Msg derives an error with a new message that wraps the current error.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     append([]error{e}, e.causes...),
		statuscode: e.statuscode,
	}
}

// MsgErr derives an error with a new message and additional wrapped causes.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     append([]error{e}, errs...),
		statuscode: e.statuscode,
	}
}

// Err derives an error keeping the current message and attaching causes.
func (e *appError) Err(errs ...error) Error {
	return &appError{
		msg:        e.msg,
		base:       e,
		causes:     append([]error{e}, errs...),
		statuscode: e.statuscode,
	}
}

// SetStatusCode returns a copy with the given HTTP status code.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

// Is matches the target against the template chain and all wrapped causes.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.causes {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
