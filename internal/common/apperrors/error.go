// Package apperrors provides the application error type used across the
// audit portal services. It layers error chaining, HTTP status codes, and
// message derivation on top of the standard error interface so packages can
// declare sentinel errors and refine them per call site.
package apperrors

// Error is the interface implemented by all application errors. Derived
// errors keep an errors.Is relationship with the sentinel they were created
// from, so callers can match on package-level sentinels while still seeing
// call-site specific messages.
type Error interface {
	error
	Unwrap() error // supports errors.Is / errors.As

	New(msg string) Error                  // derives a fresh error with this one as template
	Msg(msg string) Error                  // derives an error with a new message, wrapping this one
	MsgErr(msg string, err ...error) Error // derives an error with a message plus extra wrapped errors
	Err(err ...error) Error                // derives an error attaching additional causes
	SetStatusCode(int) Error               // sets the HTTP status code
	StatusCode() int                       // returns the HTTP status code
	ErrorAll() string                      // message including all wrapped causes
	UnwrapAll() []error                    // all wrapped causes
}
