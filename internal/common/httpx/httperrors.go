package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/attestra/attestra/internal/common/apperrors"
)

// Error represents an HTTP error response with a status code and a
// client-facing description.
type Error struct {
	Description string `json:"description"`
	StatusCode  int    `json:"http_status_code"`
}

type errorRsp struct {
	Error string `json:"error"`
}

// Send writes the error response as a JSON envelope. If the writer is nil,
// no action is taken.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rsp := &errorRsp{Error: e.Description}
	rspJson, err := json.Marshal(rsp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("unable to render error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(rspJson)
}

// Error returns the error description.
func (e *Error) Error() string {
	return e.Description
}

// SendError sends an application error as an HTTP error response, using
// the status code carried by the error. A zero status code maps to 500.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	httperror := &Error{
		StatusCode:  statusCode,
		Description: err.Error(),
	}
	httperror.Send(w)
}

// ErrApplicationError returns a generic internal error response.
func ErrApplicationError(desc string) *Error {
	return &Error{
		Description: desc,
		StatusCode:  http.StatusInternalServerError,
	}
}

// ErrInvalidRequest returns a 400 response with the given description.
func ErrInvalidRequest(desc string) *Error {
	return &Error{
		Description: desc,
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrUnauthorized returns a 401 response with the given description.
func ErrUnauthorized(desc string) *Error {
	return &Error{
		Description: desc,
		StatusCode:  http.StatusUnauthorized,
	}
}

// ErrNotFound returns a 404 response with the given description.
func ErrNotFound(desc string) *Error {
	return &Error{
		Description: desc,
		StatusCode:  http.StatusNotFound,
	}
}

// ErrRequestTimeout returns a 408 response.
func ErrRequestTimeout() *Error {
	return &Error{
		Description: "request timed out",
		StatusCode:  http.StatusRequestTimeout,
	}
}

// ErrServiceUnavailable returns a 503 response with the given description.
func ErrServiceUnavailable(desc string) *Error {
	return &Error{
		Description: desc,
		StatusCode:  http.StatusServiceUnavailable,
	}
}
