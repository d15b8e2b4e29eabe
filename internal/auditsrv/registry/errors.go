package registry

import (
	"net/http"

	"github.com/attestra/attestra/internal/common/apperrors"
)

var (
	ErrRegistry      apperrors.Error = apperrors.New("registry error").SetStatusCode(http.StatusInternalServerError)
	ErrNotFound      apperrors.Error = ErrRegistry.New("not found").SetStatusCode(http.StatusNotFound)
	ErrAlreadyExists apperrors.Error = ErrRegistry.New("already exists").SetStatusCode(http.StatusConflict)
	ErrInvalidInput  apperrors.Error = ErrRegistry.New("invalid input").SetStatusCode(http.StatusBadRequest)
)
