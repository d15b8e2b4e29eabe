package objectstore

import (
	"net/http"

	"github.com/attestra/attestra/internal/common/apperrors"
)

var (
	ErrObjectStore apperrors.Error = apperrors.New("object store error").SetStatusCode(http.StatusInternalServerError)
)
