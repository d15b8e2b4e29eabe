package secrets

import (
	"net/http"

	"github.com/attestra/attestra/internal/common/apperrors"
)

var (
	// ErrEncryption indicates the credential could not be sealed.
	ErrEncryption apperrors.Error = apperrors.New("credential encryption failed").SetStatusCode(http.StatusInternalServerError)

	// ErrDecryption indicates a malformed blob or a key mismatch, for
	// example after rotating the encryption password. Fatal for the
	// resolution attempt that hit it, but never for the process.
	ErrDecryption apperrors.Error = apperrors.New("credential decryption failed").SetStatusCode(http.StatusInternalServerError)
)
