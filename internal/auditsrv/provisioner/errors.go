package provisioner

import (
	"net/http"

	"github.com/attestra/attestra/internal/common/apperrors"
)

var (
	// ErrProvisioning indicates an onboarding-time failure creating the
	// client's isolated infrastructure or persisting its registry
	// records. Surfaced to the admin caller.
	ErrProvisioning apperrors.Error = apperrors.New("infrastructure provisioning failed").SetStatusCode(http.StatusInternalServerError)

	ErrInvalidRequest apperrors.Error = ErrProvisioning.New("invalid provisioning request").SetStatusCode(http.StatusBadRequest)
)
