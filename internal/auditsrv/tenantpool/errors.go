package tenantpool

import (
	"net/http"

	"github.com/attestra/attestra/internal/common/apperrors"
)

var (
	// ErrPoolCreation indicates the tenant database could not be reached
	// or authenticated against while building a pool. Surfaced as a
	// service-unavailable condition; safe to retry on a fresh request.
	ErrPoolCreation apperrors.Error = apperrors.New("unable to create tenant pool").SetStatusCode(http.StatusServiceUnavailable)
)
