package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelDerivation(t *testing.T) {
	base := New("registry error").SetStatusCode(http.StatusInternalServerError)
	notFound := base.New("not found").SetStatusCode(http.StatusNotFound)

	// derived errors match their sentinel chain
	assert.ErrorIs(t, notFound, base)
	assert.Equal(t, http.StatusNotFound, notFound.StatusCode())

	// refinement at a call site keeps the chain intact
	refined := notFound.Msg("client abc not found")
	assert.ErrorIs(t, refined, notFound)
	assert.ErrorIs(t, refined, base)
	assert.Equal(t, http.StatusNotFound, refined.StatusCode())
	assert.Equal(t, "client abc not found", refined.Error())
}

func TestErrAttachesCauses(t *testing.T) {
	base := New("pool error")
	cause := fmt.Errorf("dial tcp: connection refused")

	err := base.Err(cause)
	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.ErrorAll(), "connection refused")
	assert.Equal(t, "pool error", err.Error())
}

func TestMsgErrWrapsExtraErrors(t *testing.T) {
	base := New("provisioning error")
	cause := errors.New("bucket create failed")

	err := base.MsgErr("onboarding failed", cause)
	assert.Equal(t, "onboarding failed", err.Error())
	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, err.UnwrapAll(), 2)
}

func TestSentinelsAreImmutable(t *testing.T) {
	base := New("base")
	derived := base.SetStatusCode(http.StatusConflict)
	assert.Equal(t, 0, base.StatusCode())
	assert.Equal(t, http.StatusConflict, derived.StatusCode())
}
