// Package httpx provides shared HTTP response helpers for the portal
// services: JSON responses, error envelopes, and a tracking ResponseWriter.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// SendJsonRsp sends a JSON response with the given status code. Accepts
// pre-marshaled JSON (string or []byte) or any marshalable value. If the
// status code is 201 and a location is provided, the Location header is set.
func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, msg any, location ...string) {
	var msgJson []byte
	switch m := msg.(type) {
	case string:
		if json.Valid([]byte(m)) {
			msgJson = []byte(m)
		}
	case []byte:
		if json.Valid(m) {
			msgJson = m
		}
	default:
		var err error
		msgJson, err = json.Marshal(msg)
		if err != nil {
			log.Ctx(ctx).Err(err).Msg("unable to marshal json response")
			ErrApplicationError("unable to process request").Send(w)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if statusCode == http.StatusCreated && len(location) > 0 {
		w.Header().Set("Location", location[0])
	}
	w.WriteHeader(statusCode)
	w.Write(msgJson)
}
