package server

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/auditsrv/auditcommon"
	"github.com/attestra/attestra/internal/auditsrv/config"
	"github.com/attestra/attestra/internal/auditsrv/tenantpool"
	"github.com/attestra/attestra/internal/common/httpx"
	"github.com/attestra/attestra/internal/common/uuid"
)

// ClientResolver authenticates the request's bearer token, resolves the
// client's tenant pool through the cache, and attaches both to the
// request context. Downstream handlers never see credentials; they only
// receive the resolved pool handle. Resolution failures reject the
// request — the resolver never falls back to a default connection.
func (s *AuditServer) ClientResolver(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		clientID, herr := clientIDFromRequest(r)
		if herr != nil {
			herr.Send(w)
			return
		}

		h, aerr := s.cache.Get(ctx, clientID)
		if aerr != nil {
			log.Ctx(ctx).Error().Err(aerr).Str("client_id", clientID.String()).Msg("unable to resolve tenant connection")
			httpx.SendError(w, aerr)
			return
		}

		ctx = auditcommon.WithClientID(ctx, clientID)
		ctx = tenantpool.WithHandle(ctx, h)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIDFromRequest extracts and verifies the client identity claim
// from the Authorization header.
func clientIDFromRequest(r *http.Request) (uuid.UUID, *httpx.Error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return uuid.Nil, httpx.ErrUnauthorized("missing authorization header")
	}
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || tokenString == "" {
		return uuid.Nil, httpx.ErrUnauthorized("invalid authorization header")
	}

	acfg := config.Config().Auth
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(acfg.TokenSigningKey), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(acfg.GetClockSkewOrDefault()),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, httpx.ErrUnauthorized("invalid token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, httpx.ErrUnauthorized("token has no subject")
	}
	clientID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, httpx.ErrUnauthorized("token subject is not a client identity")
	}
	return clientID, nil
}
