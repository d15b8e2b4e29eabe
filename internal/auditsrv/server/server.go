// Package server wires the audit portal's HTTP surface: the admin API
// for client onboarding and lifecycle, and the request-scoped resolver
// that attaches a client's tenant pool to incoming portal requests.
package server

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/auditsrv/auditcommon"
	"github.com/attestra/attestra/internal/auditsrv/config"
	"github.com/attestra/attestra/internal/auditsrv/provisioner"
	"github.com/attestra/attestra/internal/auditsrv/registry"
	"github.com/attestra/attestra/internal/auditsrv/tenantpool"
	"github.com/attestra/attestra/internal/common/apperrors"
	"github.com/attestra/attestra/internal/common/httpx"
	commonmiddleware "github.com/attestra/attestra/internal/common/middleware"
	"github.com/attestra/attestra/internal/common/uuid"
)

// PoolProvider is the resolver's view of the tenant pool cache.
type PoolProvider interface {
	Get(ctx context.Context, clientID uuid.UUID) (tenantpool.Handle, apperrors.Error)
}

// ClientProvisioner is the admin API's view of the provisioner.
type ClientProvisioner interface {
	ProvisionClient(ctx context.Context, req provisioner.ProvisionRequest) (*registry.Client, apperrors.Error)
	DeprovisionClient(ctx context.Context, clientID uuid.UUID) apperrors.Error
}

// AuditServer is the audit portal control-plane server.
type AuditServer struct {
	Router *chi.Mux

	reg   registry.Store
	cache PoolProvider
	prov  ClientProvisioner
	db    *sql.DB
}

// CreateNewServer assembles the server from its injected collaborators.
// db is the control-plane pool, used by the readiness probe.
func CreateNewServer(reg registry.Store, db *sql.DB, cache PoolProvider, prov ClientProvisioner) (*AuditServer, error) {
	s := &AuditServer{
		Router: chi.NewRouter(),
		reg:    reg,
		cache:  cache,
		prov:   prov,
		db:     db,
	}
	return s, nil
}

// MountHandlers installs the middleware chain and routes.
func (s *AuditServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	s.Router.Use(commonmiddleware.SetTimeout(config.Config().GetDefaultRequestTimeoutOrDefault()))
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		}))
	}

	s.Router.Route("/clients", func(r chi.Router) {
		r.Post("/", s.onboardClient)
		r.Get("/", s.listClients)
		r.Route("/{clientID}", func(r chi.Router) {
			r.Get("/", s.getClient)
			r.Put("/", s.updateClient)
			r.Delete("/", s.deleteClient)
			r.Put("/status", s.updateClientStatus)
		})
	})

	// portal routes run behind the resolver; downstream handlers find
	// the tenant pool in the request context
	s.Router.Route("/portal", func(r chi.Router) {
		r.Use(s.ClientResolver)
		r.Get("/ping", s.portalPing)
	})

	s.Router.Get("/version", s.getVersion)
	s.Router.Get("/ready", s.getReadiness)
}

type getVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *AuditServer) getVersion(w http.ResponseWriter, r *http.Request) {
	rsp := &getVersionRsp{
		ServerVersion: "Attestra Audit Server: " + auditcommon.ServerVersion,
		ApiVersion:    auditcommon.ApiVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *AuditServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("control-plane database unreachable during readiness check")
		httpx.SendJsonRsp(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database connection failed",
		})
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// portalPing verifies the resolved tenant pool with a round-trip query.
func (s *AuditServer) portalPing(w http.ResponseWriter, r *http.Request) {
	h := tenantpool.HandleFromContext(r.Context())
	if h == nil {
		httpx.ErrApplicationError("no tenant connection resolved").Send(w)
		return
	}
	if err := h.PingContext(r.Context()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("tenant pool probe failed")
		httpx.ErrServiceUnavailable("tenant database unreachable").Send(w)
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status":   "ok",
		"clientId": auditcommon.GetClientID(r.Context()).String(),
	})
}
