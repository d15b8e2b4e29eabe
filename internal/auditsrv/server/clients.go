package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/attestra/attestra/internal/auditsrv/provisioner"
	"github.com/attestra/attestra/internal/auditsrv/registry"
	"github.com/attestra/attestra/internal/common/httpx"
	"github.com/attestra/attestra/internal/common/uuid"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func v() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type onboardClientReq struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	POCEmail    string `json:"pocEmail" validate:"required,email"`
	EmailDomain string `json:"emailDomain" validate:"omitempty,fqdn"`
}

type updateClientReq struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	POCEmail    string `json:"pocEmail" validate:"required,email"`
	EmailDomain string `json:"emailDomain" validate:"omitempty,fqdn"`
}

type updateClientStatusReq struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended"`
}

type clientRsp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	POCEmail    string    `json:"pocEmail"`
	EmailDomain string    `json:"emailDomain,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toClientRsp(c *registry.Client) *clientRsp {
	return &clientRsp{
		ID:          c.ID.String(),
		Name:        c.Name,
		POCEmail:    c.POCEmail,
		EmailDomain: c.EmailDomain,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func decodeAndValidate(r *http.Request, dst any) *httpx.Error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return httpx.ErrInvalidRequest("malformed request body")
	}
	if err := v().Struct(dst); err != nil {
		return httpx.ErrInvalidRequest("invalid request: " + err.Error())
	}
	return nil
}

func clientIDParam(r *http.Request) (uuid.UUID, *httpx.Error) {
	clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		return uuid.Nil, httpx.ErrInvalidRequest("invalid client id")
	}
	return clientID, nil
}

// onboardClient provisions a new client: isolated database, role, and
// bucket, plus the registry records.
func (s *AuditServer) onboardClient(w http.ResponseWriter, r *http.Request) {
	var req onboardClientReq
	if herr := decodeAndValidate(r, &req); herr != nil {
		herr.Send(w)
		return
	}

	client, aerr := s.prov.ProvisionClient(r.Context(), provisioner.ProvisionRequest{
		Name:        req.Name,
		POCEmail:    req.POCEmail,
		EmailDomain: req.EmailDomain,
	})
	if aerr != nil {
		httpx.SendError(w, aerr)
		return
	}

	httpx.SendJsonRsp(r.Context(), w, http.StatusCreated, toClientRsp(client), "/clients/"+client.ID.String())
}

func (s *AuditServer) listClients(w http.ResponseWriter, r *http.Request) {
	clients, aerr := s.reg.ListClients(r.Context())
	if aerr != nil {
		httpx.SendError(w, aerr)
		return
	}

	rsp := make([]*clientRsp, 0, len(clients))
	for _, c := range clients {
		rsp = append(rsp, toClientRsp(c))
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *AuditServer) getClient(w http.ResponseWriter, r *http.Request) {
	clientID, herr := clientIDParam(r)
	if herr != nil {
		herr.Send(w)
		return
	}

	client, aerr := s.reg.GetClient(r.Context(), clientID)
	if aerr != nil {
		httpx.SendError(w, aerr)
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, toClientRsp(client))
}

func (s *AuditServer) updateClient(w http.ResponseWriter, r *http.Request) {
	clientID, herr := clientIDParam(r)
	if herr != nil {
		herr.Send(w)
		return
	}

	var req updateClientReq
	if herr := decodeAndValidate(r, &req); herr != nil {
		herr.Send(w)
		return
	}

	client, aerr := s.reg.GetClient(r.Context(), clientID)
	if aerr != nil {
		httpx.SendError(w, aerr)
		return
	}
	client.Name = req.Name
	client.POCEmail = req.POCEmail
	client.EmailDomain = req.EmailDomain

	if aerr := s.reg.UpdateClient(r.Context(), client); aerr != nil {
		httpx.SendError(w, aerr)
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, toClientRsp(client))
}

func (s *AuditServer) updateClientStatus(w http.ResponseWriter, r *http.Request) {
	clientID, herr := clientIDParam(r)
	if herr != nil {
		herr.Send(w)
		return
	}

	var req updateClientStatusReq
	if herr := decodeAndValidate(r, &req); herr != nil {
		herr.Send(w)
		return
	}

	if aerr := s.reg.UpdateClientStatus(r.Context(), clientID, registry.ClientStatus(req.Status)); aerr != nil {
		httpx.SendError(w, aerr)
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"id":     clientID.String(),
		"status": req.Status,
	})
}

// deleteClient deprovisions the client: pool eviction, best-effort
// infrastructure teardown, and authoritative registry deletion.
func (s *AuditServer) deleteClient(w http.ResponseWriter, r *http.Request) {
	clientID, herr := clientIDParam(r)
	if herr != nil {
		herr.Send(w)
		return
	}

	if aerr := s.prov.DeprovisionClient(r.Context(), clientID); aerr != nil {
		httpx.SendError(w, aerr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
