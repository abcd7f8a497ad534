package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-desk/internal/apperr"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/httpx"
	"github.com/ukydev/service-desk/internal/models"
)

// ClientHandler serves the client registry.
type ClientHandler struct {
	clients db.ClientCollection
	log     logrus.FieldLogger
}

// NewClientHandler creates a ClientHandler.
func NewClientHandler(clients db.ClientCollection, log logrus.FieldLogger) *ClientHandler {
	return &ClientHandler{clients: clients, log: loggerOrStandard(log)}
}

// List returns every client.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.FindClients(r.Context())
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityClient, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "", clients)
}

// Get returns one client by id.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	client, err := h.clients.FindClientByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityClient, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "", client)
}

// Create registers a new client.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	client, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.clients.InsertClient(r.Context(), &client); err != nil {
		writeStoreError(w, h.log, apperr.EntityClient, err)
		return
	}
	h.log.WithField("client_id", client.ID.Hex()).Info("Created client")
	httpx.WriteJSON(w, http.StatusCreated, "Client created", client)
}

// Update replaces the editable fields of a client.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	client, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.clients.UpdateClient(r.Context(), id, client); err != nil {
		writeStoreError(w, h.log, apperr.EntityClient, err)
		return
	}
	updated, err := h.clients.FindClientByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityClient, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "Client updated", updated)
}

// Delete removes a client.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.clients.DeleteClient(r.Context(), id); err != nil {
		writeStoreError(w, h.log, apperr.EntityClient, err)
		return
	}
	h.log.WithField("client_id", id).Info("Deleted client")
	httpx.WriteJSON(w, http.StatusOK, "Client deleted", nil)
}

func (h *ClientHandler) decode(w http.ResponseWriter, r *http.Request) (models.Client, bool) {
	var req models.ClientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return models.Client{}, false
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteAppError(w, apperr.Validation("name is required"))
		return models.Client{}, false
	}
	return models.Client{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Phone:    req.Phone,
		Document: req.Document,
		Address:  req.Address,
		City:     req.City,
		State:    req.State,
		ZipCode:  req.ZipCode,
		Disabled: req.Disabled,
	}, true
}
