package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/service-desk/internal/httpx"
	"github.com/ukydev/service-desk/internal/models"
)

// ServiceOrderService is the lifecycle engine behind the service order routes.
type ServiceOrderService interface {
	Create(ctx context.Context, req models.CreateServiceOrderRequest) (*models.ServiceOrderResponse, error)
	Update(ctx context.Context, id string, patch models.UpdateServiceOrderRequest) (*models.ServiceOrderResponse, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.ServiceOrderResponse, error)
	ListAll(ctx context.Context) ([]models.ServiceOrderResponse, error)
	ListByClient(ctx context.Context, clientID string) ([]models.ServiceOrderResponse, error)
	ListByAssignedUser(ctx context.Context, userID string) ([]models.ServiceOrderResponse, error)

	AddMaterial(ctx context.Context, orderID string, req models.AddMaterialRequest) (*models.ServiceOrderResponse, error)
	RemoveMaterial(ctx context.Context, orderID, materialID string) (*models.ServiceOrderResponse, error)
	UpdateMaterial(ctx context.Context, orderID, materialID string, req models.UpdateMaterialRequest) (*models.ServiceOrderResponse, error)
	ListMaterialsWithDetails(ctx context.Context, orderID string) ([]models.MaterialDetail, error)
}

// ServiceOrderHandler translates HTTP requests into lifecycle operations.
// Errors from the service are already part of the apperr taxonomy.
type ServiceOrderHandler struct {
	orders ServiceOrderService
}

// NewServiceOrderHandler creates a ServiceOrderHandler.
func NewServiceOrderHandler(orders ServiceOrderService) *ServiceOrderHandler {
	return &ServiceOrderHandler{orders: orders}
}

// List returns every service order.
func (h *ServiceOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	data, err := h.orders.ListAll(r.Context())
	respond(w, http.StatusOK, "", data, err)
}

// ListByClient returns the orders opened for a client.
func (h *ServiceOrderHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	data, err := h.orders.ListByClient(r.Context(), chi.URLParam(r, "clientID"))
	respond(w, http.StatusOK, "", data, err)
}

// ListByAssignedUser returns the orders assigned to a user.
func (h *ServiceOrderHandler) ListByAssignedUser(w http.ResponseWriter, r *http.Request) {
	data, err := h.orders.ListByAssignedUser(r.Context(), chi.URLParam(r, "userID"))
	respond(w, http.StatusOK, "", data, err)
}

// Get returns one service order.
func (h *ServiceOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	respond(w, http.StatusOK, "", data, err)
}

// Create opens a service order.
func (h *ServiceOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateServiceOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	data, err := h.orders.Create(r.Context(), req)
	respond(w, http.StatusCreated, "Service order created", data, err)
}

// Update patches a service order.
func (h *ServiceOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.UpdateServiceOrderRequest
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	data, err := h.orders.Update(r.Context(), chi.URLParam(r, "id"), patch)
	respond(w, http.StatusOK, "Service order updated", data, err)
}

// Delete removes a service order.
func (h *ServiceOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "Service order deleted", nil)
}

// ListMaterials returns the line items with catalog details.
func (h *ServiceOrderHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	data, err := h.orders.ListMaterialsWithDetails(r.Context(), chi.URLParam(r, "id"))
	respond(w, http.StatusOK, "", data, err)
}

// AddMaterial appends a line item to an order.
func (h *ServiceOrderHandler) AddMaterial(w http.ResponseWriter, r *http.Request) {
	var req models.AddMaterialRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	data, err := h.orders.AddMaterial(r.Context(), chi.URLParam(r, "id"), req)
	respond(w, http.StatusCreated, "Material added", data, err)
}

// UpdateMaterial changes a line item of an order.
func (h *ServiceOrderHandler) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateMaterialRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	data, err := h.orders.UpdateMaterial(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "materialID"), req)
	respond(w, http.StatusOK, "Material updated", data, err)
}

// RemoveMaterial drops a material from an order.
func (h *ServiceOrderHandler) RemoveMaterial(w http.ResponseWriter, r *http.Request) {
	data, err := h.orders.RemoveMaterial(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "materialID"))
	respond(w, http.StatusOK, "Material removed", data, err)
}

// respond writes data on success and the mapped error otherwise.
func respond(w http.ResponseWriter, status int, message string, data any, err error) {
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, status, message, data)
}
