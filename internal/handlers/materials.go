package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-desk/internal/apperr"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/httpx"
	"github.com/ukydev/service-desk/internal/models"
)

// MaterialHandler serves the material catalog.
type MaterialHandler struct {
	materials db.MaterialCollection
	log       logrus.FieldLogger
}

// NewMaterialHandler creates a MaterialHandler.
func NewMaterialHandler(materials db.MaterialCollection, log logrus.FieldLogger) *MaterialHandler {
	return &MaterialHandler{materials: materials, log: loggerOrStandard(log)}
}

// List returns the whole catalog.
func (h *MaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	materials, err := h.materials.FindMaterials(r.Context())
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "", materials)
}

// Get returns one material by id.
func (h *MaterialHandler) Get(w http.ResponseWriter, r *http.Request) {
	material, err := h.materials.FindMaterialByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "", material)
}

// LowStock lists materials at or below their minimum stock.
func (h *MaterialHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	materials, err := h.materials.FindLowStockMaterials(r.Context())
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "", materials)
}

// ByCategory lists the materials of the category in the URL.
func (h *MaterialHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	materials, err := h.materials.FindMaterialsByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "", materials)
}

// Create adds a material to the catalog. Code and name must be unused.
func (h *MaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	material, ok := h.decode(w, r)
	if !ok {
		return
	}
	if !h.checkUnique(w, r, material, "") {
		return
	}
	if err := h.materials.InsertMaterial(r.Context(), &material); err != nil {
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return
	}
	h.log.WithField("material_id", material.ID.Hex()).Info("Created material")
	httpx.WriteJSON(w, http.StatusCreated, "Material created", material)
}

// Update replaces the catalog data. Prices already frozen into orders do not change.
func (h *MaterialHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	material, ok := h.decode(w, r)
	if !ok {
		return
	}
	if !h.checkUnique(w, r, material, id) {
		return
	}
	if err := h.materials.UpdateMaterial(r.Context(), id, material); err != nil {
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return
	}
	updated, err := h.materials.FindMaterialByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "Material updated", updated)
}

// Delete removes a material from the catalog.
func (h *MaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.materials.DeleteMaterial(r.Context(), id); err != nil {
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return
	}
	h.log.WithField("material_id", id).Info("Deleted material")
	httpx.WriteJSON(w, http.StatusOK, "Material deleted", nil)
}

// AdjustStock moves the stock by the requested delta. The stock never goes below zero.
func (h *MaterialHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req models.StockAdjustment
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if req.Delta == 0 {
		httpx.WriteAppError(w, apperr.Validation("delta must not be zero"))
		return
	}
	material, err := h.materials.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"material_id": material.ID.Hex(),
		"delta":       req.Delta,
		"stock":       material.StockQuantity,
	}).Info("Adjusted material stock")
	httpx.WriteJSON(w, http.StatusOK, "Stock updated", material)
}

// checkUnique writes 409 when another material already uses the code or name.
func (h *MaterialHandler) checkUnique(w http.ResponseWriter, r *http.Request, material models.Material, excludeID string) bool {
	_, err := h.materials.FindDuplicateMaterial(r.Context(), material.Code, material.Name, excludeID)
	switch {
	case err == nil:
		httpx.WriteAppError(w, apperr.AlreadyExists("Material with this code or name"))
		return false
	case errors.Is(err, db.ErrNotFound):
		return true
	default:
		writeStoreError(w, h.log, apperr.EntityMaterial, err)
		return false
	}
}

func (h *MaterialHandler) decode(w http.ResponseWriter, r *http.Request) (models.Material, bool) {
	var req models.MaterialRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return models.Material{}, false
	}
	switch {
	case strings.TrimSpace(req.Code) == "":
		httpx.WriteAppError(w, apperr.Validation("code is required"))
		return models.Material{}, false
	case strings.TrimSpace(req.Name) == "":
		httpx.WriteAppError(w, apperr.Validation("name is required"))
		return models.Material{}, false
	case req.UnitPrice < 0:
		httpx.WriteAppError(w, apperr.Validation("unit_price must not be negative"))
		return models.Material{}, false
	case req.StockQuantity < 0:
		httpx.WriteAppError(w, apperr.Validation("stock_quantity must not be negative"))
		return models.Material{}, false
	case req.MinimumStock < 0:
		httpx.WriteAppError(w, apperr.Validation("minimum_stock must not be negative"))
		return models.Material{}, false
	}
	return models.Material{
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Category:      strings.TrimSpace(req.Category),
		Unit:          req.Unit,
		UnitPrice:     req.UnitPrice,
		StockQuantity: req.StockQuantity,
		MinimumStock:  req.MinimumStock,
		Disabled:      req.Disabled,
	}, true
}
