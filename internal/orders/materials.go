package orders

import (
	"context"
	"errors"

	"github.com/ukydev/service-desk/internal/apperr"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/events"
	"github.com/ukydev/service-desk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MissingMaterialName is shown for line items whose material was deleted from the catalog.
const MissingMaterialName = "Material not found"

// AddMaterial appends a line item. Without an explicit unit price the
// material's current catalog price is frozen into the item.
func (s *Service) AddMaterial(ctx context.Context, orderID string, req models.AddMaterialRequest) (*models.ServiceOrderResponse, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, s.fail("add material", err)
	}
	material, err := s.resolveMaterial(ctx, req.MaterialID)
	if err != nil {
		return nil, s.fail("add material", err)
	}
	item, err := newLineItem(material, req.Quantity, req.UnitPrice, req.Notes)
	if err != nil {
		return nil, err
	}

	order.Materials = append(order.Materials, item)
	return s.saveMaterials(ctx, "add material", order)
}

// RemoveMaterial drops every line item that references materialID.
func (s *Service) RemoveMaterial(ctx context.Context, orderID, materialID string) (*models.ServiceOrderResponse, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, s.fail("remove material", err)
	}
	oid, err := primitive.ObjectIDFromHex(materialID)
	if err != nil {
		return nil, apperr.ErrMaterialNotInOrder
	}

	kept := make([]models.ServiceOrderMaterial, 0, len(order.Materials))
	for _, item := range order.Materials {
		if item.MaterialID != oid {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(order.Materials) {
		return nil, apperr.ErrMaterialNotInOrder
	}

	order.Materials = kept
	return s.saveMaterials(ctx, "remove material", order)
}

// UpdateMaterial changes the first line item that references materialID.
// Only the fields present in req are applied; the total is recomputed.
func (s *Service) UpdateMaterial(ctx context.Context, orderID, materialID string, req models.UpdateMaterialRequest) (*models.ServiceOrderResponse, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, s.fail("update material", err)
	}
	oid, err := primitive.ObjectIDFromHex(materialID)
	if err != nil {
		return nil, apperr.ErrMaterialNotInOrder
	}

	idx := -1
	for i, item := range order.Materials {
		if item.MaterialID == oid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperr.ErrMaterialNotInOrder
	}

	item := &order.Materials[idx]
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, apperr.Validation("quantity must not be negative")
		}
		item.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return nil, apperr.Validation("unit_price must not be negative")
		}
		price := *req.UnitPrice
		item.UnitPrice = &price
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	item.Recalculate()

	return s.saveMaterials(ctx, "update material", order)
}

// ListMaterialsWithDetails returns the line items enriched with catalog name
// and unit. A material deleted from the catalog does not fail the listing.
func (s *Service) ListMaterialsWithDetails(ctx context.Context, orderID string) ([]models.MaterialDetail, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, s.fail("list materials", err)
	}

	catalog := make(map[string]*models.Material)
	details := make([]models.MaterialDetail, 0, len(order.Materials))
	for _, item := range order.Materials {
		id := item.MaterialID.Hex()
		material, seen := catalog[id]
		if !seen {
			material, err = s.materials.FindMaterialByID(ctx, id)
			if err != nil && !errors.Is(err, db.ErrNotFound) {
				return nil, s.fail("list materials", err)
			}
			catalog[id] = material
		}

		detail := models.MaterialDetail{ServiceOrderMaterialResponse: projectMaterial(item)}
		if material != nil {
			detail.Name = material.Name
			detail.Unit = material.Unit
		} else {
			detail.Name = MissingMaterialName
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *Service) saveMaterials(ctx context.Context, op string, order *models.ServiceOrder) (*models.ServiceOrderResponse, error) {
	if err := s.save(ctx, order, bson.M{"materials": order.Materials}); err != nil {
		return nil, s.fail(op, err)
	}
	s.publish(ctx, events.OrderMaterialsChanged, order)

	resp := Project(order)
	return &resp, nil
}

// newLineItem prices a line item, falling back to the catalog price.
func newLineItem(material *models.Material, quantity float64, unitPrice *float64, notes *string) (models.ServiceOrderMaterial, error) {
	if quantity < 0 {
		return models.ServiceOrderMaterial{}, apperr.Validation("quantity must not be negative")
	}
	price := material.UnitPrice
	if unitPrice != nil {
		if *unitPrice < 0 {
			return models.ServiceOrderMaterial{}, apperr.Validation("unit_price must not be negative")
		}
		price = *unitPrice
	}

	item := models.ServiceOrderMaterial{
		MaterialID: material.ID,
		Quantity:   quantity,
		UnitPrice:  &price,
	}
	if notes != nil {
		item.Notes = *notes
	}
	item.Recalculate()
	return item, nil
}
