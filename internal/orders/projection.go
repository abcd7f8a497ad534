package orders

import (
	"time"

	"github.com/ukydev/service-desk/internal/models"
)

// Project converts an order to its external shape: hex ids and RFC3339 timestamps.
func Project(order *models.ServiceOrder) models.ServiceOrderResponse {
	resp := models.ServiceOrderResponse{
		ID:             order.ID.Hex(),
		OrderNumber:    order.OrderNumber,
		Title:          order.Title,
		Description:    order.Description,
		Status:         order.Status,
		ClientID:       order.ClientID.Hex(),
		StartDate:      formatOptionalTime(order.StartDate),
		EndDate:        formatOptionalTime(order.EndDate),
		EstimatedHours: order.EstimatedHours,
		ActualHours:    order.ActualHours,
		Notes:          order.Notes,
		Materials:      make([]models.ServiceOrderMaterialResponse, 0, len(order.Materials)),
		CreatedAt:      formatTime(order.CreatedAt),
		UpdatedAt:      formatOptionalTime(order.UpdatedAt),
	}
	if resp.Notes == nil {
		resp.Notes = []string{}
	}
	if order.AssignedToID != nil {
		assigned := order.AssignedToID.Hex()
		resp.AssignedToID = &assigned
	}
	for _, item := range order.Materials {
		resp.Materials = append(resp.Materials, projectMaterial(item))
	}
	return resp
}

// ProjectAll projects a list of orders; the result is never nil.
func ProjectAll(orders []models.ServiceOrder) []models.ServiceOrderResponse {
	out := make([]models.ServiceOrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, Project(&orders[i]))
	}
	return out
}

func projectMaterial(item models.ServiceOrderMaterial) models.ServiceOrderMaterialResponse {
	return models.ServiceOrderMaterialResponse{
		MaterialID: item.MaterialID.Hex(),
		Quantity:   item.Quantity,
		UnitPrice:  item.UnitPrice,
		TotalPrice: item.TotalPrice,
		Notes:      item.Notes,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
