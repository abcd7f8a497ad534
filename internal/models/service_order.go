package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the state of a service order.
type OrderStatus string

const (
	StatusOpen       OrderStatus = "OPEN"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusClosed     OrderStatus = "CLOSED"
)

// IsValidStatus checks if a status is one of the known order states.
func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	default:
		return false
	}
}

// ServiceOrderMaterial is a material line item embedded in a service order.
// It has no identity of its own; MaterialID may repeat within one order.
type ServiceOrderMaterial struct {
	MaterialID primitive.ObjectID `bson:"material_id" json:"material_id"`
	Quantity   float64            `bson:"quantity" json:"quantity"`
	UnitPrice  *float64           `bson:"unit_price,omitempty" json:"unit_price,omitempty"`
	TotalPrice float64            `bson:"total_price" json:"total_price"`
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Recalculate refreshes TotalPrice from Quantity and UnitPrice.
func (m *ServiceOrderMaterial) Recalculate() {
	if m.UnitPrice == nil {
		m.TotalPrice = 0
		return
	}
	m.TotalPrice = m.Quantity * *m.UnitPrice
}

// ServiceOrder is the aggregate root: the order together with its line items.
type ServiceOrder struct {
	ID             primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	OrderNumber    string                 `bson:"order_number" json:"order_number"`
	Sequence       int64                  `bson:"order_seq" json:"-"`
	Title          string                 `bson:"title" json:"title"`
	Description    string                 `bson:"description" json:"description"`
	Status         OrderStatus            `bson:"status" json:"status"`
	ClientID       primitive.ObjectID     `bson:"client_id" json:"client_id"`
	AssignedToID   *primitive.ObjectID    `bson:"assigned_to_id,omitempty" json:"assigned_to_id,omitempty"`
	StartDate      *time.Time             `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate        *time.Time             `bson:"end_date,omitempty" json:"end_date,omitempty"`
	EstimatedHours *float64               `bson:"estimated_hours,omitempty" json:"estimated_hours,omitempty"`
	ActualHours    *float64               `bson:"actual_hours,omitempty" json:"actual_hours,omitempty"`
	Notes          []string               `bson:"notes" json:"notes"`
	Materials      []ServiceOrderMaterial `bson:"materials" json:"materials"`
	Revision       int64                  `bson:"revision" json:"-"`
	CreatedAt      time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt      *time.Time             `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ServiceOrderMaterialInput describes a line item supplied when creating an order.
type ServiceOrderMaterialInput struct {
	MaterialID string   `json:"material_id"`
	Quantity   float64  `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// CreateServiceOrderRequest is the payload for opening a service order.
type CreateServiceOrderRequest struct {
	Title          string                      `json:"title"`
	Description    string                      `json:"description"`
	ClientID       string                      `json:"client_id"`
	AssignedToID   *string                     `json:"assigned_to_id,omitempty"`
	StartDate      *time.Time                  `json:"start_date,omitempty"`
	EndDate        *time.Time                  `json:"end_date,omitempty"`
	EstimatedHours *float64                    `json:"estimated_hours,omitempty"`
	ActualHours    *float64                    `json:"actual_hours,omitempty"`
	Notes          []string                    `json:"notes,omitempty"`
	Materials      []ServiceOrderMaterialInput `json:"materials,omitempty"`
}

// UpdateServiceOrderRequest is a partial update; nil fields are left unchanged.
type UpdateServiceOrderRequest struct {
	Title          *string      `json:"title,omitempty"`
	Description    *string      `json:"description,omitempty"`
	Status         *OrderStatus `json:"status,omitempty"`
	ClientID       *string      `json:"client_id,omitempty"`
	AssignedToID   *string      `json:"assigned_to_id,omitempty"`
	StartDate      *time.Time   `json:"start_date,omitempty"`
	EndDate        *time.Time   `json:"end_date,omitempty"`
	EstimatedHours *float64     `json:"estimated_hours,omitempty"`
	ActualHours    *float64     `json:"actual_hours,omitempty"`
	Notes          *[]string    `json:"notes,omitempty"`
}

// AddMaterialRequest appends a line item to an order.
type AddMaterialRequest struct {
	MaterialID string   `json:"material_id"`
	Quantity   float64  `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// UpdateMaterialRequest changes the first line item of a material; nil fields are left unchanged.
type UpdateMaterialRequest struct {
	Quantity  *float64 `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

// ServiceOrderMaterialResponse is the external shape of a line item.
type ServiceOrderMaterialResponse struct {
	MaterialID string   `json:"material_id"`
	Quantity   float64  `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price"`
	TotalPrice float64  `json:"total_price"`
	Notes      string   `json:"notes,omitempty"`
}

// MaterialDetail is a line item enriched with catalog data.
type MaterialDetail struct {
	ServiceOrderMaterialResponse
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// ServiceOrderResponse is the external shape of a service order.
type ServiceOrderResponse struct {
	ID             string                         `json:"id"`
	OrderNumber    string                         `json:"order_number"`
	Title          string                         `json:"title"`
	Description    string                         `json:"description"`
	Status         OrderStatus                    `json:"status"`
	ClientID       string                         `json:"client_id"`
	AssignedToID   *string                        `json:"assigned_to_id"`
	StartDate      *string                        `json:"start_date"`
	EndDate        *string                        `json:"end_date"`
	EstimatedHours *float64                       `json:"estimated_hours"`
	ActualHours    *float64                       `json:"actual_hours"`
	Notes          []string                       `json:"notes"`
	Materials      []ServiceOrderMaterialResponse `json:"materials"`
	CreatedAt      string                         `json:"created_at"`
	UpdatedAt      *string                        `json:"updated_at"`
}
