package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Material is a catalog item that can be consumed by service orders.
type Material struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code          string             `bson:"code" json:"code"` // internal catalog code, unique
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Category      string             `bson:"category" json:"category"`
	Unit          string             `bson:"unit" json:"unit"` // "un", "m", "kg", "l"
	UnitPrice     float64            `bson:"unit_price" json:"unit_price"`
	StockQuantity float64            `bson:"stock_quantity" json:"stock_quantity"`
	MinimumStock  float64            `bson:"minimum_stock" json:"minimum_stock"`
	Disabled      bool               `bson:"disabled" json:"disabled"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsLowStock reports whether the stock has reached the minimum.
func (m *Material) IsLowStock() bool {
	return m.StockQuantity <= m.MinimumStock
}

// MaterialRequest is the payload for creating or replacing a material.
type MaterialRequest struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price"`
	StockQuantity float64 `json:"stock_quantity"`
	MinimumStock  float64 `json:"minimum_stock"`
	Disabled      bool    `json:"disabled"`
}

// StockAdjustment moves the stock of a material by Delta units.
type StockAdjustment struct {
	Delta float64 `json:"delta"`
}
