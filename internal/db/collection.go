package db

import (
	"context"

	"github.com/ukydev/service-desk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ClientCollection defines the interface for client data operations.
type ClientCollection interface {
	InsertClient(ctx context.Context, client *models.Client) error
	FindClients(ctx context.Context) ([]models.Client, error)
	FindClientByID(ctx context.Context, id string) (*models.Client, error)
	UpdateClient(ctx context.Context, id string, client models.Client) error
	DeleteClient(ctx context.Context, id string) error
}

// MaterialCollection defines the interface for material catalog operations.
type MaterialCollection interface {
	InsertMaterial(ctx context.Context, material *models.Material) error
	FindMaterials(ctx context.Context) ([]models.Material, error)
	FindMaterialByID(ctx context.Context, id string) (*models.Material, error)
	UpdateMaterial(ctx context.Context, id string, material models.Material) error
	DeleteMaterial(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta float64) (*models.Material, error)
	FindLowStockMaterials(ctx context.Context) ([]models.Material, error)
	FindMaterialsByCategory(ctx context.Context, category string) ([]models.Material, error)
	FindDuplicateMaterial(ctx context.Context, code, name, excludeID string) (*models.Material, error)
}

// ServiceOrderCollection defines the persistence operations for service orders.
type ServiceOrderCollection interface {
	InsertServiceOrder(ctx context.Context, order *models.ServiceOrder) error
	FindServiceOrderByID(ctx context.Context, id string) (*models.ServiceOrder, error)
	UpdateServiceOrder(ctx context.Context, id string, revision int64, fields bson.M) error
	DeleteServiceOrder(ctx context.Context, id string) error
	FindServiceOrders(ctx context.Context) ([]models.ServiceOrder, error)
	FindServiceOrdersByClient(ctx context.Context, clientID string) ([]models.ServiceOrder, error)
	FindServiceOrdersByAssignedUser(ctx context.Context, userID string) ([]models.ServiceOrder, error)
	LastOrderNumber(ctx context.Context) (string, error)
}
