package db

import (
	"context"
	"time"

	"github.com/ukydev/service-desk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMaterialCollection implements MaterialCollection for MongoDB.
type MongoMaterialCollection struct {
	Collection *mongo.Collection
}

// InsertMaterial inserts a material and sets its ID and timestamps.
func (c *MongoMaterialCollection) InsertMaterial(ctx context.Context, material *models.Material) error {
	if c.Collection == nil {
		return errNilCollection
	}
	now := time.Now().UTC()
	material.ID = primitive.NewObjectID()
	material.CreatedAt = now
	material.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, material)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

// FindMaterials lists the catalog ordered by name.
func (c *MongoMaterialCollection) FindMaterials(ctx context.Context) ([]models.Material, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.Material](ctx, c.Collection, bson.M{}, opts)
}

// FindMaterialByID finds a material by its ID.
func (c *MongoMaterialCollection) FindMaterialByID(ctx context.Context, id string) (*models.Material, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var material models.Material
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&material); err != nil {
		return nil, notFound(err)
	}
	return &material, nil
}

// UpdateMaterial overwrites the editable fields of a material.
func (c *MongoMaterialCollection) UpdateMaterial(ctx context.Context, id string, material models.Material) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"code":           material.Code,
		"name":           material.Name,
		"description":    material.Description,
		"category":       material.Category,
		"unit":           material.Unit,
		"unit_price":     material.UnitPrice,
		"stock_quantity": material.StockQuantity,
		"minimum_stock":  material.MinimumStock,
		"disabled":       material.Disabled,
		"updated_at":     time.Now().UTC(),
	}})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMaterial deletes a material by its ID. Orders keep their line items.
func (c *MongoMaterialCollection) DeleteMaterial(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock atomically moves the stock by delta. The filter refuses a
// result below zero, so two concurrent withdrawals cannot overdraw.
func (c *MongoMaterialCollection) AdjustStock(ctx context.Context, id string, delta float64) (*models.Material, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid}
	if delta < 0 {
		filter["stock_quantity"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"stock_quantity": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var material models.Material
	err = c.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&material)
	if err == nil {
		return &material, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}
	count, err := c.Collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrInsufficientStock
}

// FindLowStockMaterials lists materials whose stock is at or below their minimum.
func (c *MongoMaterialCollection) FindLowStockMaterials(ctx context.Context) ([]models.Material, error) {
	filter := bson.M{"$expr": bson.M{"$lte": bson.A{"$stock_quantity", "$minimum_stock"}}}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.Material](ctx, c.Collection, filter, opts)
}

// FindMaterialsByCategory lists the materials of one category ordered by name.
func (c *MongoMaterialCollection) FindMaterialsByCategory(ctx context.Context, category string) ([]models.Material, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.Material](ctx, c.Collection, bson.M{"category": category}, opts)
}

// FindDuplicateMaterial returns a material other than excludeID that already
// uses code or name, or ErrNotFound.
func (c *MongoMaterialCollection) FindDuplicateMaterial(ctx context.Context, code, name, excludeID string) (*models.Material, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	filter := bson.M{"$or": bson.A{bson.M{"code": code}, bson.M{"name": name}}}
	if excludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}
	var material models.Material
	if err := c.Collection.FindOne(ctx, filter).Decode(&material); err != nil {
		return nil, notFound(err)
	}
	return &material, nil
}
