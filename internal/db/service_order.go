package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/service-desk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoServiceOrderCollection implements ServiceOrderCollection for MongoDB.
type MongoServiceOrderCollection struct {
	Collection *mongo.Collection
}

// InsertServiceOrder inserts a new order and assigns its ID.
func (c *MongoServiceOrderCollection) InsertServiceOrder(ctx context.Context, order *models.ServiceOrder) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if _, err := c.Collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("order number %s: %w", order.OrderNumber, ErrDuplicateKey)
		}
		return err
	}
	return nil
}

// FindServiceOrderByID finds an order by its ID.
func (c *MongoServiceOrderCollection) FindServiceOrderByID(ctx context.Context, id string) (*models.ServiceOrder, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var order models.ServiceOrder
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// UpdateServiceOrder sets fields on the order only if its revision still
// equals revision, and bumps the revision in the same write.
func (c *MongoServiceOrderCollection) UpdateServiceOrder(ctx context.Context, id string, revision int64, fields bson.M) error {
	if c.Collection == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": oid, "revision": revision},
		bson.M{"$set": fields, "$inc": bson.M{"revision": 1}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}
	count, err := c.Collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStaleRevision
}

// DeleteServiceOrder deletes an order by its ID.
func (c *MongoServiceOrderCollection) DeleteServiceOrder(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection
	}
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

// FindServiceOrders lists every order, oldest number first.
func (c *MongoServiceOrderCollection) FindServiceOrders(ctx context.Context) ([]models.ServiceOrder, error) {
	return c.find(ctx, bson.M{})
}

// FindServiceOrdersByClient lists the orders opened for a client.
func (c *MongoServiceOrderCollection) FindServiceOrdersByClient(ctx context.Context, clientID string) ([]models.ServiceOrder, error) {
	return c.findByRef(ctx, "client_id", clientID)
}

// FindServiceOrdersByAssignedUser lists the orders assigned to a user.
func (c *MongoServiceOrderCollection) FindServiceOrdersByAssignedUser(ctx context.Context, userID string) ([]models.ServiceOrder, error) {
	return c.findByRef(ctx, "assigned_to_id", userID)
}

func (c *MongoServiceOrderCollection) findByRef(ctx context.Context, field, id string) ([]models.ServiceOrder, error) {
	oid, err := objectID(id)
	if errors.Is(err, ErrNotFound) {
		return []models.ServiceOrder{}, nil
	}
	return c.find(ctx, bson.M{field: oid})
}

func (c *MongoServiceOrderCollection) find(ctx context.Context, filter bson.M) ([]models.ServiceOrder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order_seq", Value: 1}})
	return findAll[models.ServiceOrder](ctx, c.Collection, filter, opts)
}

// LastOrderNumber returns the highest issued order number, or "" when there are no orders.
// Sorting on the numeric sequence keeps OS-10000 after OS-9999.
func (c *MongoServiceOrderCollection) LastOrderNumber(ctx context.Context) (string, error) {
	if c.Collection == nil {
		return "", errNilCollection
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "order_seq", Value: -1}, {Key: "order_number", Value: -1}}).
		SetProjection(bson.M{"order_number": 1})

	var last struct {
		OrderNumber string `bson:"order_number"`
	}
	err := c.Collection.FindOne(ctx, bson.M{}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return last.OrderNumber, nil
}
