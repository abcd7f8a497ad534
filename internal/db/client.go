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

// MongoClientCollection implements ClientCollection for MongoDB.
type MongoClientCollection struct {
	Collection *mongo.Collection
}

// InsertClient inserts a client and sets its ID and timestamps.
func (c *MongoClientCollection) InsertClient(ctx context.Context, client *models.Client) error {
	if c.Collection == nil {
		return errNilCollection
	}
	now := time.Now().UTC()
	client.ID = primitive.NewObjectID()
	client.CreatedAt = now
	client.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, client)
	return err
}

// FindClients lists clients ordered by name.
func (c *MongoClientCollection) FindClients(ctx context.Context) ([]models.Client, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.Client](ctx, c.Collection, bson.M{}, opts)
}

// FindClientByID finds a client by its ID.
func (c *MongoClientCollection) FindClientByID(ctx context.Context, id string) (*models.Client, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var client models.Client
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&client); err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}

// UpdateClient overwrites the editable fields of a client.
func (c *MongoClientCollection) UpdateClient(ctx context.Context, id string, client models.Client) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":       client.Name,
		"email":      client.Email,
		"phone":      client.Phone,
		"document":   client.Document,
		"address":    client.Address,
		"city":       client.City,
		"state":      client.State,
		"zip_code":   client.ZipCode,
		"disabled":   client.Disabled,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClient deletes a client by its ID.
func (c *MongoClientCollection) DeleteClient(ctx context.Context, id string) error {
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
