// Package orders implements the service order lifecycle: numbering, referential
// checks against clients, users and materials, and the embedded material line items.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-desk/internal/apperr"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/events"
	"github.com/ukydev/service-desk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientLookup resolves clients by id.
type ClientLookup interface {
	FindClientByID(ctx context.Context, id string) (*models.Client, error)
}

// UserLookup resolves users by id.
type UserLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// MaterialLookup resolves catalog materials by id.
type MaterialLookup interface {
	FindMaterialByID(ctx context.Context, id string) (*models.Material, error)
}

// Deps bundles the collaborators of a Service.
type Deps struct {
	Orders    db.ServiceOrderCollection
	Clients   ClientLookup
	Users     UserLookup
	Materials MaterialLookup
	Publisher events.Publisher
	Logger    logrus.FieldLogger
	Clock     func() time.Time
}

// Service manages service orders. It holds no per-request state and is safe
// for concurrent use; concurrent writes to one order are detected by revision.
type Service struct {
	orders    db.ServiceOrderCollection
	clients   ClientLookup
	users     UserLookup
	materials MaterialLookup
	publisher events.Publisher
	log       logrus.FieldLogger
	clock     func() time.Time
}

// NewService validates deps and builds a Service.
func NewService(deps Deps) (*Service, error) {
	if deps.Orders == nil {
		return nil, errors.New("orders service: order repository is required")
	}
	if deps.Clients == nil || deps.Users == nil || deps.Materials == nil {
		return nil, errors.New("orders service: client, user and material lookups are required")
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		orders:    deps.Orders,
		clients:   deps.Clients,
		users:     deps.Users,
		materials: deps.Materials,
		publisher: publisher,
		log:       logger,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// Create opens a new order for an existing client. Every referenced material
// is checked and priced before anything is written.
func (s *Service) Create(ctx context.Context, req models.CreateServiceOrderRequest) (*models.ServiceOrderResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	if err := validateHours(req.EstimatedHours, req.ActualHours); err != nil {
		return nil, err
	}

	client, err := s.resolveClient(ctx, req.ClientID)
	if err != nil {
		return nil, s.fail("create", err)
	}

	var assignedTo *primitive.ObjectID
	if req.AssignedToID != nil {
		user, err := s.resolveUser(ctx, *req.AssignedToID)
		if err != nil {
			return nil, s.fail("create", err)
		}
		assignedTo = &user.ID
	}

	items := make([]models.ServiceOrderMaterial, 0, len(req.Materials))
	for _, input := range req.Materials {
		material, err := s.resolveMaterial(ctx, input.MaterialID)
		if err != nil {
			return nil, s.fail("create", err)
		}
		item, err := newLineItem(material, input.Quantity, input.UnitPrice, input.Notes)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	last, err := s.orders.LastOrderNumber(ctx)
	if err != nil {
		return nil, s.fail("create", err)
	}
	number := NextOrderNumber(last)
	seq, _ := OrderSequence(number)

	notes := req.Notes
	if notes == nil {
		notes = []string{}
	}
	order := &models.ServiceOrder{
		OrderNumber:    number,
		Sequence:       seq,
		Title:          req.Title,
		Description:    req.Description,
		Status:         models.StatusOpen,
		ClientID:       client.ID,
		AssignedToID:   assignedTo,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		Notes:          notes,
		Materials:      items,
		CreatedAt:      s.clock(),
	}
	if err := s.orders.InsertServiceOrder(ctx, order); err != nil {
		return nil, s.fail("create", err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id":     order.ID.Hex(),
		"order_number": order.OrderNumber,
		"client_id":    order.ClientID.Hex(),
	}).Info("Created service order")
	s.publish(ctx, events.OrderCreated, order)

	resp := Project(order)
	return &resp, nil
}

// Update applies the fields present in patch. A new client or assignee must exist.
func (s *Service) Update(ctx context.Context, id string, patch models.UpdateServiceOrderRequest) (*models.ServiceOrderResponse, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, s.fail("update", err)
	}
	if err := validateHours(patch.EstimatedHours, patch.ActualHours); err != nil {
		return nil, err
	}

	fields := bson.M{}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperr.Validation("title must not be empty")
		}
		order.Title = *patch.Title
		fields["title"] = order.Title
	}
	if patch.Description != nil {
		order.Description = *patch.Description
		fields["description"] = order.Description
	}
	if patch.Status != nil {
		if !models.IsValidStatus(*patch.Status) {
			return nil, apperr.Validation("invalid status %q", *patch.Status)
		}
		order.Status = *patch.Status
		fields["status"] = order.Status
	}
	if patch.ClientID != nil {
		client, err := s.resolveClient(ctx, *patch.ClientID)
		if err != nil {
			return nil, s.fail("update", err)
		}
		order.ClientID = client.ID
		fields["client_id"] = client.ID
	}
	if patch.AssignedToID != nil {
		user, err := s.resolveUser(ctx, *patch.AssignedToID)
		if err != nil {
			return nil, s.fail("update", err)
		}
		order.AssignedToID = &user.ID
		fields["assigned_to_id"] = user.ID
	}
	if patch.StartDate != nil {
		order.StartDate = patch.StartDate
		fields["start_date"] = *patch.StartDate
	}
	if patch.EndDate != nil {
		order.EndDate = patch.EndDate
		fields["end_date"] = *patch.EndDate
	}
	if patch.EstimatedHours != nil {
		order.EstimatedHours = patch.EstimatedHours
		fields["estimated_hours"] = *patch.EstimatedHours
	}
	if patch.ActualHours != nil {
		order.ActualHours = patch.ActualHours
		fields["actual_hours"] = *patch.ActualHours
	}
	if patch.Notes != nil {
		notes := *patch.Notes
		if notes == nil {
			notes = []string{}
		}
		order.Notes = notes
		fields["notes"] = notes
	}

	if err := s.save(ctx, order, fields); err != nil {
		return nil, s.fail("update", err)
	}
	s.publish(ctx, events.OrderUpdated, order)

	resp := Project(order)
	return &resp, nil
}

// Delete removes an order together with its line items.
func (s *Service) Delete(ctx context.Context, id string) error {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return s.fail("delete", err)
	}
	if err := s.orders.DeleteServiceOrder(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound(apperr.EntityServiceOrder)
		}
		return s.fail("delete", err)
	}

	s.log.WithField("order_number", order.OrderNumber).Info("Deleted service order")
	s.publish(ctx, events.OrderDeleted, order)
	return nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (*models.ServiceOrderResponse, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, s.fail("get", err)
	}
	resp := Project(order)
	return &resp, nil
}

// ListAll returns every order.
func (s *Service) ListAll(ctx context.Context) ([]models.ServiceOrderResponse, error) {
	found, err := s.orders.FindServiceOrders(ctx)
	if err != nil {
		return nil, s.fail("list", err)
	}
	return ProjectAll(found), nil
}

// ListByClient returns the orders of a client, or an empty list.
func (s *Service) ListByClient(ctx context.Context, clientID string) ([]models.ServiceOrderResponse, error) {
	found, err := s.orders.FindServiceOrdersByClient(ctx, clientID)
	if err != nil {
		return nil, s.fail("list by client", err)
	}
	return ProjectAll(found), nil
}

// ListByAssignedUser returns the orders assigned to a user, or an empty list.
func (s *Service) ListByAssignedUser(ctx context.Context, userID string) ([]models.ServiceOrderResponse, error) {
	found, err := s.orders.FindServiceOrdersByAssignedUser(ctx, userID)
	if err != nil {
		return nil, s.fail("list by assigned user", err)
	}
	return ProjectAll(found), nil
}

func (s *Service) loadOrder(ctx context.Context, id string) (*models.ServiceOrder, error) {
	order, err := s.orders.FindServiceOrderByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound(apperr.EntityServiceOrder)
	}
	return order, err
}

func (s *Service) resolveClient(ctx context.Context, id string) (*models.Client, error) {
	client, err := s.clients.FindClientByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound(apperr.EntityClient)
	}
	return client, err
}

func (s *Service) resolveUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound(apperr.EntityUser)
	}
	return user, err
}

func (s *Service) resolveMaterial(ctx context.Context, id string) (*models.Material, error) {
	material, err := s.materials.FindMaterialByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound(apperr.EntityMaterial)
	}
	return material, err
}

// save writes fields plus a fresh updated_at, guarded by the revision the order was read at.
func (s *Service) save(ctx context.Context, order *models.ServiceOrder, fields bson.M) error {
	now := s.clock()
	fields["updated_at"] = now
	if err := s.orders.UpdateServiceOrder(ctx, order.ID.Hex(), order.Revision, fields); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound(apperr.EntityServiceOrder)
		}
		return err
	}
	order.Revision++
	order.UpdatedAt = &now
	return nil
}

func (s *Service) publish(ctx context.Context, eventType events.Type, order *models.ServiceOrder) {
	event := events.New(eventType, order.ID.Hex(), order.OrderNumber, string(order.Status), s.clock())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event_type":   eventType,
			"order_number": order.OrderNumber,
		}).Warn("Failed to publish service order event")
	}
}

// fail passes domain errors through and hides everything else behind ErrInternal.
func (s *Service) fail(op string, err error) error {
	switch {
	case apperr.IsDomain(err):
		return err
	case errors.Is(err, db.ErrStaleRevision), errors.Is(err, db.ErrDuplicateKey):
		s.log.WithError(err).WithField("operation", op).Warn("Service order write conflict")
		return apperr.ErrConflict
	default:
		s.log.WithError(err).WithField("operation", op).Error("Service order operation failed")
		return apperr.ErrInternal
	}
}

func validateHours(estimated, actual *float64) error {
	if estimated != nil && *estimated < 0 {
		return apperr.Validation("estimated_hours must not be negative")
	}
	if actual != nil && *actual < 0 {
		return apperr.Validation("actual_hours must not be negative")
	}
	return nil
}
