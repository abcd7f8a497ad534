package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/events"
	"github.com/ukydev/service-desk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2026, 5, 4, 12, 30, 0, 0, time.UTC)

type MockClientLookup struct {
	mock.Mock
}

func (m *MockClientLookup) FindClientByID(ctx context.Context, id string) (*models.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockMaterialLookup struct {
	mock.Mock
}

func (m *MockMaterialLookup) FindMaterialByID(ctx context.Context, id string) (*models.Material, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Material), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// memoryOrders is an in-memory ServiceOrderCollection with the same revision
// semantics as the Mongo implementation. Documents are stored as BSON so
// callers never share slices with the store.
type memoryOrders struct {
	mu      sync.Mutex
	docs    map[string][]byte
	inserts int
	updates int

	err       error  // returned by every call when set
	insertErr error  // returned by InsertServiceOrder when set
	onUpdate  func() // runs before the revision check
}

var _ db.ServiceOrderCollection = (*memoryOrders)(nil)

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{docs: make(map[string][]byte)}
}

func (m *memoryOrders) put(t *testing.T, order models.ServiceOrder) string {
	t.Helper()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	raw, err := bson.Marshal(order)
	require.NoError(t, err)
	m.docs[order.ID.Hex()] = raw
	return order.ID.Hex()
}

func (m *memoryOrders) get(t *testing.T, id string) models.ServiceOrder {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.docs[id]
	require.True(t, ok, "order %s not stored", id)
	var order models.ServiceOrder
	require.NoError(t, bson.Unmarshal(raw, &order))
	return order
}

func (m *memoryOrders) decode(raw []byte) (*models.ServiceOrder, error) {
	var order models.ServiceOrder
	if err := bson.Unmarshal(raw, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (m *memoryOrders) InsertServiceOrder(_ context.Context, order *models.ServiceOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, raw := range m.docs {
		existing, err := m.decode(raw)
		if err != nil {
			return err
		}
		if existing.OrderNumber == order.OrderNumber {
			return fmt.Errorf("order number %s: %w", order.OrderNumber, db.ErrDuplicateKey)
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	raw, err := bson.Marshal(order)
	if err != nil {
		return err
	}
	m.docs[order.ID.Hex()] = raw
	m.inserts++
	return nil
}

func (m *memoryOrders) FindServiceOrderByID(_ context.Context, id string) (*models.ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	raw, ok := m.docs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return m.decode(raw)
}

func (m *memoryOrders) UpdateServiceOrder(_ context.Context, id string, revision int64, fields bson.M) error {
	if m.onUpdate != nil {
		m.onUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	raw, ok := m.docs[id]
	if !ok {
		return db.ErrNotFound
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return err
	}
	current, _ := doc["revision"].(int64)
	if current != revision {
		return db.ErrStaleRevision
	}
	for k, v := range fields {
		doc[k] = v
	}
	doc["revision"] = current + 1
	updated, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[id] = updated
	m.updates++
	return nil
}

// bumpRevision simulates a concurrent writer.
func (m *memoryOrders) bumpRevision(t *testing.T, id string) {
	t.Helper()
	order := m.get(t, id)
	order.Revision++
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(t, order)
}

func (m *memoryOrders) DeleteServiceOrder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.docs[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memoryOrders) filter(keep func(models.ServiceOrder) bool) ([]models.ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.ServiceOrder, 0)
	for _, raw := range m.docs {
		order, err := m.decode(raw)
		if err != nil {
			return nil, err
		}
		if keep(*order) {
			out = append(out, *order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *memoryOrders) FindServiceOrders(context.Context) ([]models.ServiceOrder, error) {
	return m.filter(func(models.ServiceOrder) bool { return true })
}

func (m *memoryOrders) FindServiceOrdersByClient(_ context.Context, clientID string) ([]models.ServiceOrder, error) {
	return m.filter(func(o models.ServiceOrder) bool { return o.ClientID.Hex() == clientID })
}

func (m *memoryOrders) FindServiceOrdersByAssignedUser(_ context.Context, userID string) ([]models.ServiceOrder, error) {
	return m.filter(func(o models.ServiceOrder) bool {
		return o.AssignedToID != nil && o.AssignedToID.Hex() == userID
	})
}

func (m *memoryOrders) LastOrderNumber(ctx context.Context) (string, error) {
	all, err := m.FindServiceOrders(ctx)
	if err != nil || len(all) == 0 {
		return "", err
	}
	return all[len(all)-1].OrderNumber, nil
}

type testEnv struct {
	svc       *Service
	orders    *memoryOrders
	clients   *MockClientLookup
	users     *MockUserLookup
	materials *MockMaterialLookup
	publisher *MockPublisher
	logs      *logtest.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	env := &testEnv{
		orders:    newMemoryOrders(),
		clients:   new(MockClientLookup),
		users:     new(MockUserLookup),
		materials: new(MockMaterialLookup),
		publisher: new(MockPublisher),
		logs:      hook,
	}
	env.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc, err := NewService(Deps{
		Orders:    env.orders,
		Clients:   env.clients,
		Users:     env.users,
		Materials: env.materials,
		Publisher: env.publisher,
		Logger:    logger,
		Clock:     func() time.Time { return testNow },
	})
	require.NoError(t, err)
	env.svc = svc
	return env
}

func newClient() *models.Client {
	return &models.Client{ID: primitive.NewObjectID(), Name: "Acme Ltda"}
}

func newUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Username: "tech", Role: models.RoleTechnician}
}

func newMaterial(name, unit string, price float64) *models.Material {
	return &models.Material{ID: primitive.NewObjectID(), Name: name, Unit: unit, UnitPrice: price}
}

func float(v float64) *float64 { return &v }

func str(v string) *string { return &v }
