package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/service-desk/internal/auth"
	"github.com/ukydev/service-desk/internal/middleware"
	"github.com/ukydev/service-desk/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

func (m *MockUserCollection) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockClientCollection struct {
	mock.Mock
}

func (m *MockClientCollection) InsertClient(ctx context.Context, client *models.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientCollection) FindClients(ctx context.Context) ([]models.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *MockClientCollection) FindClientByID(ctx context.Context, id string) (*models.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientCollection) UpdateClient(ctx context.Context, id string, client models.Client) error {
	args := m.Called(ctx, id, client)
	return args.Error(0)
}

func (m *MockClientCollection) DeleteClient(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMaterialCollection struct {
	mock.Mock
}

func (m *MockMaterialCollection) InsertMaterial(ctx context.Context, material *models.Material) error {
	args := m.Called(ctx, material)
	return args.Error(0)
}

func (m *MockMaterialCollection) FindMaterials(ctx context.Context) ([]models.Material, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Material), args.Error(1)
}

func (m *MockMaterialCollection) FindMaterialByID(ctx context.Context, id string) (*models.Material, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Material), args.Error(1)
}

func (m *MockMaterialCollection) UpdateMaterial(ctx context.Context, id string, material models.Material) error {
	args := m.Called(ctx, id, material)
	return args.Error(0)
}

func (m *MockMaterialCollection) DeleteMaterial(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMaterialCollection) AdjustStock(ctx context.Context, id string, delta float64) (*models.Material, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Material), args.Error(1)
}

func (m *MockMaterialCollection) FindLowStockMaterials(ctx context.Context) ([]models.Material, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Material), args.Error(1)
}

func (m *MockMaterialCollection) FindMaterialsByCategory(ctx context.Context, category string) ([]models.Material, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Material), args.Error(1)
}

func (m *MockMaterialCollection) FindDuplicateMaterial(ctx context.Context, code, name, excludeID string) (*models.Material, error) {
	args := m.Called(ctx, code, name, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Material), args.Error(1)
}

type MockServiceOrderService struct {
	mock.Mock
}

func (m *MockServiceOrderService) order(args mock.Arguments) (*models.ServiceOrderResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceOrderResponse), args.Error(1)
}

func (m *MockServiceOrderService) list(args mock.Arguments) ([]models.ServiceOrderResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ServiceOrderResponse), args.Error(1)
}

func (m *MockServiceOrderService) Create(ctx context.Context, req models.CreateServiceOrderRequest) (*models.ServiceOrderResponse, error) {
	return m.order(m.Called(ctx, req))
}

func (m *MockServiceOrderService) Update(ctx context.Context, id string, patch models.UpdateServiceOrderRequest) (*models.ServiceOrderResponse, error) {
	return m.order(m.Called(ctx, id, patch))
}

func (m *MockServiceOrderService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockServiceOrderService) Get(ctx context.Context, id string) (*models.ServiceOrderResponse, error) {
	return m.order(m.Called(ctx, id))
}

func (m *MockServiceOrderService) ListAll(ctx context.Context) ([]models.ServiceOrderResponse, error) {
	return m.list(m.Called(ctx))
}

func (m *MockServiceOrderService) ListByClient(ctx context.Context, clientID string) ([]models.ServiceOrderResponse, error) {
	return m.list(m.Called(ctx, clientID))
}

func (m *MockServiceOrderService) ListByAssignedUser(ctx context.Context, userID string) ([]models.ServiceOrderResponse, error) {
	return m.list(m.Called(ctx, userID))
}

func (m *MockServiceOrderService) AddMaterial(ctx context.Context, orderID string, req models.AddMaterialRequest) (*models.ServiceOrderResponse, error) {
	return m.order(m.Called(ctx, orderID, req))
}

func (m *MockServiceOrderService) RemoveMaterial(ctx context.Context, orderID, materialID string) (*models.ServiceOrderResponse, error) {
	return m.order(m.Called(ctx, orderID, materialID))
}

func (m *MockServiceOrderService) UpdateMaterial(ctx context.Context, orderID, materialID string, req models.UpdateMaterialRequest) (*models.ServiceOrderResponse, error) {
	return m.order(m.Called(ctx, orderID, materialID, req))
}

func (m *MockServiceOrderService) ListMaterialsWithDetails(ctx context.Context, orderID string) ([]models.MaterialDetail, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MaterialDetail), args.Error(1)
}

// apiEnv is the full router over mocked collaborators.
type apiEnv struct {
	handler   http.Handler
	auth      *auth.Service
	users     *MockUserCollection
	clients   *MockClientCollection
	materials *MockMaterialCollection
	orders    *MockServiceOrderService
	logs      *logtest.Hook
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	authService, err := auth.NewService("handlers-test-secret", time.Hour)
	require.NoError(t, err)
	logger, hook := logtest.NewNullLogger()

	env := &apiEnv{
		auth:      authService,
		users:     new(MockUserCollection),
		clients:   new(MockClientCollection),
		materials: new(MockMaterialCollection),
		orders:    new(MockServiceOrderService),
		logs:      hook,
	}
	env.handler = NewRouter(Router{
		Auth:           NewAuthHandler(authService, env.users, logger),
		Users:          NewUserHandler(authService, env.users, logger),
		Clients:        NewClientHandler(env.clients, logger),
		Materials:      NewMaterialHandler(env.materials, logger),
		ServiceOrders:  NewServiceOrderHandler(env.orders),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		Logger:         logger,
	})
	return env
}

// token signs an access token for a fresh user with role.
func (e *apiEnv) token(t *testing.T, role models.Role) (string, *models.User) {
	t.Helper()
	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: string(role),
		Email:    string(role) + "@example.com",
		Role:     role,
		IsActive: true,
	}
	token, err := e.auth.GenerateToken(user)
	require.NoError(t, err)
	return token, user
}

type apiResponse struct {
	Code int
	Body struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
}

// do sends a request through the router. body may be nil, a string or any JSON value.
func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	resp := apiResponse{Code: w.Code}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp.Body), w.Body.String())
	return resp
}

func (r apiResponse) decode(t *testing.T, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body.Data, dst))
}
