package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuthHandler_Login(t *testing.T) {
	t.Run("successful login", func(t *testing.T) {
		env := newAPIEnv(t)
		hash, err := env.auth.HashPassword("password123")
		require.NoError(t, err)
		user := &models.User{
			ID:           primitive.NewObjectID(),
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: hash,
			Role:         models.RoleManager,
			IsActive:     true,
		}
		env.users.On("FindUserByUsername", mock.Anything, "testuser").Return(user, nil)
		env.users.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(nil)

		resp := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "testuser", Password: "password123"})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, resp.Body.Success)
		var login models.LoginResponse
		resp.decode(t, &login)
		assert.NotEmpty(t, login.Token)
		assert.NotEmpty(t, login.RefreshToken)
		assert.Equal(t, "testuser", login.User.Username)
		assert.NotContains(t, string(resp.Body.Data), "password")

		claims, err := env.auth.ValidateToken(login.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), claims.UserID)
		env.users.AssertExpectations(t)
	})

	t.Run("last login failure does not fail the login", func(t *testing.T) {
		env := newAPIEnv(t)
		hash, _ := env.auth.HashPassword("password123")
		user := &models.User{ID: primitive.NewObjectID(), Username: "testuser", PasswordHash: hash, Role: models.RoleTechnician, IsActive: true}
		env.users.On("FindUserByUsername", mock.Anything, "testuser").Return(user, nil)
		env.users.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(assert.AnError)

		resp := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "testuser", Password: "password123"})
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newAPIEnv(t)
		env.users.On("FindUserByUsername", mock.Anything, "ghost").Return(nil, db.ErrNotFound)

		resp := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "ghost", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "Invalid credentials", resp.Body.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		env := newAPIEnv(t)
		hash, _ := env.auth.HashPassword("password123")
		env.users.On("FindUserByUsername", mock.Anything, "testuser").
			Return(&models.User{ID: primitive.NewObjectID(), Username: "testuser", PasswordHash: hash, IsActive: true}, nil)

		resp := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "testuser", Password: "wrongpassword"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		env.users.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
	})

	t.Run("inactive user", func(t *testing.T) {
		env := newAPIEnv(t)
		hash, _ := env.auth.HashPassword("password123")
		env.users.On("FindUserByUsername", mock.Anything, "testuser").
			Return(&models.User{ID: primitive.NewObjectID(), Username: "testuser", PasswordHash: hash, IsActive: false}, nil)

		resp := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "testuser", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "Account is deactivated", resp.Body.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newAPIEnv(t)
		resp := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "testuser"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newAPIEnv(t)
		resp := env.do(t, http.MethodPost, "/api/auth/login", "", "{not json")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.False(t, resp.Body.Success)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	valid := models.RegisterRequest{
		Username: "newuser",
		Email:    "newuser@example.com",
		Password: "password123",
		Name:     "New User",
	}

	t.Run("technician self-registration", func(t *testing.T) {
		env := newAPIEnv(t)
		env.users.On("FindUserByUsername", mock.Anything, "newuser").Return(nil, db.ErrNotFound)
		env.users.On("FindUserByEmail", mock.Anything, "newuser@example.com").Return(nil, db.ErrNotFound)
		env.users.On("InsertUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Username == "newuser" && u.Role == models.RoleTechnician && u.IsActive &&
				u.PasswordHash != "" && u.PasswordHash != "password123"
		})).Return(nil)

		resp := env.do(t, http.MethodPost, "/api/auth/register", "", valid)

		require.Equal(t, http.StatusCreated, resp.Code)
		var login models.LoginResponse
		resp.decode(t, &login)
		assert.NotEmpty(t, login.Token)
		assert.Equal(t, "New User", login.User.Name)
		env.users.AssertNotCalled(t, "FindUsers", mock.Anything)
		env.users.AssertExpectations(t)
	})

	t.Run("first account may be admin", func(t *testing.T) {
		env := newAPIEnv(t)
		req := valid
		req.Role = models.RoleAdmin
		env.users.On("FindUsers", mock.Anything).Return([]models.User{}, nil)
		env.users.On("FindUserByUsername", mock.Anything, "newuser").Return(nil, db.ErrNotFound)
		env.users.On("FindUserByEmail", mock.Anything, "newuser@example.com").Return(nil, db.ErrNotFound)
		env.users.On("InsertUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Role == models.RoleAdmin
		})).Return(nil)

		resp := env.do(t, http.MethodPost, "/api/auth/register", "", req)
		assert.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("privileged role once users exist", func(t *testing.T) {
		env := newAPIEnv(t)
		req := valid
		req.Role = models.RoleManager
		env.users.On("FindUsers", mock.Anything).Return([]models.User{{Username: "root"}}, nil)

		resp := env.do(t, http.MethodPost, "/api/auth/register", "", req)
		assert.Equal(t, http.StatusForbidden, resp.Code)
		env.users.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("username already exists", func(t *testing.T) {
		env := newAPIEnv(t)
		env.users.On("FindUserByUsername", mock.Anything, "newuser").Return(&models.User{Username: "newuser"}, nil)

		resp := env.do(t, http.MethodPost, "/api/auth/register", "", valid)
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, "username already exists", resp.Body.Message)
	})

	t.Run("email already exists", func(t *testing.T) {
		env := newAPIEnv(t)
		env.users.On("FindUserByUsername", mock.Anything, "newuser").Return(nil, db.ErrNotFound)
		env.users.On("FindUserByEmail", mock.Anything, "newuser@example.com").Return(&models.User{}, nil)

		resp := env.do(t, http.MethodPost, "/api/auth/register", "", valid)
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("lost race on the unique index", func(t *testing.T) {
		env := newAPIEnv(t)
		env.users.On("FindUserByUsername", mock.Anything, "newuser").Return(nil, db.ErrNotFound)
		env.users.On("FindUserByEmail", mock.Anything, "newuser@example.com").Return(nil, db.ErrNotFound)
		env.users.On("InsertUser", mock.Anything, mock.Anything).Return(db.ErrDuplicateKey)

		resp := env.do(t, http.MethodPost, "/api/auth/register", "", valid)
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("invalid input", func(t *testing.T) {
		env := newAPIEnv(t)
		cases := map[string]models.RegisterRequest{
			"short password": {Username: "newuser", Email: "newuser@example.com", Password: "short"},
			"bad email":      {Username: "newuser", Email: "newuser", Password: "password123"},
			"short username": {Username: "ab", Email: "newuser@example.com", Password: "password123"},
			"invalid role":   {Username: "newuser", Email: "newuser@example.com", Password: "password123", Role: "invalid_role"},
		}
		env.users.On("FindUsers", mock.Anything).Return([]models.User{}, nil).Maybe()
		for name, req := range cases {
			resp := env.do(t, http.MethodPost, "/api/auth/register", "", req)
			assert.Equal(t, http.StatusBadRequest, resp.Code, name)
		}
		env.users.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_GetProfile(t *testing.T) {
	env := newAPIEnv(t)
	token, user := env.token(t, models.RoleTechnician)
	env.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)

	resp := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var got models.User
	resp.decode(t, &got)
	assert.Equal(t, user.Username, got.Username)

	resp = env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthHandler_GetProfile_DeletedUser(t *testing.T) {
	env := newAPIEnv(t)
	token, user := env.token(t, models.RoleTechnician)
	env.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(nil, db.ErrNotFound)

	resp := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "User not found", resp.Body.Message)
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	env := newAPIEnv(t)
	token, user := env.token(t, models.RoleTechnician)
	env.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
	env.users.On("UpdateUser", mock.Anything, user.ID.Hex(), mock.MatchedBy(func(u models.User) bool {
		return u.Name == "Renamed" && u.Email == "renamed@example.com"
	})).Return(nil)

	resp := env.do(t, http.MethodPut, "/api/auth/me", token, map[string]string{"name": "Renamed", "email": "renamed@example.com"})
	assert.Equal(t, http.StatusOK, resp.Code)
	env.users.AssertExpectations(t)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	newEnv := func(t *testing.T) (*apiEnv, string, *models.User) {
		env := newAPIEnv(t)
		token, user := env.token(t, models.RoleTechnician)
		hash, err := env.auth.HashPassword("oldpassword")
		require.NoError(t, err)
		user.PasswordHash = hash
		env.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
		return env, token, user
	}

	t.Run("success", func(t *testing.T) {
		env, token, user := newEnv(t)
		env.users.On("UpdateUser", mock.Anything, user.ID.Hex(), mock.MatchedBy(func(u models.User) bool {
			return env.auth.CheckPassword("newpassword123", u.PasswordHash)
		})).Return(nil)

		resp := env.do(t, http.MethodPost, "/api/auth/change-password", token,
			map[string]string{"current_password": "oldpassword", "new_password": "newpassword123"})
		assert.Equal(t, http.StatusOK, resp.Code)
		env.users.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		env, token, _ := newEnv(t)
		resp := env.do(t, http.MethodPost, "/api/auth/change-password", token,
			map[string]string{"current_password": "nope", "new_password": "newpassword123"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		env.users.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("weak new password", func(t *testing.T) {
		env, token, _ := newEnv(t)
		resp := env.do(t, http.MethodPost, "/api/auth/change-password", token,
			map[string]string{"current_password": "oldpassword", "new_password": "short"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
