package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-desk/internal/apperr"
	"github.com/ukydev/service-desk/internal/auth"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/httpx"
	"github.com/ukydev/service-desk/internal/middleware"
	"github.com/ukydev/service-desk/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	log            logrus.FieldLogger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		log:            loggerOrStandard(log),
	}
}

// Login exchanges username and password for an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.log.WithError(err).Error("Failed to look up user for login")
		}
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		httpx.WriteError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}

	resp, err := h.issueTokens(user)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "Login successful", resp)
}

// Register creates an account. Admin and manager accounts can only be
// self-registered while no user exists yet; afterwards admins create them
// through the users API.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleTechnician
	}
	if req.Role != models.RoleTechnician {
		existing, err := h.userCollection.FindUsers(r.Context())
		if err != nil {
			writeStoreError(w, h.log, apperr.EntityUser, err)
			return
		}
		if len(existing) > 0 {
			httpx.WriteError(w, http.StatusForbidden, "Only technician accounts can be self-registered")
			return
		}
	}

	user, err := createUser(r.Context(), h.authService, h.userCollection, req)
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}

	h.log.WithFields(logrus.Fields{"username": user.Username, "role": user.Role}).Info("Registered user")
	resp, err := h.issueTokens(user)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, "User registered", resp)
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "", user)
}

// UpdateProfile changes the name or email of the current user.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if req.Email != "" && req.Email != user.Email {
		if err := h.authService.ValidateEmail(req.Email); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		user.Email = req.Email
	}

	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "Profile updated successfully", user)
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Current password and new password are required")
		return
	}
	if err := h.authService.ValidatePassword(req.NewPassword); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	if !h.authService.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		httpx.WriteError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hash, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		h.log.WithError(err).Error("Failed to hash password")
		httpx.WriteAppError(w, apperr.ErrInternal)
		return
	}
	user.PasswordHash = hash
	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "Password changed successfully", nil)
}

// createUser validates req and stores the account.
func createUser(ctx context.Context, authService *auth.Service, users db.UserCollection, req models.RegisterRequest) (*models.User, error) {
	if err := authService.ValidateUsername(req.Username); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if err := authService.ValidateEmail(req.Email); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if err := authService.ValidatePassword(req.Password); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if !models.IsValidRole(req.Role) {
		return nil, apperr.Validation("invalid role %q", req.Role)
	}

	if _, err := users.FindUserByUsername(ctx, req.Username); err == nil {
		return nil, apperr.AlreadyExists("username")
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if _, err := users.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, apperr.AlreadyExists("email")
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	hash, err := authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *AuthHandler) issueTokens(user *models.User) (*models.LoginResponse, error) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		h.log.WithError(err).Error("Failed to generate token")
		return nil, apperr.ErrInternal
	}
	refresh, err := h.authService.GenerateRefreshToken()
	if err != nil {
		h.log.WithError(err).Error("Failed to generate refresh token")
		return nil, apperr.ErrInternal
	}
	return &models.LoginResponse{Token: token, RefreshToken: refresh, User: *user}, nil
}
