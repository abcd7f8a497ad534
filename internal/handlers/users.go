package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-desk/internal/apperr"
	"github.com/ukydev/service-desk/internal/auth"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/httpx"
	"github.com/ukydev/service-desk/internal/middleware"
	"github.com/ukydev/service-desk/internal/models"
)

// UserHandler administers user accounts.
type UserHandler struct {
	authService *auth.Service
	users       db.UserCollection
	log         logrus.FieldLogger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(authService *auth.Service, users db.UserCollection, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{authService: authService, users: users, log: loggerOrStandard(log)}
}

// UserUpdateRequest is the payload of PUT /api/users/{id}; nil fields are left unchanged.
type UserUpdateRequest struct {
	Name     *string      `json:"name,omitempty"`
	Email    *string      `json:"email,omitempty"`
	Role     *models.Role `json:"role,omitempty"`
	IsActive *bool        `json:"is_active,omitempty"`
}

// List returns every user.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.FindUsers(r.Context())
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "", users)
}

// Get returns one user by id.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "", user)
}

// Create adds an account with any role.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleTechnician
	}
	user, err := createUser(r.Context(), h.authService, h.users, req)
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	h.log.WithFields(logrus.Fields{"username": user.Username, "role": user.Role}).Info("Created user")
	httpx.WriteJSON(w, http.StatusCreated, "User created", user)
}

// Update changes profile, role or active flag of a user.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UserUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}

	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		if err := h.authService.ValidateEmail(*req.Email); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		user.Email = *req.Email
	}
	if req.Role != nil {
		if !models.IsValidRole(*req.Role) {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		if claims, ok := middleware.GetUserFromContext(r.Context()); ok && claims.UserID == id && !*req.IsActive {
			httpx.WriteError(w, http.StatusBadRequest, "You cannot deactivate your own account")
			return
		}
		user.IsActive = *req.IsActive
	}

	if err := h.users.UpdateUser(r.Context(), id, *user); err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, "User updated", user)
}

// Delete removes a user account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok && claims.UserID == id {
		httpx.WriteError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, h.log, apperr.EntityUser, err)
		return
	}
	h.log.WithField("user_id", id).Info("Deleted user")
	httpx.WriteJSON(w, http.StatusOK, "User deleted", nil)
}
