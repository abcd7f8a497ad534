package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMid "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-desk/internal/httpx"
	"github.com/ukydev/service-desk/internal/middleware"
	"github.com/ukydev/service-desk/internal/models"
)

// Router bundles what NewRouter mounts.
type Router struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Clients       *ClientHandler
	Materials     *MaterialHandler
	ServiceOrders *ServiceOrderHandler

	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimitMiddleware
	Logger         logrus.FieldLogger
}

// NewRouter wires every API route.
func NewRouter(rt Router) http.Handler {
	authz := rt.AuthMiddleware
	r := chi.NewRouter()
	r.Use(chiMid.RequestID)
	r.Use(chiMid.RealIP)
	r.Use(middleware.RequestLogger(loggerOrStandard(rt.Logger)))
	r.Use(chiMid.Recoverer)
	if rt.RateLimiter != nil {
		r.Use(rt.RateLimiter.RateLimit)
	}
	r.Use(authz.Authenticate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", Health)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", rt.Auth.Login)
		r.Post("/register", rt.Auth.Register)
		r.Get("/me", rt.Auth.GetProfile)
		r.Put("/me", rt.Auth.UpdateProfile)
		r.Post("/change-password", rt.Auth.ChangePassword)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(authz.RequireRole(models.RoleManager))
		r.Get("/", rt.Users.List)
		r.Get("/{id}", rt.Users.Get)
		r.Group(func(r chi.Router) {
			r.Use(authz.RequirePermission("manage_users"))
			r.Post("/", rt.Users.Create)
			r.Put("/{id}", rt.Users.Update)
			r.Delete("/{id}", rt.Users.Delete)
		})
	})

	r.Route("/api/clients", func(r chi.Router) {
		r.With(authz.RequirePermission("view_clients")).Get("/", rt.Clients.List)
		r.With(authz.RequirePermission("view_clients")).Get("/{id}", rt.Clients.Get)
		r.Group(func(r chi.Router) {
			r.Use(authz.RequirePermission("manage_clients"))
			r.Post("/", rt.Clients.Create)
			r.Put("/{id}", rt.Clients.Update)
			r.Delete("/{id}", rt.Clients.Delete)
		})
	})

	r.Route("/api/materials", func(r chi.Router) {
		r.With(authz.RequirePermission("view_materials")).Get("/", rt.Materials.List)
		r.With(authz.RequirePermission("view_materials")).Get("/low-stock", rt.Materials.LowStock)
		r.With(authz.RequirePermission("view_materials")).Get("/category/{category}", rt.Materials.ByCategory)
		r.With(authz.RequirePermission("view_materials")).Get("/{id}", rt.Materials.Get)
		r.Group(func(r chi.Router) {
			r.Use(authz.RequirePermission("manage_materials"))
			r.Post("/", rt.Materials.Create)
			r.Put("/{id}", rt.Materials.Update)
			r.Delete("/{id}", rt.Materials.Delete)
			r.Patch("/{id}/stock", rt.Materials.AdjustStock)
		})
	})

	r.Route("/api/service-orders", func(r chi.Router) {
		so := rt.ServiceOrders
		r.Group(func(r chi.Router) {
			r.Use(authz.RequirePermission("view_service_orders"))
			r.Get("/", so.List)
			r.Get("/client/{clientID}", so.ListByClient)
			r.Get("/assigned/{userID}", so.ListByAssignedUser)
			r.Get("/{id}", so.Get)
			r.Get("/{id}/materials", so.ListMaterials)
		})
		r.With(authz.RequirePermission("create_service_order")).Post("/", so.Create)
		r.With(authz.RequirePermission("update_service_order")).Put("/{id}", so.Update)
		r.With(authz.RequirePermission("delete_service_order")).Delete("/{id}", so.Delete)
		r.Group(func(r chi.Router) {
			r.Use(authz.RequirePermission("manage_order_materials"))
			r.Post("/{id}/materials", so.AddMaterial)
			r.Put("/{id}/materials/{materialID}", so.UpdateMaterial)
			r.Delete("/{id}/materials/{materialID}", so.RemoveMaterial)
		})
	})

	return r
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, "ok", nil)
}
