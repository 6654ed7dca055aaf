package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-service/internal/api/http/handlers"
	"github.com/spec-kit/car-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Vehicles       *handlers.VehiclesHandler
	Services       *handlers.ServicesHandler
	StaffServices  *handlers.StaffServicesHandler
	AdminUsers     *handlers.AdminUsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	authProtected.Post("/logout", cfg.Auth.Logout)
	authProtected.Post("/password/change", cfg.Auth.ChangePassword)
	authProtected.Get("/profile", cfg.Auth.Profile)
	authProtected.Put("/profile", cfg.Auth.UpdateProfile)

	vehicles := app.Group("/vehicles", cfg.AuthMiddleware.Handle, auth.RequireClient())
	vehicles.Post("", cfg.Vehicles.Create)
	vehicles.Get("", cfg.Vehicles.List)
	vehicles.Get("/:id", cfg.Vehicles.Get)
	vehicles.Put("/:id", cfg.Vehicles.Update)
	vehicles.Delete("/:id", cfg.Vehicles.Delete)

	services := app.Group("/services", cfg.AuthMiddleware.Handle, auth.RequireClient())
	services.Post("", cfg.Services.Create)
	services.Get("", cfg.Services.List)
	services.Get("/:id", cfg.Services.Get)
	services.Post("/:id/confirm", cfg.Services.Confirm)
	services.Post("/:id/request-date-change", cfg.Services.RequestDateChange)
	services.Post("/:id/cancel", cfg.Services.Cancel)
	services.Post("/:id/approve", cfg.Services.Approve)
	services.Post("/:id/request-changes", cfg.Services.RequestChanges)
	services.Post("/:id/pay", cfg.Services.Pay)
	services.Post("/:id/confirm-pickup", cfg.Services.ConfirmPickup)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	staff.Get("/dashboard", cfg.StaffServices.Dashboard)
	staff.Post("/services", cfg.StaffServices.Create)
	staff.Get("/services", cfg.StaffServices.List)
	staff.Get("/services/:id", cfg.StaffServices.Get)
	staff.Put("/services/:id", cfg.StaffServices.Update)
	staff.Post("/services/:id/accept", cfg.StaffServices.Accept)
	staff.Post("/services/:id/reject", cfg.StaffServices.Reject)
	staff.Post("/services/:id/propose-date", cfg.StaffServices.ProposeDate)
	staff.Post("/services/:id/assign", cfg.StaffServices.Assign)
	staff.Post("/services/:id/post-payment", cfg.StaffServices.PostPayment)
	staff.Get("/clients/:id/vehicles", cfg.Vehicles.ListByOwner)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Post("/users", cfg.AdminUsers.Create)
	admin.Get("/users", cfg.AdminUsers.List)
	admin.Get("/users/:id", cfg.AdminUsers.Get)
	admin.Put("/users/:id", cfg.AdminUsers.Update)
	admin.Delete("/users/:id", cfg.AdminUsers.Delete)
	admin.Post("/users/:id/reset-password", cfg.AdminUsers.ResetPassword)
	admin.Delete("/services/:id", cfg.StaffServices.Delete)
	admin.Put("/vehicles/:id", cfg.Vehicles.Update)
	admin.Delete("/vehicles/:id", cfg.Vehicles.Delete)
}
