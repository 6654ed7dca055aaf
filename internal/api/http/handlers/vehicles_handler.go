package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-service/internal/api/dto"
	"github.com/spec-kit/car-service/internal/auth"
	"github.com/spec-kit/car-service/internal/service"
	apperrors "github.com/spec-kit/car-service/pkg/util/errorutil"
)

// VehiclesHandler manages vehicle endpoints.
type VehiclesHandler struct {
	vehicles *service.VehicleService
}

// NewVehiclesHandler constructs handler.
func NewVehiclesHandler(vehicles *service.VehicleService) *VehiclesHandler {
	return &VehiclesHandler{vehicles: vehicles}
}

// Create POST /vehicles.
func (h *VehiclesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.VehicleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	vehicle, err := h.vehicles.AddVehicle(c.Context(), principal.Actor(), service.VehicleInput{
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		VIN:          req.VIN,
		LicensePlate: req.LicensePlate,
		Color:        req.Color,
		Mileage:      req.Mileage,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": vehicleResponse(vehicle)})
}

// List GET /vehicles.
func (h *VehiclesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	result, err := h.vehicles.ListMyVehicles(c.Context(), principal.Actor())
	if err != nil {
		return err
	}
	items := make([]dto.VehicleResponse, 0, len(result))
	for i := range result {
		items = append(items, vehicleResponse(&result[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /vehicles/:id.
func (h *VehiclesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	vehicle, err := h.vehicles.GetVehicle(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vehicleResponse(vehicle)})
}

// Update PUT /vehicles/:id.
func (h *VehiclesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateVehicleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	vehicle, err := h.vehicles.UpdateVehicle(c.Context(), principal.Actor(), c.Params("id"), service.VehicleUpdateInput{
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		LicensePlate: req.LicensePlate,
		Color:        req.Color,
		Mileage:      req.Mileage,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vehicleResponse(vehicle)})
}

// Delete DELETE /vehicles/:id.
func (h *VehiclesHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.vehicles.DeleteVehicle(c.Context(), principal.Actor(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// ListByOwner GET /staff/clients/:id/vehicles.
func (h *VehiclesHandler) ListByOwner(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	result, err := h.vehicles.ListByOwner(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.VehicleResponse, 0, len(result))
	for i := range result {
		items = append(items, vehicleResponse(&result[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
