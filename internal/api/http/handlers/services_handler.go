package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-service/internal/api/dto"
	"github.com/spec-kit/car-service/internal/auth"
	"github.com/spec-kit/car-service/internal/domain"
	"github.com/spec-kit/car-service/internal/repository"
	"github.com/spec-kit/car-service/internal/service"
	apperrors "github.com/spec-kit/car-service/pkg/util/errorutil"
)

// ServicesHandler manages the client-facing service request endpoints.
type ServicesHandler struct {
	lifecycle *service.LifecycleService
}

// NewServicesHandler constructs handler.
func NewServicesHandler(lifecycle *service.LifecycleService) *ServicesHandler {
	return &ServicesHandler{lifecycle: lifecycle}
}

// Create POST /services.
func (h *ServicesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.VehicleID == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("vehicle_id and description required", nil)
	}

	svc, err := h.lifecycle.CreateRequest(c.Context(), principal.Actor(), service.CreateRequestInput{
		ClientID:        req.ClientID,
		VehicleID:       req.VehicleID,
		Description:     req.Description,
		AdditionalNotes: req.AdditionalNotes,
		Priority:        req.Priority,
		PreferredDate:   req.PreferredDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": serviceSummary(svc)})
}

// List GET /services.
func (h *ServicesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	result, err := h.lifecycle.ListForClient(c.Context(), principal.Actor(), parseServiceQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.ServiceSummary, 0, len(result))
	for i := range result {
		items = append(items, serviceSummary(&result[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /services/:id.
func (h *ServicesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	svc, history, err := h.lifecycle.GetForClient(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceDetail(svc, history)})
}

// Confirm POST /services/:id/confirm.
func (h *ServicesHandler) Confirm(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	svc, err := h.lifecycle.ConfirmService(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// RequestDateChange POST /services/:id/request-date-change.
func (h *ServicesHandler) RequestDateChange(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.DateChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PreferredDate.IsZero() {
		return apperrors.NewValidationError("preferred_date required", nil)
	}

	svc, err := h.lifecycle.RequestDateChange(c.Context(), principal.Actor(), c.Params("id"), req.PreferredDate, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// Cancel POST /services/:id/cancel.
func (h *ServicesHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	svc, err := h.lifecycle.CancelService(c.Context(), principal.Actor(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// Approve POST /services/:id/approve.
func (h *ServicesHandler) Approve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	svc, err := h.lifecycle.ApproveService(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// RequestChanges POST /services/:id/request-changes.
func (h *ServicesHandler) RequestChanges(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RequestChangesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	svc, err := h.lifecycle.RequestChanges(c.Context(), principal.Actor(), c.Params("id"), req.Changes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// Pay POST /services/:id/pay.
func (h *ServicesHandler) Pay(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	svc, err := h.lifecycle.MakePayment(c.Context(), principal.Actor(), c.Params("id"), req.PaymentMethod)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// ConfirmPickup POST /services/:id/confirm-pickup.
func (h *ServicesHandler) ConfirmPickup(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	svc, err := h.lifecycle.ConfirmPickup(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

func parseServiceQuery(c *fiber.Ctx) repository.ServiceFilter {
	filter := repository.ServiceFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ServiceStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.ServicePriority(strings.TrimSpace(part)))
		}
	}
	if vehicleID := c.Query("vehicle_id"); vehicleID != "" {
		filter.VehicleID = &vehicleID
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filter.Offset = offset
	}
	return filter
}
