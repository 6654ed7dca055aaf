package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-service/internal/api/dto"
	"github.com/spec-kit/car-service/internal/auth"
	"github.com/spec-kit/car-service/internal/service"
	apperrors "github.com/spec-kit/car-service/pkg/util/errorutil"
)

// StaffServicesHandler manages the staff-facing service request endpoints.
type StaffServicesHandler struct {
	lifecycle *service.LifecycleService
	dashboard *service.DashboardService
}

// NewStaffServicesHandler constructs handler.
func NewStaffServicesHandler(lifecycle *service.LifecycleService, dashboard *service.DashboardService) *StaffServicesHandler {
	return &StaffServicesHandler{lifecycle: lifecycle, dashboard: dashboard}
}

// Create POST /staff/services. Staff create on behalf of a client.
func (h *StaffServicesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ClientID == "" || req.VehicleID == "" {
		return apperrors.NewValidationError("client_id and vehicle_id required", nil)
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

// List GET /staff/services.
func (h *StaffServicesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseServiceQuery(c)
	if clientID := c.Query("client_id"); clientID != "" {
		filter.ClientID = &clientID
	}
	if employeeID := c.Query("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}
	result, err := h.lifecycle.ListForStaff(c.Context(), principal.Actor(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ServiceSummary, 0, len(result))
	for i := range result {
		items = append(items, serviceSummary(&result[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /staff/services/:id.
func (h *StaffServicesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	svc, history, err := h.lifecycle.GetForStaff(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceDetail(svc, history)})
}

// Accept POST /staff/services/:id/accept.
func (h *StaffServicesHandler) Accept(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	svc, err := h.lifecycle.Accept(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// Reject POST /staff/services/:id/reject.
func (h *StaffServicesHandler) Reject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	svc, err := h.lifecycle.Reject(c.Context(), principal.Actor(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// ProposeDate POST /staff/services/:id/propose-date.
func (h *StaffServicesHandler) ProposeDate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ProposeDateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ScheduledDate.IsZero() {
		return apperrors.NewValidationError("scheduled_date required", nil)
	}

	svc, err := h.lifecycle.ProposeDate(c.Context(), principal.Actor(), c.Params("id"), req.ScheduledDate)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// Update PUT /staff/services/:id.
func (h *StaffServicesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	svc, err := h.lifecycle.UpdateService(c.Context(), principal.Actor(), c.Params("id"), service.UpdateServiceInput{
		Status:        req.Status,
		Priority:      req.Priority,
		ScheduledDate: req.ScheduledDate,
		Diagnosis:     req.Diagnosis,
		ServicePlan:   req.ServicePlan,
		PartsNeeded:   req.PartsNeeded,
		Notes:         req.Notes,
		EstimatedCost: req.EstimatedCost,
		ActualCost:    req.ActualCost,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// Assign POST /staff/services/:id/assign.
func (h *StaffServicesHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	svc, err := h.lifecycle.Assign(c.Context(), principal.Actor(), c.Params("id"), req.EmployeeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// PostPayment POST /staff/services/:id/post-payment.
func (h *StaffServicesHandler) PostPayment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PostPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	svc, err := h.lifecycle.ContinueAfterPayment(c.Context(), principal.Actor(), c.Params("id"), req.Status, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceSummary(svc)})
}

// Delete DELETE /staff/services/:id. Admin only.
func (h *StaffServicesHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.lifecycle.Delete(c.Context(), principal.Actor(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// Dashboard GET /staff/dashboard.
func (h *StaffServicesHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	counts, err := h.dashboard.StatusSummary(c.Context(), principal.Actor())
	if err != nil {
		return err
	}
	var total int64
	for _, count := range counts {
		total += count
	}
	return c.JSON(fiber.Map{"data": dto.StatusSummaryResponse{Counts: counts, Total: total}})
}
