package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/car-service/internal/domain"
	"github.com/spec-kit/car-service/internal/events"
	"github.com/spec-kit/car-service/internal/repository"
	apperrors "github.com/spec-kit/car-service/pkg/util/errorutil"
)

const dateLayout = "2006-01-02 15:04"

// Clock supplies timestamps; injectable for tests.
type Clock func() time.Time

// LifecycleService owns the service request workflow: transition guards, field
// mutations and the history ledger. Every call takes the acting user
// explicitly.
type LifecycleService struct {
	services   repository.ServiceRepository
	history    repository.ServiceHistoryRepository
	users      repository.UserRepository
	vehicles   repository.VehicleRepository
	dispatcher events.Dispatcher
	clock      Clock
}

// LifecycleDependencies bundles repositories for the engine.
type LifecycleDependencies struct {
	ServiceRepo repository.ServiceRepository
	HistoryRepo repository.ServiceHistoryRepository
	UserRepo    repository.UserRepository
	VehicleRepo repository.VehicleRepository
	Dispatcher  events.Dispatcher
	Clock       Clock
}

// CreateRequestInput describes a new service request.
type CreateRequestInput struct {
	ClientID        string
	VehicleID       string
	Description     string
	AdditionalNotes string
	Priority        domain.ServicePriority
	PreferredDate   *time.Time
}

// UpdateServiceInput is the staff multi-field edit payload. Nil fields are
// left untouched.
type UpdateServiceInput struct {
	Status        *domain.ServiceStatus
	Priority      *domain.ServicePriority
	ScheduledDate *time.Time
	Diagnosis     *string
	ServicePlan   *string
	PartsNeeded   *string
	Notes         *string
	EstimatedCost *float64
	ActualCost    *float64
}

// NewLifecycleService constructs the engine.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &LifecycleService{
		services:   deps.ServiceRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		vehicles:   deps.VehicleRepo,
		dispatcher: deps.Dispatcher,
		clock:      clock,
	}
}

// CreateRequest opens a new service request in status pending. Clients create
// for their own vehicles; staff may create on behalf of a client.
func (s *LifecycleService) CreateRequest(ctx context.Context, actor domain.Actor, input CreateRequestInput) (*domain.ServiceRequest, error) {
	clientID := input.ClientID
	if actor.Role == domain.RoleClient {
		clientID = actor.ID
	} else if clientID == "" {
		return nil, apperrors.NewValidationError("client_id required", nil)
	}

	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	if input.PreferredDate == nil {
		return nil, apperrors.NewValidationError("preferred_date required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.IsValid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	vehicle, err := s.vehicles.GetByID(ctx, input.VehicleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("vehicle", map[string]any{"vehicle_id": input.VehicleID})
		}
		return nil, apperrors.MapError(err)
	}
	if vehicle.OwnerID != clientID {
		return nil, apperrors.NewForbidden("vehicle does not belong to the client")
	}

	svc := &domain.ServiceRequest{
		ExternalKey:     generateServiceKey(),
		ClientID:        clientID,
		VehicleID:       vehicle.ID,
		Status:          domain.StatusPending,
		Priority:        priority,
		Description:     strings.TrimSpace(input.Description),
		AdditionalNotes: strings.TrimSpace(input.AdditionalNotes),
		PreferredDate:   input.PreferredDate,
	}
	entry := s.newEntry(actor, domain.CategoryGeneric, "Service request created")
	if err := s.services.CreateWithHistory(ctx, svc, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventServiceCreated, svc.ID, actor, events.ServiceCreatedPayload{
		ClientID:  svc.ClientID,
		VehicleID: svc.VehicleID,
		Priority:  svc.Priority,
	})
	return svc, nil
}

// Accept moves a pending request to accepted and assigns the accepting staff
// member when nobody is assigned yet.
func (s *LifecycleService) Accept(ctx context.Context, actor domain.Actor, serviceID string) (*domain.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	svc, err := s.loadRequest(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != domain.StatusPending {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "accept")
	}

	name, err := s.actorName(ctx, actor)
	if err != nil {
		return nil, err
	}
	oldStatus := svc.Status
	svc.Status = domain.StatusAccepted
	if !svc.HasEmployee() {
		employeeID := actor.ID
		svc.EmployeeID = &employeeID
	}

	entry := s.newEntry(actor, domain.CategoryStatusChange, fmt.Sprintf("Service accepted by %s", name))
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, svc.ID, actor, oldStatus, svc.Status, "")
	return svc, nil
}

// Reject cancels a pending request with a mandatory reason.
func (s *LifecycleService) Reject(ctx context.Context, actor domain.Actor, serviceID, reason string) (*domain.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("rejection reason required", nil)
	}
	svc, err := s.loadRequest(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != domain.StatusPending {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "reject")
	}

	oldStatus := svc.Status
	svc.Status = domain.StatusCancelled
	entry := s.newEntry(actor, domain.CategoryCancellation, fmt.Sprintf("Service rejected by employee. Reason: %s", reason))
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventServiceCancelled, svc.ID, actor, events.ServiceCancelledPayload{Reason: reason})
	return svc, nil
}

// ProposeDate schedules the request for a concrete date. The proposing staff
// member becomes the assignee when the request has none.
func (s *LifecycleService) ProposeDate(ctx context.Context, actor domain.Actor, serviceID string, date time.Time) (*domain.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	svc, err := s.loadRequest(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !domain.EmployeeCanProposeDate(svc.Status) {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "propose_date")
	}

	oldStatus := svc.Status
	svc.ScheduledDate = &date
	svc.Status = domain.StatusScheduled
	if !svc.HasEmployee() {
		employeeID := actor.ID
		svc.EmployeeID = &employeeID
	}

	entry := s.newEntry(actor, domain.CategoryStatusChange, fmt.Sprintf("Employee proposed new date: %s", date.Format(dateLayout)))
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, svc.ID, actor, oldStatus, svc.Status, "")
	return svc, nil
}

// ConfirmService records the owning client's agreement with the scheduled date.
func (s *LifecycleService) ConfirmService(ctx context.Context, actor domain.Actor, serviceID string) (*domain.ServiceRequest, error) {
	svc, err := s.loadOwned(ctx, actor, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != domain.StatusScheduled {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "confirm_service")
	}
	if !svc.HasEmployee() {
		return nil, apperrors.NewValidationError("cannot confirm date without assigned employee", nil)
	}

	oldStatus := svc.Status
	svc.Status = domain.StatusClientConfirmed
	entry := s.newEntry(actor, domain.CategoryConfirmation, "Client confirmed the service")
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, svc.ID, actor, oldStatus, svc.Status, "")
	return svc, nil
}

// RequestDateChange lets the owning client ask for another date. The request
// returns to pending so staff can re-propose.
func (s *LifecycleService) RequestDateChange(ctx context.Context, actor domain.Actor, serviceID string, newDate time.Time, reason string) (*domain.ServiceRequest, error) {
	svc, err := s.loadOwned(ctx, actor, serviceID)
	if err != nil {
		return nil, err
	}
	if !domain.ClientCanRequestDateChange(svc.Status) {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "request_date_change")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("change reason required", nil)
	}

	oldStatus := svc.Status
	svc.PreferredDate = &newDate
	svc.Status = domain.StatusPending
	entry := s.newEntry(actor, domain.CategoryClientRequest,
		fmt.Sprintf("Client requested date change to %s. Reason: %s", newDate.Format(dateLayout), reason))
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, svc.ID, actor, oldStatus, svc.Status, reason)
	return svc, nil
}

// CancelService cancels the request on the owning client's behalf while the
// work has not started yet.
func (s *LifecycleService) CancelService(ctx context.Context, actor domain.Actor, serviceID, reason string) (*domain.ServiceRequest, error) {
	svc, err := s.loadOwned(ctx, actor, serviceID)
	if err != nil {
		return nil, err
	}
	if !domain.ClientCanCancel(svc.Status) {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "cancel_service")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("cancellation reason required", nil)
	}

	oldStatus := svc.Status
	svc.Status = domain.StatusCancelled
	entry := s.newEntry(actor, domain.CategoryCancellation, fmt.Sprintf("Service cancelled by client. Reason: %s", reason))
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventServiceCancelled, svc.ID, actor, events.ServiceCancelledPayload{Reason: reason})
	return svc, nil
}

// UpdateService is the staff edit: detail fields, costs, priority, scheduled
// date and optionally a direct status move along the transition graph. One
// call yields one history entry summarizing everything that changed.
func (s *LifecycleService) UpdateService(ctx context.Context, actor domain.Actor, serviceID string, input UpdateServiceInput) (*domain.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	svc, err := s.loadRequest(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !domain.CanBeUpdated(svc.Status) {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "update_service")
	}
	if input.EstimatedCost != nil && *input.EstimatedCost < 0 {
		return nil, apperrors.NewValidationError("estimated cost must not be negative", map[string]any{"estimated_cost": *input.EstimatedCost})
	}
	if input.ActualCost != nil && *input.ActualCost < 0 {
		return nil, apperrors.NewValidationError("actual cost must not be negative", map[string]any{"actual_cost": *input.ActualCost})
	}
	if input.Priority != nil && !input.Priority.IsValid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}

	oldStatus := svc.Status
	var changes []string

	if input.Status != nil && *input.Status != svc.Status {
		if !input.Status.IsValid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
		}
		if !domain.CanTransition(svc.Status, *input.Status, svc.HasEmployee()) {
			if domain.RequiresEmployee(*input.Status) && !svc.HasEmployee() {
				return nil, apperrors.NewValidationError("cannot transition to this status without assigned employee", nil)
			}
			return nil, apperrors.NewInvalidTransition(string(svc.Status), fmt.Sprintf("set status %s", *input.Status))
		}
		changes = append(changes, fmt.Sprintf("Status changed from %s to %s", svc.Status, *input.Status))
		svc.Status = *input.Status
	}
	if input.ScheduledDate != nil && !equalTimePtr(svc.ScheduledDate, input.ScheduledDate) {
		changes = append(changes, "Scheduled date updated")
		svc.ScheduledDate = input.ScheduledDate
	}
	if input.Priority != nil && *input.Priority != svc.Priority {
		changes = append(changes, "Priority updated")
		svc.Priority = *input.Priority
	}
	if input.Diagnosis != nil && *input.Diagnosis != svc.Diagnosis {
		changes = append(changes, "Diagnosis updated")
		svc.Diagnosis = *input.Diagnosis
	}
	if input.ServicePlan != nil && *input.ServicePlan != svc.ServicePlan {
		changes = append(changes, "Service plan updated")
		svc.ServicePlan = *input.ServicePlan
	}
	if input.PartsNeeded != nil && *input.PartsNeeded != svc.PartsNeeded {
		changes = append(changes, "Parts needed updated")
		svc.PartsNeeded = *input.PartsNeeded
	}
	if input.Notes != nil && *input.Notes != svc.Notes {
		changes = append(changes, "Notes updated")
		svc.Notes = *input.Notes
	}
	if input.EstimatedCost != nil && !equalFloatPtr(svc.EstimatedCost, input.EstimatedCost) {
		changes = append(changes, "Estimated cost updated")
		svc.EstimatedCost = input.EstimatedCost
	}
	if input.ActualCost != nil && !equalFloatPtr(svc.ActualCost, input.ActualCost) {
		changes = append(changes, "Actual cost updated")
		svc.ActualCost = input.ActualCost
	}

	if len(changes) == 0 {
		return svc, nil
	}

	category := domain.CategoryGeneric
	description := "Changes made by employee: " + strings.Join(changes, "; ")
	if svc.Status != oldStatus {
		category = domain.CategoryStatusChange
		description = strings.Join(changes, "; ")
	}
	entry := s.newEntry(actor, category, description)
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	if svc.Status != oldStatus {
		s.publishStatusChange(ctx, svc.ID, actor, oldStatus, svc.Status, "")
	}
	return svc, nil
}

// ApproveService records the owning client's approval of the service plan.
func (s *LifecycleService) ApproveService(ctx context.Context, actor domain.Actor, serviceID string) (*domain.ServiceRequest, error) {
	svc, err := s.loadOwned(ctx, actor, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != domain.StatusDiagnosisCompleted {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "approve_service")
	}

	oldStatus := svc.Status
	svc.Status = domain.StatusClientApproved
	entry := s.newEntry(actor, domain.CategoryConfirmation, "Client approved the service plan")
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, svc.ID, actor, oldStatus, svc.Status, "")
	return svc, nil
}

// RequestChanges sends the diagnosis back for consultation with the client's
// requested amendments.
func (s *LifecycleService) RequestChanges(ctx context.Context, actor domain.Actor, serviceID, changeRequest string) (*domain.ServiceRequest, error) {
	svc, err := s.loadOwned(ctx, actor, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != domain.StatusDiagnosisCompleted {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "request_changes")
	}
	if strings.TrimSpace(changeRequest) == "" {
		return nil, apperrors.NewValidationError("change request text required", nil)
	}

	oldStatus := svc.Status
	svc.Status = domain.StatusClientConsultation
	entry := s.newEntry(actor, domain.CategoryClientRequest, fmt.Sprintf("Client requested changes: %s", changeRequest))
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, svc.ID, actor, oldStatus, svc.Status, "")
	return svc, nil
}

// MakePayment records the payment method and marks the payment as received.
func (s *LifecycleService) MakePayment(ctx context.Context, actor domain.Actor, serviceID, paymentMethod string) (*domain.ServiceRequest, error) {
	svc, err := s.loadOwned(ctx, actor, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != domain.StatusReadyForPayment {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "make_payment")
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return nil, apperrors.NewValidationError("payment method required", nil)
	}

	oldStatus := svc.Status
	svc.Status = domain.StatusPaymentReceived
	entry := s.newEntry(actor, domain.CategoryPayment, fmt.Sprintf("Payment received via %s", paymentMethod))
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventServicePaymentReceived, svc.ID, actor, events.ServicePaymentReceivedPayload{PaymentMethod: paymentMethod})
	return svc, nil
}

// ConfirmPickup finishes the request once the client collects the vehicle.
func (s *LifecycleService) ConfirmPickup(ctx context.Context, actor domain.Actor, serviceID string) (*domain.ServiceRequest, error) {
	svc, err := s.loadOwned(ctx, actor, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != domain.StatusReadyForPickup {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "confirm_pickup")
	}

	oldStatus := svc.Status
	svc.Status = domain.StatusFinished
	entry := s.newEntry(actor, domain.CategoryConfirmation, "Client confirmed vehicle pickup")
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, svc.ID, actor, oldStatus, svc.Status, "")
	return svc, nil
}

// ContinueAfterPayment decides what happens after payment: release the vehicle
// or loop back into service.
func (s *LifecycleService) ContinueAfterPayment(ctx context.Context, actor domain.Actor, serviceID string, target domain.ServiceStatus, note string) (*domain.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(note) == "" {
		return nil, apperrors.NewValidationError("status note required", nil)
	}
	if target != domain.StatusReadyForPickup && target != domain.StatusInProgress {
		return nil, apperrors.NewValidationError("target status must be ready_for_pickup or in_progress", map[string]any{"status": target})
	}
	svc, err := s.loadRequest(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != domain.StatusPaymentReceived {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "update_service_status")
	}

	oldStatus := svc.Status
	svc.Status = target
	entry := s.newEntry(actor, domain.CategoryStatusChange,
		fmt.Sprintf("Status changed from %s to %s. Note: %s", oldStatus, target, note))
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, svc.ID, actor, oldStatus, svc.Status, note)
	return svc, nil
}

// Assign sets or changes the assigned employee. An empty employeeID assigns
// the acting staff member. Assigning a pending request also accepts it.
func (s *LifecycleService) Assign(ctx context.Context, actor domain.Actor, serviceID, employeeID string) (*domain.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if employeeID == "" {
		employeeID = actor.ID
	}
	employee, err := s.users.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("employee", map[string]any{"employee_id": employeeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !employee.Role.IsStaff() {
		return nil, apperrors.NewValidationError("assignee must be an employee", map[string]any{"employee_id": employeeID})
	}

	svc, err := s.loadRequest(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status.IsTerminal() {
		return nil, apperrors.NewInvalidTransition(string(svc.Status), "assign")
	}

	oldStatus := svc.Status
	var description string
	if svc.Status == domain.StatusPending {
		svc.Status = domain.StatusAccepted
		description = fmt.Sprintf("Service assigned to %s", employee.FullName())
	} else {
		oldName := "None"
		if svc.HasEmployee() {
			if previous, err := s.users.GetByID(ctx, *svc.EmployeeID); err == nil {
				oldName = previous.FullName()
			}
		}
		description = fmt.Sprintf("Service reassigned from %s to %s", oldName, employee.FullName())
	}
	svc.EmployeeID = &employee.ID

	entry := s.newEntry(actor, domain.CategoryAssignment, description)
	if err := s.commit(ctx, svc, oldStatus, entry); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventServiceAssigned, svc.ID, actor, events.ServiceAssignedPayload{EmployeeID: svc.EmployeeID})
	return svc, nil
}

// Delete removes the request and its history. Admin only.
func (s *LifecycleService) Delete(ctx context.Context, actor domain.Actor, serviceID string) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	if err := s.services.Delete(ctx, serviceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("service request", map[string]any{"service_id": serviceID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// GetForClient returns a request plus its history for the owning client.
func (s *LifecycleService) GetForClient(ctx context.Context, actor domain.Actor, serviceID string) (*domain.ServiceRequest, []domain.ServiceHistory, error) {
	svc, err := s.loadOwned(ctx, actor, serviceID)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.history.ListByService(ctx, svc.ID, 0, 0)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return svc, history, nil
}

// GetForStaff returns a request plus its history for staff.
func (s *LifecycleService) GetForStaff(ctx context.Context, actor domain.Actor, serviceID string) (*domain.ServiceRequest, []domain.ServiceHistory, error) {
	if err := requireStaff(actor); err != nil {
		return nil, nil, err
	}
	svc, err := s.loadRequest(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.history.ListByService(ctx, svc.ID, 0, 0)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return svc, history, nil
}

// ListForClient returns the client's own requests.
func (s *LifecycleService) ListForClient(ctx context.Context, actor domain.Actor, filter repository.ServiceFilter) ([]domain.ServiceRequest, error) {
	clientID := actor.ID
	filter.ClientID = &clientID
	result, err := s.services.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListForStaff returns requests matching the filter for staff.
func (s *LifecycleService) ListForStaff(ctx context.Context, actor domain.Actor, filter repository.ServiceFilter) ([]domain.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	result, err := s.services.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// StatusSummary returns the number of requests per status for staff dashboards.
func (s *LifecycleService) StatusSummary(ctx context.Context, actor domain.Actor) (map[domain.ServiceStatus]int64, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	counts, err := s.services.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return counts, nil
}

func (s *LifecycleService) loadRequest(ctx context.Context, serviceID string) (*domain.ServiceRequest, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"service_id": serviceID})
		}
		return nil, apperrors.MapError(err)
	}
	return svc, nil
}

func (s *LifecycleService) loadOwned(ctx context.Context, actor domain.Actor, serviceID string) (*domain.ServiceRequest, error) {
	if actor.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("client role required")
	}
	svc, err := s.loadRequest(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsOwnedBy(actor.ID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return svc, nil
}

func (s *LifecycleService) commit(ctx context.Context, svc *domain.ServiceRequest, expected domain.ServiceStatus, entry *domain.ServiceHistory) error {
	err := s.services.UpdateGuarded(ctx, svc, expected, entry)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStaleStatus):
		return apperrors.NewStaleState("")
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("service request", map[string]any{"service_id": svc.ID})
	default:
		return apperrors.MapError(err)
	}
}

func (s *LifecycleService) newEntry(actor domain.Actor, category domain.HistoryCategory, description string) *domain.ServiceHistory {
	return &domain.ServiceHistory{
		ActorID:     actor.ID,
		Category:    category,
		Description: description,
		CreatedAt:   s.clock(),
	}
}

func (s *LifecycleService) actorName(ctx context.Context, actor domain.Actor) (string, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("user", map[string]any{"user_id": actor.ID})
		}
		return "", apperrors.MapError(err)
	}
	return user.FullName(), nil
}

func (s *LifecycleService) publish(ctx context.Context, eventType events.EventType, serviceID string, actor domain.Actor, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ServiceID: serviceID,
		Actor:     actor,
		Timestamp: s.clock(),
		Payload:   payload,
	})
}

func (s *LifecycleService) publishStatusChange(ctx context.Context, serviceID string, actor domain.Actor, oldStatus, newStatus domain.ServiceStatus, comment string) {
	s.publish(ctx, events.EventServiceStatusChanged, serviceID, actor, events.ServiceStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Comment:   comment,
	})
}

func requireStaff(actor domain.Actor) error {
	if !actor.Role.IsStaff() {
		return apperrors.NewForbidden("staff role required")
	}
	return nil
}

func generateServiceKey() string {
	return "SRV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
