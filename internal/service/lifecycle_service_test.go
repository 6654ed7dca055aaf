package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/car-service/internal/domain"
	"github.com/spec-kit/car-service/internal/events"
	"github.com/spec-kit/car-service/internal/repository"
	apperrors "github.com/spec-kit/car-service/pkg/util/errorutil"
)

type lifecycleEnv struct {
	store       *memStore
	serviceRepo *fakeServiceRepo
	dispatcher  *recordingDispatcher
	lifecycle   *LifecycleService

	client      domain.Actor
	otherClient domain.Actor
	employee    domain.Actor
	employee2   domain.Actor
	admin       domain.Actor
	vehicleID   string
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()
	store := newMemStore()
	users := &fakeUserRepo{store: store}
	vehicles := &fakeVehicleRepo{store: store}
	services := &fakeServiceRepo{store: store}
	history := &fakeHistoryRepo{store: store}
	dispatcher := &recordingDispatcher{}
	clock := newTickingClock()

	lifecycle := NewLifecycleService(LifecycleDependencies{
		ServiceRepo: services,
		HistoryRepo: history,
		UserRepo:    users,
		VehicleRepo: vehicles,
		Dispatcher:  dispatcher,
		Clock:       clock.Now,
	})

	env := &lifecycleEnv{
		store:       store,
		serviceRepo: services,
		dispatcher:  dispatcher,
		lifecycle:   lifecycle,
	}

	seed := func(username, first, last string, role domain.Role) domain.Actor {
		user := &domain.User{
			Username:  username,
			Email:     username + "@example.com",
			Role:      role,
			FirstName: first,
			LastName:  last,
			Active:    true,
		}
		require.NoError(t, users.Create(context.Background(), user))
		return domain.Actor{ID: user.ID, Role: role}
	}

	env.client = seed("carla", "Carla", "Client", domain.RoleClient)
	env.otherClient = seed("oscar", "Oscar", "Other", domain.RoleClient)
	env.employee = seed("eve", "Eve", "Employee", domain.RoleEmployee)
	env.employee2 = seed("mark", "Mark", "Mechanic", domain.RoleEmployee)
	env.admin = seed("alice", "Alice", "Admin", domain.RoleAdmin)

	vehicle := &domain.Vehicle{
		OwnerID:      env.client.ID,
		Make:         "Toyota",
		Model:        "Corolla",
		Year:         2019,
		VIN:          "JTDBR32E720123456",
		LicensePlate: "AB-123-CD",
	}
	require.NoError(t, vehicles.Create(context.Background(), vehicle))
	env.vehicleID = vehicle.ID

	return env
}

func (e *lifecycleEnv) createPending(t *testing.T) *domain.ServiceRequest {
	t.Helper()
	preferred := time.Date(2026, time.March, 20, 10, 0, 0, 0, time.UTC)
	svc, err := e.lifecycle.CreateRequest(context.Background(), e.client, CreateRequestInput{
		VehicleID:     e.vehicleID,
		Description:   "Brakes squeal at low speed",
		PreferredDate: &preferred,
	})
	require.NoError(t, err)
	return svc
}

// forceState puts a request into an arbitrary point of the workflow, standing
// in for the staff steps a test does not exercise.
func (e *lifecycleEnv) forceState(t *testing.T, serviceID string, status domain.ServiceStatus, employeeID *string) {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	svc, ok := e.store.services[serviceID]
	require.True(t, ok)
	svc.Status = status
	svc.EmployeeID = employeeID
}

func (e *lifecycleEnv) historyFor(serviceID string) []domain.ServiceHistory {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return append([]domain.ServiceHistory{}, e.store.history[serviceID]...)
}

func TestCreateRequest(t *testing.T) {
	env := newLifecycleEnv(t)

	svc := env.createPending(t)

	assert.Equal(t, domain.StatusPending, svc.Status)
	assert.Equal(t, domain.PriorityNormal, svc.Priority)
	assert.Equal(t, env.client.ID, svc.ClientID)
	assert.False(t, svc.HasEmployee())
	assert.NotEmpty(t, svc.ExternalKey)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "Service request created", entries[0].Description)
	assert.Equal(t, domain.CategoryGeneric, entries[0].Category)
	assert.Equal(t, env.client.ID, entries[0].ActorID)

	created := env.dispatcher.byType(events.EventServiceCreated)
	require.Len(t, created, 1)
	assert.Equal(t, svc.ID, created[0].ServiceID)
}

func TestCreateRequestValidation(t *testing.T) {
	env := newLifecycleEnv(t)
	preferred := time.Date(2026, time.March, 20, 10, 0, 0, 0, time.UTC)

	_, err := env.lifecycle.CreateRequest(context.Background(), env.client, CreateRequestInput{
		VehicleID:     env.vehicleID,
		PreferredDate: &preferred,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = env.lifecycle.CreateRequest(context.Background(), env.client, CreateRequestInput{
		VehicleID:   env.vehicleID,
		Description: "No date given",
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = env.lifecycle.CreateRequest(context.Background(), env.otherClient, CreateRequestInput{
		VehicleID:     env.vehicleID,
		Description:   "Not my car",
		PreferredDate: &preferred,
	})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = env.lifecycle.CreateRequest(context.Background(), env.client, CreateRequestInput{
		VehicleID:     "veh-missing",
		Description:   "Ghost vehicle",
		PreferredDate: &preferred,
	})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = env.lifecycle.CreateRequest(context.Background(), env.employee, CreateRequestInput{
		VehicleID:     env.vehicleID,
		Description:   "Missing client id",
		PreferredDate: &preferred,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	svc, err := env.lifecycle.CreateRequest(context.Background(), env.employee, CreateRequestInput{
		ClientID:      env.client.ID,
		VehicleID:     env.vehicleID,
		Description:   "Walk-in customer",
		PreferredDate: &preferred,
	})
	require.NoError(t, err)
	assert.Equal(t, env.client.ID, svc.ClientID)
}

func TestAcceptAssignsEmployee(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)

	_, err := env.lifecycle.Accept(context.Background(), env.client, svc.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	accepted, err := env.lifecycle.Accept(context.Background(), env.employee, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.EmployeeID)
	assert.Equal(t, env.employee.ID, *accepted.EmployeeID)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "Service accepted by Eve Employee", entries[1].Description)
	assert.Equal(t, domain.CategoryStatusChange, entries[1].Category)

	_, err = env.lifecycle.Accept(context.Background(), env.employee2, svc.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestAcceptLosesRace(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)

	// a second employee accepts between this employee's read and commit
	env.serviceRepo.beforeUpdate = func() {
		employeeID := env.employee2.ID
		env.forceState(t, svc.ID, domain.StatusAccepted, &employeeID)
	}

	_, err := env.lifecycle.Accept(context.Background(), env.employee, svc.ID)
	assert.True(t, apperrors.IsCode(err, "STALE_STATE"))

	// the loser leaves no ledger entry behind
	assert.Len(t, env.historyFor(svc.ID), 1)
}

func TestReject(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)

	_, err := env.lifecycle.Reject(context.Background(), env.employee, svc.ID, "  ")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	rejected, err := env.lifecycle.Reject(context.Background(), env.employee, svc.ID, "no capacity this month")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, rejected.Status)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "Service rejected by employee. Reason: no capacity this month", entries[1].Description)
	assert.Equal(t, domain.CategoryCancellation, entries[1].Category)

	require.Len(t, env.dispatcher.byType(events.EventServiceCancelled), 1)
}

func TestProposeDate(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)
	date := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)

	scheduled, err := env.lifecycle.ProposeDate(context.Background(), env.employee, svc.ID, date)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, scheduled.Status)
	require.NotNil(t, scheduled.ScheduledDate)
	assert.True(t, scheduled.ScheduledDate.Equal(date))
	require.NotNil(t, scheduled.EmployeeID)
	assert.Equal(t, env.employee.ID, *scheduled.EmployeeID)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "Employee proposed new date: 2026-04-01 10:00", entries[1].Description)

	_, err = env.lifecycle.ProposeDate(context.Background(), env.employee, svc.ID, date.Add(24*time.Hour))
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestConfirmService(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)
	date := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)
	_, err := env.lifecycle.ProposeDate(context.Background(), env.employee, svc.ID, date)
	require.NoError(t, err)

	_, err = env.lifecycle.ConfirmService(context.Background(), env.otherClient, svc.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = env.lifecycle.ConfirmService(context.Background(), env.employee, svc.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	confirmed, err := env.lifecycle.ConfirmService(context.Background(), env.client, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClientConfirmed, confirmed.Status)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, "Client confirmed the service", entries[2].Description)
	assert.Equal(t, domain.CategoryConfirmation, entries[2].Category)

	_, err = env.lifecycle.ConfirmService(context.Background(), env.client, svc.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestRequestDateChange(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)
	date := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)
	_, err := env.lifecycle.ProposeDate(context.Background(), env.employee, svc.ID, date)
	require.NoError(t, err)

	newDate := time.Date(2026, time.April, 3, 14, 30, 0, 0, time.UTC)

	_, err = env.lifecycle.RequestDateChange(context.Background(), env.client, svc.ID, newDate, "")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	changed, err := env.lifecycle.RequestDateChange(context.Background(), env.client, svc.ID, newDate, "on a business trip")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, changed.Status)
	require.NotNil(t, changed.PreferredDate)
	assert.True(t, changed.PreferredDate.Equal(newDate))

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, "Client requested date change to 2026-04-03 14:30. Reason: on a business trip", entries[2].Description)
	assert.Equal(t, domain.CategoryClientRequest, entries[2].Category)
}

func TestCancelWindow(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)

	_, err := env.lifecycle.CancelService(context.Background(), env.otherClient, svc.ID, "not mine")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	cancelled, err := env.lifecycle.CancelService(context.Background(), env.client, svc.ID, "found another shop")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "Service cancelled by client. Reason: found another shop", entries[1].Description)

	working := env.createPending(t)
	employeeID := env.employee.ID
	env.forceState(t, working.ID, domain.StatusInProgress, &employeeID)

	_, err = env.lifecycle.CancelService(context.Background(), env.client, working.ID, "changed my mind")
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestUpdateService(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)

	diagnosis := "Worn front brake pads"
	_, err := env.lifecycle.UpdateService(context.Background(), env.employee, svc.ID, UpdateServiceInput{Diagnosis: &diagnosis})
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"), "pending requests are not updatable")

	employeeID := env.employee.ID
	env.forceState(t, svc.ID, domain.StatusAccepted, &employeeID)

	cost := 180.0
	updated, err := env.lifecycle.UpdateService(context.Background(), env.employee, svc.ID, UpdateServiceInput{
		Diagnosis:     &diagnosis,
		EstimatedCost: &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, diagnosis, updated.Diagnosis)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "Changes made by employee: Diagnosis updated; Estimated cost updated", entries[1].Description)
	assert.Equal(t, domain.CategoryGeneric, entries[1].Category)

	badCost := -5.0
	_, err = env.lifecycle.UpdateService(context.Background(), env.employee, svc.ID, UpdateServiceInput{ActualCost: &badCost})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	badStatus := domain.StatusInProgress
	_, err = env.lifecycle.UpdateService(context.Background(), env.employee, svc.ID, UpdateServiceInput{Status: &badStatus})
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))

	goodStatus := domain.StatusWaitingForVehicle
	moved, err := env.lifecycle.UpdateService(context.Background(), env.employee, svc.ID, UpdateServiceInput{Status: &goodStatus})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForVehicle, moved.Status)

	entries = env.historyFor(svc.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, "Status changed from accepted to waiting_for_vehicle", entries[2].Description)
	assert.Equal(t, domain.CategoryStatusChange, entries[2].Category)

	// no-op update appends nothing
	_, err = env.lifecycle.UpdateService(context.Background(), env.employee, svc.ID, UpdateServiceInput{Diagnosis: &diagnosis})
	require.NoError(t, err)
	assert.Len(t, env.historyFor(svc.ID), 3)
}

func TestApproveAndRequestChanges(t *testing.T) {
	env := newLifecycleEnv(t)
	employeeID := env.employee.ID

	svc := env.createPending(t)
	env.forceState(t, svc.ID, domain.StatusDiagnosisCompleted, &employeeID)

	approved, err := env.lifecycle.ApproveService(context.Background(), env.client, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClientApproved, approved.Status)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "Client approved the service plan", entries[1].Description)

	other := env.createPending(t)
	env.forceState(t, other.ID, domain.StatusDiagnosisCompleted, &employeeID)

	_, err = env.lifecycle.RequestChanges(context.Background(), env.client, other.ID, "")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	consulted, err := env.lifecycle.RequestChanges(context.Background(), env.client, other.ID, "please use original parts")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClientConsultation, consulted.Status)

	entries = env.historyFor(other.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "Client requested changes: please use original parts", entries[1].Description)
}

func TestPaymentAndPickupFlow(t *testing.T) {
	env := newLifecycleEnv(t)
	employeeID := env.employee.ID

	svc := env.createPending(t)
	env.forceState(t, svc.ID, domain.StatusReadyForPayment, &employeeID)

	_, err := env.lifecycle.MakePayment(context.Background(), env.client, svc.ID, "")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	paid, err := env.lifecycle.MakePayment(context.Background(), env.client, svc.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentReceived, paid.Status)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "Payment received via card", entries[1].Description)
	assert.Equal(t, domain.CategoryPayment, entries[1].Category)
	require.Len(t, env.dispatcher.byType(events.EventServicePaymentReceived), 1)

	_, err = env.lifecycle.ContinueAfterPayment(context.Background(), env.employee, svc.ID, domain.StatusCompleted, "wrong target")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	released, err := env.lifecycle.ContinueAfterPayment(context.Background(), env.employee, svc.ID, domain.StatusReadyForPickup, "car washed and parked")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyForPickup, released.Status)

	entries = env.historyFor(svc.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, "Status changed from payment_received to ready_for_pickup. Note: car washed and parked", entries[2].Description)

	finished, err := env.lifecycle.ConfirmPickup(context.Background(), env.client, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, finished.Status)

	entries = env.historyFor(svc.ID)
	require.Len(t, entries, 4)
	assert.Equal(t, "Client confirmed vehicle pickup", entries[3].Description)

	_, err = env.lifecycle.ConfirmPickup(context.Background(), env.client, svc.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestAssign(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)

	_, err := env.lifecycle.Assign(context.Background(), env.employee, svc.ID, env.client.ID)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	assigned, err := env.lifecycle.Assign(context.Background(), env.admin, svc.ID, env.employee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, assigned.Status)
	require.NotNil(t, assigned.EmployeeID)
	assert.Equal(t, env.employee.ID, *assigned.EmployeeID)

	entries := env.historyFor(svc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "Service assigned to Eve Employee", entries[1].Description)
	assert.Equal(t, domain.CategoryAssignment, entries[1].Category)

	reassigned, err := env.lifecycle.Assign(context.Background(), env.admin, svc.ID, env.employee2.ID)
	require.NoError(t, err)
	assert.Equal(t, env.employee2.ID, *reassigned.EmployeeID)

	entries = env.historyFor(svc.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, "Service reassigned from Eve Employee to Mark Mechanic", entries[2].Description)

	require.Len(t, env.dispatcher.byType(events.EventServiceAssigned), 2)

	env.forceState(t, svc.ID, domain.StatusFinished, reassigned.EmployeeID)
	_, err = env.lifecycle.Assign(context.Background(), env.admin, svc.ID, env.employee.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestDelete(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)

	err := env.lifecycle.Delete(context.Background(), env.employee, svc.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	require.NoError(t, env.lifecycle.Delete(context.Background(), env.admin, svc.ID))
	assert.Empty(t, env.historyFor(svc.ID))

	err = env.lifecycle.Delete(context.Background(), env.admin, svc.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestGetForClientHistoryNewestFirst(t *testing.T) {
	env := newLifecycleEnv(t)
	svc := env.createPending(t)
	date := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)

	_, err := env.lifecycle.ProposeDate(context.Background(), env.employee, svc.ID, date)
	require.NoError(t, err)
	_, err = env.lifecycle.ConfirmService(context.Background(), env.client, svc.ID)
	require.NoError(t, err)

	loaded, history, err := env.lifecycle.GetForClient(context.Background(), env.client, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClientConfirmed, loaded.Status)

	require.Len(t, history, 3)
	assert.Equal(t, "Client confirmed the service", history[0].Description)
	assert.Equal(t, "Employee proposed new date: 2026-04-01 10:00", history[1].Description)
	assert.Equal(t, "Service request created", history[2].Description)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].CreatedAt.After(history[i].CreatedAt))
	}

	_, _, err = env.lifecycle.GetForClient(context.Background(), env.otherClient, svc.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestListAndSummary(t *testing.T) {
	env := newLifecycleEnv(t)
	first := env.createPending(t)
	second := env.createPending(t)
	employeeID := env.employee.ID
	env.forceState(t, second.ID, domain.StatusInProgress, &employeeID)

	mine, err := env.lifecycle.ListForClient(context.Background(), env.client, repository.ServiceFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	others, err := env.lifecycle.ListForClient(context.Background(), env.otherClient, repository.ServiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, others)

	_, err = env.lifecycle.ListForStaff(context.Background(), env.client, repository.ServiceFilter{})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	all, err := env.lifecycle.ListForStaff(context.Background(), env.employee, repository.ServiceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := env.lifecycle.ListForStaff(context.Background(), env.employee, repository.ServiceFilter{
		Statuses: []domain.ServiceStatus{domain.StatusPending},
	})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	counts, err := env.lifecycle.StatusSummary(context.Background(), env.employee)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.StatusPending])
	assert.Equal(t, int64(1), counts[domain.StatusInProgress])
}
