package events

import (
	"time"

	"github.com/spec-kit/car-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventServiceCreated         EventType = "service_created"
	EventServiceStatusChanged   EventType = "service_status_changed"
	EventServiceAssigned        EventType = "service_assigned"
	EventServicePaymentReceived EventType = "service_payment_received"
	EventServiceCancelled       EventType = "service_cancelled"
)

// Event represents a domain event emitted by the lifecycle engine.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	ServiceID string       `json:"service_id"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// ServiceCreatedPayload payload.
type ServiceCreatedPayload struct {
	ClientID  string                 `json:"client_id"`
	VehicleID string                 `json:"vehicle_id"`
	Priority  domain.ServicePriority `json:"priority"`
}

// ServiceStatusChangedPayload payload.
type ServiceStatusChangedPayload struct {
	OldStatus domain.ServiceStatus `json:"old_status"`
	NewStatus domain.ServiceStatus `json:"new_status"`
	Comment   string               `json:"comment,omitempty"`
}

// ServiceAssignedPayload payload.
type ServiceAssignedPayload struct {
	EmployeeID *string `json:"employee_id,omitempty"`
}

// ServicePaymentReceivedPayload payload.
type ServicePaymentReceivedPayload struct {
	PaymentMethod string `json:"payment_method"`
}

// ServiceCancelledPayload payload.
type ServiceCancelledPayload struct {
	Reason string `json:"reason"`
}
