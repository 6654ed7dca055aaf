package dto

import (
	"time"

	"github.com/spec-kit/car-service/internal/domain"
)

// CreateServiceRequest payload for opening a service request.
type CreateServiceRequest struct {
	ClientID        string                 `json:"client_id,omitempty"`
	VehicleID       string                 `json:"vehicle_id"`
	Description     string                 `json:"description"`
	AdditionalNotes string                 `json:"additional_notes"`
	Priority        domain.ServicePriority `json:"priority"`
	PreferredDate   *time.Time             `json:"preferred_date"`
}

// ReasonRequest payload for actions that need a mandatory reason.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ProposeDateRequest payload.
type ProposeDateRequest struct {
	ScheduledDate time.Time `json:"scheduled_date"`
}

// DateChangeRequest payload for a client date change.
type DateChangeRequest struct {
	PreferredDate time.Time `json:"preferred_date"`
	Reason        string    `json:"reason"`
}

// RequestChangesRequest payload for plan change requests.
type RequestChangesRequest struct {
	Changes string `json:"changes"`
}

// PaymentRequest payload.
type PaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// AssignRequest payload; empty employee_id assigns the acting staff member.
type AssignRequest struct {
	EmployeeID string `json:"employee_id"`
}

// PostPaymentRequest selects the next step after payment.
type PostPaymentRequest struct {
	Status domain.ServiceStatus `json:"status"`
	Note   string               `json:"note"`
}

// UpdateServiceRequest is the staff multi-field edit; omitted fields stay
// unchanged.
type UpdateServiceRequest struct {
	Status        *domain.ServiceStatus   `json:"status"`
	Priority      *domain.ServicePriority `json:"priority"`
	ScheduledDate *time.Time              `json:"scheduled_date"`
	Diagnosis     *string                 `json:"diagnosis"`
	ServicePlan   *string                 `json:"service_plan"`
	PartsNeeded   *string                 `json:"parts_needed"`
	Notes         *string                 `json:"notes"`
	EstimatedCost *float64                `json:"estimated_cost"`
	ActualCost    *float64                `json:"actual_cost"`
}

// ServiceSummary response.
type ServiceSummary struct {
	ID            string                 `json:"id"`
	ExternalKey   string                 `json:"external_key"`
	ClientID      string                 `json:"client_id"`
	VehicleID     string                 `json:"vehicle_id"`
	EmployeeID    *string                `json:"employee_id,omitempty"`
	Status        domain.ServiceStatus   `json:"status"`
	StatusColor   string                 `json:"status_color"`
	Priority      domain.ServicePriority `json:"priority"`
	PriorityColor string                 `json:"priority_color"`
	Description   string                 `json:"description"`
	PreferredDate *time.Time             `json:"preferred_date,omitempty"`
	ScheduledDate *time.Time             `json:"scheduled_date,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// ServiceDetailResponse provides full request info including the ledger.
type ServiceDetailResponse struct {
	ServiceSummary
	AdditionalNotes string            `json:"additional_notes,omitempty"`
	Diagnosis       string            `json:"diagnosis,omitempty"`
	ServicePlan     string            `json:"service_plan,omitempty"`
	PartsNeeded     string            `json:"parts_needed,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	EstimatedCost   *float64          `json:"estimated_cost,omitempty"`
	ActualCost      *float64          `json:"actual_cost,omitempty"`
	History         []HistoryResponse `json:"history"`
}

// HistoryResponse represents one ledger entry.
type HistoryResponse struct {
	ID          string                 `json:"id"`
	ActorID     string                 `json:"actor_id"`
	Category    domain.HistoryCategory `json:"category"`
	Description string                 `json:"description"`
	CreatedAt   time.Time              `json:"created_at"`
}

// StatusSummaryResponse is the staff dashboard payload.
type StatusSummaryResponse struct {
	Counts map[domain.ServiceStatus]int64 `json:"counts"`
	Total  int64                          `json:"total"`
}
