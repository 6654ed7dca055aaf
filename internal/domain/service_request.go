package domain

import "time"

// ServiceRequest is the aggregate for a shop work order. Client and vehicle are
// fixed at creation; status only moves through the transition graph.
type ServiceRequest struct {
	ID              string
	ExternalKey     string
	ClientID        string
	VehicleID       string
	EmployeeID      *string
	Status          ServiceStatus
	Priority        ServicePriority
	Description     string
	AdditionalNotes string
	Diagnosis       string
	ServicePlan     string
	PartsNeeded     string
	Notes           string
	PreferredDate   *time.Time
	ScheduledDate   *time.Time
	EstimatedCost   *float64
	ActualCost      *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasEmployee reports whether an employee is assigned.
func (s *ServiceRequest) HasEmployee() bool {
	return s.EmployeeID != nil && *s.EmployeeID != ""
}

// IsOwnedBy reports whether the given client owns the request.
func (s *ServiceRequest) IsOwnedBy(clientID string) bool {
	return s.ClientID == clientID
}

// StatusColor returns the presentation color for the current status.
func (s *ServiceRequest) StatusColor() string {
	return s.Status.Color()
}

// PriorityColor returns the presentation color for the current priority.
func (s *ServiceRequest) PriorityColor() string {
	return s.Priority.Color()
}
