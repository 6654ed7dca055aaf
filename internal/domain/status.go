package domain

// ServiceStatus enumerates lifecycle states of a service request.
type ServiceStatus string

const (
	StatusPending            ServiceStatus = "pending"
	StatusAccepted           ServiceStatus = "accepted"
	StatusScheduled          ServiceStatus = "scheduled"
	StatusClientConfirmed    ServiceStatus = "client_confirmed"
	StatusWaitingForVehicle  ServiceStatus = "waiting_for_vehicle"
	StatusVehicleReceived    ServiceStatus = "vehicle_received"
	StatusDiagnosisPending   ServiceStatus = "diagnosis_pending"
	StatusDiagnosisCompleted ServiceStatus = "diagnosis_completed"
	StatusClientConsultation ServiceStatus = "client_consultation"
	StatusClientApproved     ServiceStatus = "client_approved"
	StatusWaitingForParts    ServiceStatus = "waiting_for_parts"
	StatusInProgress         ServiceStatus = "in_progress"
	StatusCompleted          ServiceStatus = "completed"
	StatusReadyForPayment    ServiceStatus = "ready_for_payment"
	StatusPaymentReceived    ServiceStatus = "payment_received"
	StatusReadyForPickup     ServiceStatus = "ready_for_pickup"
	StatusFinished           ServiceStatus = "finished"
	StatusCancelled          ServiceStatus = "cancelled"
)

// ServicePriority enumerates urgency levels.
type ServicePriority string

const (
	PriorityLow    ServicePriority = "low"
	PriorityNormal ServicePriority = "normal"
	PriorityHigh   ServicePriority = "high"
)

// StatusTransitions is the closed transition graph. A status may only move to
// one of its listed successors; finished and cancelled are terminal.
var StatusTransitions = map[ServiceStatus][]ServiceStatus{
	StatusPending:            {StatusAccepted, StatusCancelled},
	StatusAccepted:           {StatusScheduled, StatusCancelled, StatusWaitingForVehicle},
	StatusScheduled:          {StatusClientConfirmed, StatusPending, StatusCancelled},
	StatusClientConfirmed:    {StatusWaitingForVehicle, StatusCancelled},
	StatusWaitingForVehicle:  {StatusVehicleReceived, StatusCancelled},
	StatusVehicleReceived:    {StatusDiagnosisPending, StatusCancelled},
	StatusDiagnosisPending:   {StatusDiagnosisCompleted, StatusCancelled},
	StatusDiagnosisCompleted: {StatusClientApproved, StatusClientConsultation, StatusCancelled},
	StatusClientConsultation: {StatusDiagnosisCompleted, StatusCancelled},
	StatusClientApproved:     {StatusWaitingForParts, StatusInProgress, StatusCancelled},
	StatusWaitingForParts:    {StatusInProgress, StatusCancelled},
	StatusInProgress:         {StatusCompleted, StatusCancelled},
	StatusCompleted:          {StatusReadyForPayment, StatusCancelled},
	StatusReadyForPayment:    {StatusPaymentReceived, StatusCancelled},
	StatusPaymentReceived:    {StatusReadyForPickup, StatusInProgress, StatusCancelled},
	StatusReadyForPickup:     {StatusFinished, StatusCancelled},
	StatusFinished:           {},
	StatusCancelled:          {},
}

// clientCancellableStates lists statuses in which the owning client may cancel.
var clientCancellableStates = map[ServiceStatus]struct{}{
	StatusPending:         {},
	StatusScheduled:       {},
	StatusClientConfirmed: {},
}

// employeeDateProposalStates lists statuses in which staff may propose a date.
var employeeDateProposalStates = map[ServiceStatus]struct{}{
	StatusPending:  {},
	StatusAccepted: {},
}

// employeeRequiredStates lists statuses that cannot be entered without an
// assigned employee.
var employeeRequiredStates = map[ServiceStatus]struct{}{
	StatusAccepted:           {},
	StatusScheduled:          {},
	StatusClientConfirmed:    {},
	StatusWaitingForVehicle:  {},
	StatusVehicleReceived:    {},
	StatusDiagnosisPending:   {},
	StatusDiagnosisCompleted: {},
	StatusClientConsultation: {},
	StatusClientApproved:     {},
	StatusWaitingForParts:    {},
	StatusInProgress:         {},
	StatusCompleted:          {},
	StatusReadyForPayment:    {},
	StatusPaymentReceived:    {},
	StatusReadyForPickup:     {},
	StatusFinished:           {},
}

// updatableStates lists statuses in which staff may edit service details.
var updatableStates = map[ServiceStatus]struct{}{
	StatusAccepted:           {},
	StatusScheduled:          {},
	StatusClientConfirmed:    {},
	StatusWaitingForVehicle:  {},
	StatusVehicleReceived:    {},
	StatusDiagnosisPending:   {},
	StatusDiagnosisCompleted: {},
	StatusClientConsultation: {},
	StatusClientApproved:     {},
	StatusWaitingForParts:    {},
	StatusInProgress:         {},
	StatusCompleted:          {},
	StatusReadyForPayment:    {},
	StatusPaymentReceived:    {},
	StatusReadyForPickup:     {},
}

// statusColors maps statuses to presentation color classes.
var statusColors = map[ServiceStatus]string{
	StatusPending:            "warning",
	StatusAccepted:           "info",
	StatusScheduled:          "info",
	StatusClientConfirmed:    "info",
	StatusWaitingForVehicle:  "warning",
	StatusVehicleReceived:    "info",
	StatusDiagnosisPending:   "warning",
	StatusDiagnosisCompleted: "info",
	StatusClientConsultation: "warning",
	StatusClientApproved:     "info",
	StatusWaitingForParts:    "warning",
	StatusInProgress:         "primary",
	StatusCompleted:          "success",
	StatusReadyForPayment:    "warning",
	StatusPaymentReceived:    "success",
	StatusReadyForPickup:     "success",
	StatusFinished:           "success",
	StatusCancelled:          "danger",
}

// priorityColors maps priorities to presentation color classes.
var priorityColors = map[ServicePriority]string{
	PriorityLow:    "success",
	PriorityNormal: "info",
	PriorityHigh:   "danger",
}

// IsTerminal reports whether the status admits no further transitions.
func (s ServiceStatus) IsTerminal() bool {
	return len(StatusTransitions[s]) == 0
}

// IsValid reports whether the status is part of the enumeration.
func (s ServiceStatus) IsValid() bool {
	_, ok := StatusTransitions[s]
	return ok
}

// Color returns the presentation color class for the status.
func (s ServiceStatus) Color() string {
	if color, ok := statusColors[s]; ok {
		return color
	}
	return "secondary"
}

// IsValid reports whether the priority is part of the enumeration.
func (p ServicePriority) IsValid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// Color returns the presentation color class for the priority.
func (p ServicePriority) Color() string {
	if color, ok := priorityColors[p]; ok {
		return color
	}
	return "secondary"
}

// NonTerminalStatuses returns every status from which further transitions are
// possible.
func NonTerminalStatuses() []ServiceStatus {
	var result []ServiceStatus
	for status, next := range StatusTransitions {
		if len(next) > 0 {
			result = append(result, status)
		}
	}
	return result
}

// CanTransition reports whether a request may move from one status to another.
// Entering an employee-required status without an assigned employee is refused.
func CanTransition(from, to ServiceStatus, hasEmployee bool) bool {
	allowed := false
	for _, candidate := range StatusTransitions[from] {
		if candidate == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	if _, required := employeeRequiredStates[to]; required && !hasEmployee {
		return false
	}
	return true
}

// AllowedTransitions returns the declared successors of a status.
func AllowedTransitions(from ServiceStatus) []ServiceStatus {
	return StatusTransitions[from]
}

// ClientCanCancel reports whether the owning client may still cancel.
func ClientCanCancel(status ServiceStatus) bool {
	_, ok := clientCancellableStates[status]
	return ok
}

// ClientCanRequestDateChange reports whether the client may ask for a new date.
func ClientCanRequestDateChange(status ServiceStatus) bool {
	return status == StatusScheduled
}

// EmployeeCanProposeDate reports whether staff may propose a scheduled date.
func EmployeeCanProposeDate(status ServiceStatus) bool {
	_, ok := employeeDateProposalStates[status]
	return ok
}

// RequiresEmployee reports whether the status demands an assigned employee.
func RequiresEmployee(status ServiceStatus) bool {
	_, ok := employeeRequiredStates[status]
	return ok
}

// CanBeUpdated reports whether staff may edit service details in this status.
func CanBeUpdated(status ServiceStatus) bool {
	_, ok := updatableStates[status]
	return ok
}
