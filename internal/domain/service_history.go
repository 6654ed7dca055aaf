package domain

import "time"

// HistoryCategory tags a history entry so display code can pick a badge
// without parsing the description text.
type HistoryCategory string

const (
	CategoryStatusChange  HistoryCategory = "STATUS_CHANGE"
	CategoryAssignment    HistoryCategory = "ASSIGNMENT"
	CategoryConfirmation  HistoryCategory = "CONFIRMATION"
	CategoryClientRequest HistoryCategory = "CLIENT_REQUEST"
	CategoryCancellation  HistoryCategory = "CANCELLATION"
	CategoryPayment       HistoryCategory = "PAYMENT"
	CategoryGeneric       HistoryCategory = "GENERIC"
)

// ServiceHistory is an immutable audit entry. Entries are only ever appended
// and are removed together with their owning request.
type ServiceHistory struct {
	ID          string
	ServiceID   string
	ActorID     string
	Category    HistoryCategory
	Description string
	CreatedAt   time.Time
}
