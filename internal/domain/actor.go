package domain

// Actor identifies who performs a workflow action. Every engine call receives
// it explicitly; there is no ambient session lookup.
type Actor struct {
	ID   string
	Role Role
}
