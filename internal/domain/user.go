package domain

import "time"

// Role enumerates account roles in the shop.
type Role string

const (
	RoleClient   Role = "client"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// IsStaff reports whether the role belongs to shop personnel.
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// User is the domain model for all accounts: clients, employees and admins.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	Phone        string
	Address      string
	Active       bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName returns first and last name, falling back to the username.
func (u *User) FullName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

// IsAdmin reports whether the user is an administrator.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsEmployee reports whether the user is an employee.
func (u *User) IsEmployee() bool {
	return u.Role == RoleEmployee
}

// IsClient reports whether the user is a client.
func (u *User) IsClient() bool {
	return u.Role == RoleClient
}
