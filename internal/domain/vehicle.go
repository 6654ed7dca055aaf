package domain

import "time"

// Vehicle belongs to exactly one client and is the target of service requests.
type Vehicle struct {
	ID           string
	OwnerID      string
	Make         string
	Model        string
	Year         int
	VIN          string
	LicensePlate string
	Color        string
	Mileage      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName returns a human-readable identifier for the vehicle.
func (v *Vehicle) DisplayName() string {
	return v.Make + " " + v.Model + " (" + v.LicensePlate + ")"
}
