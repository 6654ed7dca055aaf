package dto

import "time"

// VehicleRequest payload for registering a vehicle.
type VehicleRequest struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	VIN          string `json:"vin"`
	LicensePlate string `json:"license_plate"`
	Color        string `json:"color"`
	Mileage      int    `json:"mileage"`
}

// UpdateVehicleRequest carries vehicle edits; omitted fields stay unchanged.
// The VIN cannot be changed.
type UpdateVehicleRequest struct {
	Make         *string `json:"make"`
	Model        *string `json:"model"`
	Year         *int    `json:"year"`
	LicensePlate *string `json:"license_plate"`
	Color        *string `json:"color"`
	Mileage      *int    `json:"mileage"`
}

// VehicleResponse is the vehicle shape returned by the API.
type VehicleResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	VIN          string    `json:"vin"`
	LicensePlate string    `json:"license_plate"`
	Color        string    `json:"color,omitempty"`
	Mileage      int       `json:"mileage"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
