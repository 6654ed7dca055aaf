package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/car-service/internal/config"
	"github.com/spec-kit/car-service/internal/domain"
	"github.com/spec-kit/car-service/internal/repository"
	apperrors "github.com/spec-kit/car-service/pkg/util/errorutil"
)

// VehicleService manages the client vehicle fleet.
type VehicleService struct {
	vehicles    repository.VehicleRepository
	services    repository.ServiceRepository
	maxPerOwner int
}

// VehicleInput carries vehicle creation fields.
type VehicleInput struct {
	Make         string
	Model        string
	Year         int
	VIN          string
	LicensePlate string
	Color        string
	Mileage      int
}

// VehicleUpdateInput carries vehicle edits; nil fields are left untouched.
type VehicleUpdateInput struct {
	Make         *string
	Model        *string
	Year         *int
	LicensePlate *string
	Color        *string
	Mileage      *int
}

// NewVehicleService builds the service.
func NewVehicleService(cfg config.Config, vehicles repository.VehicleRepository, services repository.ServiceRepository) *VehicleService {
	return &VehicleService{
		vehicles:    vehicles,
		services:    services,
		maxPerOwner: cfg.Shop.MaxVehiclesPerUser,
	}
}

// AddVehicle registers a vehicle under the acting client.
func (s *VehicleService) AddVehicle(ctx context.Context, actor domain.Actor, input VehicleInput) (*domain.Vehicle, error) {
	if actor.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("client role required")
	}
	if err := validateVehicleInput(input); err != nil {
		return nil, err
	}

	if s.maxPerOwner > 0 {
		count, err := s.vehicles.CountByOwner(ctx, actor.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if count >= s.maxPerOwner {
			return nil, apperrors.NewConflict("vehicle limit reached", map[string]any{"max_vehicles": s.maxPerOwner})
		}
	}

	vin := strings.ToUpper(strings.TrimSpace(input.VIN))
	if existing, err := s.vehicles.GetByVIN(ctx, vin); err == nil && existing != nil {
		return nil, apperrors.NewConflict("vehicle with this VIN already registered", map[string]any{"vin": vin})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	vehicle := &domain.Vehicle{
		OwnerID:      actor.ID,
		Make:         strings.TrimSpace(input.Make),
		Model:        strings.TrimSpace(input.Model),
		Year:         input.Year,
		VIN:          vin,
		LicensePlate: strings.ToUpper(strings.TrimSpace(input.LicensePlate)),
		Color:        strings.TrimSpace(input.Color),
		Mileage:      input.Mileage,
	}
	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		return nil, apperrors.MapError(err)
	}
	return vehicle, nil
}

// UpdateVehicle edits a vehicle. Clients edit their own; staff edit any. The
// VIN is immutable once registered.
func (s *VehicleService) UpdateVehicle(ctx context.Context, actor domain.Actor, vehicleID string, input VehicleUpdateInput) (*domain.Vehicle, error) {
	vehicle, err := s.loadAuthorized(ctx, actor, vehicleID)
	if err != nil {
		return nil, err
	}

	if input.Make != nil {
		if strings.TrimSpace(*input.Make) == "" {
			return nil, apperrors.NewValidationError("make must not be empty", nil)
		}
		vehicle.Make = strings.TrimSpace(*input.Make)
	}
	if input.Model != nil {
		if strings.TrimSpace(*input.Model) == "" {
			return nil, apperrors.NewValidationError("model must not be empty", nil)
		}
		vehicle.Model = strings.TrimSpace(*input.Model)
	}
	if input.Year != nil {
		if err := validateYear(*input.Year); err != nil {
			return nil, err
		}
		vehicle.Year = *input.Year
	}
	if input.LicensePlate != nil {
		vehicle.LicensePlate = strings.ToUpper(strings.TrimSpace(*input.LicensePlate))
	}
	if input.Color != nil {
		vehicle.Color = strings.TrimSpace(*input.Color)
	}
	if input.Mileage != nil {
		if *input.Mileage < 0 {
			return nil, apperrors.NewValidationError("mileage must not be negative", nil)
		}
		vehicle.Mileage = *input.Mileage
	}

	if err := s.vehicles.Update(ctx, vehicle); err != nil {
		return nil, apperrors.MapError(err)
	}
	return vehicle, nil
}

// DeleteVehicle removes a vehicle that has no open service requests.
func (s *VehicleService) DeleteVehicle(ctx context.Context, actor domain.Actor, vehicleID string) error {
	vehicle, err := s.loadAuthorized(ctx, actor, vehicleID)
	if err != nil {
		return err
	}

	open, err := s.services.ListWithFilter(ctx, repository.ServiceFilter{
		VehicleID: &vehicle.ID,
		Statuses:  domain.NonTerminalStatuses(),
		Limit:     1,
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	if len(open) > 0 {
		return apperrors.NewConflict("vehicle has open service requests", map[string]any{"vehicle_id": vehicle.ID})
	}

	if err := s.vehicles.Delete(ctx, vehicle.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// GetVehicle fetches one vehicle with the same access rule as updates.
func (s *VehicleService) GetVehicle(ctx context.Context, actor domain.Actor, vehicleID string) (*domain.Vehicle, error) {
	return s.loadAuthorized(ctx, actor, vehicleID)
}

// ListMyVehicles returns the acting client's vehicles.
func (s *VehicleService) ListMyVehicles(ctx context.Context, actor domain.Actor) ([]domain.Vehicle, error) {
	if actor.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("client role required")
	}
	result, err := s.vehicles.ListByOwner(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListByOwner returns a client's vehicles for staff.
func (s *VehicleService) ListByOwner(ctx context.Context, actor domain.Actor, ownerID string) ([]domain.Vehicle, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	result, err := s.vehicles.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

func (s *VehicleService) loadAuthorized(ctx context.Context, actor domain.Actor, vehicleID string) (*domain.Vehicle, error) {
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("vehicle", map[string]any{"vehicle_id": vehicleID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.Role.IsStaff() && vehicle.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return vehicle, nil
}

func validateVehicleInput(input VehicleInput) error {
	if strings.TrimSpace(input.Make) == "" {
		return apperrors.NewValidationError("make required", nil)
	}
	if strings.TrimSpace(input.Model) == "" {
		return apperrors.NewValidationError("model required", nil)
	}
	if strings.TrimSpace(input.VIN) == "" {
		return apperrors.NewValidationError("vin required", nil)
	}
	if strings.TrimSpace(input.LicensePlate) == "" {
		return apperrors.NewValidationError("license plate required", nil)
	}
	if input.Mileage < 0 {
		return apperrors.NewValidationError("mileage must not be negative", nil)
	}
	return validateYear(input.Year)
}

func validateYear(year int) error {
	if year < 1900 || year > time.Now().Year()+1 {
		return apperrors.NewValidationError("year out of range", map[string]any{"year": year})
	}
	return nil
}
