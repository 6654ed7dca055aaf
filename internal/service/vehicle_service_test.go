package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/car-service/internal/config"
	"github.com/spec-kit/car-service/internal/domain"
	apperrors "github.com/spec-kit/car-service/pkg/util/errorutil"
)

type vehicleEnv struct {
	store    *memStore
	service  *VehicleService
	client   domain.Actor
	other    domain.Actor
	employee domain.Actor
}

func newVehicleEnv(t *testing.T, maxVehicles int) *vehicleEnv {
	t.Helper()
	store := newMemStore()
	users := &fakeUserRepo{store: store}
	vehicles := &fakeVehicleRepo{store: store}
	services := &fakeServiceRepo{store: store}

	cfg := config.Config{}
	cfg.Shop.MaxVehiclesPerUser = maxVehicles

	env := &vehicleEnv{
		store:   store,
		service: NewVehicleService(cfg, vehicles, services),
	}

	seed := func(username string, role domain.Role) domain.Actor {
		user := &domain.User{Username: username, Email: username + "@example.com", Role: role, Active: true}
		require.NoError(t, users.Create(context.Background(), user))
		return domain.Actor{ID: user.ID, Role: role}
	}
	env.client = seed("carla", domain.RoleClient)
	env.other = seed("oscar", domain.RoleClient)
	env.employee = seed("eve", domain.RoleEmployee)
	return env
}

func validVehicleInput(vin string) VehicleInput {
	return VehicleInput{
		Make:         "Honda",
		Model:        "Civic",
		Year:         2021,
		VIN:          vin,
		LicensePlate: "xy-987-zw",
	}
}

func TestAddVehicle(t *testing.T) {
	env := newVehicleEnv(t, 5)

	_, err := env.service.AddVehicle(context.Background(), env.employee, validVehicleInput("1HGBH41JXMN109186"))
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	vehicle, err := env.service.AddVehicle(context.Background(), env.client, validVehicleInput("1hgbh41jxmn109186"))
	require.NoError(t, err)
	assert.Equal(t, "1HGBH41JXMN109186", vehicle.VIN, "vin is normalized to upper case")
	assert.Equal(t, "XY-987-ZW", vehicle.LicensePlate)
	assert.Equal(t, env.client.ID, vehicle.OwnerID)

	_, err = env.service.AddVehicle(context.Background(), env.other, validVehicleInput("1HGBH41JXMN109186"))
	assert.True(t, apperrors.IsCode(err, "CONFLICT"), "duplicate vin is rejected")

	_, err = env.service.AddVehicle(context.Background(), env.client, VehicleInput{Model: "Civic", VIN: "X", LicensePlate: "A"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	bad := validVehicleInput("5YJSA1E26MF000001")
	bad.Year = 1850
	_, err = env.service.AddVehicle(context.Background(), env.client, bad)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestAddVehicleLimit(t *testing.T) {
	env := newVehicleEnv(t, 2)

	_, err := env.service.AddVehicle(context.Background(), env.client, validVehicleInput("VIN00000000000001"))
	require.NoError(t, err)
	_, err = env.service.AddVehicle(context.Background(), env.client, validVehicleInput("VIN00000000000002"))
	require.NoError(t, err)

	_, err = env.service.AddVehicle(context.Background(), env.client, validVehicleInput("VIN00000000000003"))
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))

	// the limit is per owner
	_, err = env.service.AddVehicle(context.Background(), env.other, validVehicleInput("VIN00000000000004"))
	require.NoError(t, err)
}

func TestUpdateVehicle(t *testing.T) {
	env := newVehicleEnv(t, 5)
	vehicle, err := env.service.AddVehicle(context.Background(), env.client, validVehicleInput("VIN00000000000001"))
	require.NoError(t, err)

	mileage := 42000
	_, err = env.service.UpdateVehicle(context.Background(), env.other, vehicle.ID, VehicleUpdateInput{Mileage: &mileage})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	updated, err := env.service.UpdateVehicle(context.Background(), env.client, vehicle.ID, VehicleUpdateInput{Mileage: &mileage})
	require.NoError(t, err)
	assert.Equal(t, 42000, updated.Mileage)

	// staff may edit any vehicle
	color := "red"
	updated, err = env.service.UpdateVehicle(context.Background(), env.employee, vehicle.ID, VehicleUpdateInput{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "red", updated.Color)

	negative := -1
	_, err = env.service.UpdateVehicle(context.Background(), env.client, vehicle.ID, VehicleUpdateInput{Mileage: &negative})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestDeleteVehicle(t *testing.T) {
	env := newVehicleEnv(t, 5)
	vehicle, err := env.service.AddVehicle(context.Background(), env.client, validVehicleInput("VIN00000000000001"))
	require.NoError(t, err)

	// an open request blocks deletion
	env.store.mu.Lock()
	serviceID := env.store.nextID("srv")
	env.store.services[serviceID] = &domain.ServiceRequest{
		ID:        serviceID,
		ClientID:  env.client.ID,
		VehicleID: vehicle.ID,
		Status:    domain.StatusInProgress,
	}
	env.store.mu.Unlock()

	err = env.service.DeleteVehicle(context.Background(), env.client, vehicle.ID)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))

	env.store.mu.Lock()
	env.store.services[serviceID].Status = domain.StatusFinished
	env.store.mu.Unlock()

	require.NoError(t, env.service.DeleteVehicle(context.Background(), env.client, vehicle.ID))

	err = env.service.DeleteVehicle(context.Background(), env.client, vehicle.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestListVehicles(t *testing.T) {
	env := newVehicleEnv(t, 5)
	_, err := env.service.AddVehicle(context.Background(), env.client, validVehicleInput("VIN00000000000001"))
	require.NoError(t, err)
	_, err = env.service.AddVehicle(context.Background(), env.other, validVehicleInput("VIN00000000000002"))
	require.NoError(t, err)

	mine, err := env.service.ListMyVehicles(context.Background(), env.client)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = env.service.ListByOwner(context.Background(), env.client, env.other.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	theirs, err := env.service.ListByOwner(context.Background(), env.employee, env.other.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
