package handlers

import (
	"time"

	"github.com/spec-kit/car-service/internal/api/dto"
	"github.com/spec-kit/car-service/internal/domain"
)

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
		Address:   user.Address,
		Active:    user.Active,
		LastLogin: user.LastLogin,
		CreatedAt: user.CreatedAt,
	}
}

func vehicleResponse(vehicle *domain.Vehicle) dto.VehicleResponse {
	return dto.VehicleResponse{
		ID:           vehicle.ID,
		OwnerID:      vehicle.OwnerID,
		Make:         vehicle.Make,
		Model:        vehicle.Model,
		Year:         vehicle.Year,
		VIN:          vehicle.VIN,
		LicensePlate: vehicle.LicensePlate,
		Color:        vehicle.Color,
		Mileage:      vehicle.Mileage,
		DisplayName:  vehicle.DisplayName(),
		CreatedAt:    vehicle.CreatedAt,
		UpdatedAt:    vehicle.UpdatedAt,
	}
}

func serviceSummary(svc *domain.ServiceRequest) dto.ServiceSummary {
	return dto.ServiceSummary{
		ID:            svc.ID,
		ExternalKey:   svc.ExternalKey,
		ClientID:      svc.ClientID,
		VehicleID:     svc.VehicleID,
		EmployeeID:    svc.EmployeeID,
		Status:        svc.Status,
		StatusColor:   svc.StatusColor(),
		Priority:      svc.Priority,
		PriorityColor: svc.PriorityColor(),
		Description:   svc.Description,
		PreferredDate: svc.PreferredDate,
		ScheduledDate: svc.ScheduledDate,
		CreatedAt:     svc.CreatedAt,
		UpdatedAt:     svc.UpdatedAt,
	}
}

func serviceDetail(svc *domain.ServiceRequest, history []domain.ServiceHistory) dto.ServiceDetailResponse {
	entries := make([]dto.HistoryResponse, 0, len(history))
	for i := range history {
		entries = append(entries, historyResponse(&history[i]))
	}
	return dto.ServiceDetailResponse{
		ServiceSummary:  serviceSummary(svc),
		AdditionalNotes: svc.AdditionalNotes,
		Diagnosis:       svc.Diagnosis,
		ServicePlan:     svc.ServicePlan,
		PartsNeeded:     svc.PartsNeeded,
		Notes:           svc.Notes,
		EstimatedCost:   svc.EstimatedCost,
		ActualCost:      svc.ActualCost,
		History:         entries,
	}
}

func historyResponse(entry *domain.ServiceHistory) dto.HistoryResponse {
	return dto.HistoryResponse{
		ID:          entry.ID,
		ActorID:     entry.ActorID,
		Category:    entry.Category,
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt,
	}
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &parsed
}
