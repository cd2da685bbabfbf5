package services

import (
	"errors"
	"time"

	"trafficwatch-backend/internal/models"
	"trafficwatch-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleService struct {
	vehicleRepo *repository.VehicleRepository
}

func NewVehicleService(vehicleRepo *repository.VehicleRepository) *VehicleService {
	return &VehicleService{
		vehicleRepo: vehicleRepo,
	}
}

type RegisterVehicleRequest struct {
	OwnerName   string `json:"ownerName" validate:"required,min=1,max=100"`
	PlateNumber string `json:"plateNumber" validate:"required,min=4,max=20"`
	VehicleType string `json:"vehicleType" validate:"required,oneof=car motorcycle truck bus auto"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Year        int    `json:"year,omitempty" validate:"omitempty,min=1950,max=2030"`
	Color       string `json:"color,omitempty"`
}

type UpdateVehicleRequest struct {
	OwnerName   string `json:"ownerName,omitempty"`
	PlateNumber string `json:"plateNumber,omitempty"`
	VehicleType string `json:"vehicleType,omitempty" validate:"omitempty,oneof=car motorcycle truck bus auto"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Year        int    `json:"year,omitempty" validate:"omitempty,min=1950,max=2030"`
	Color       string `json:"color,omitempty"`
}

func (s *VehicleService) GetAllVehicles() ([]*models.Vehicle, error) {
	return s.vehicleRepo.FindAll()
}

func (s *VehicleService) GetVehicleByID(id string) (*models.Vehicle, error) {
	return s.vehicleRepo.FindByID(id)
}

func (s *VehicleService) GetVehiclesByOwner(ownerID string) ([]*models.Vehicle, error) {
	return s.vehicleRepo.FindByOwner(ownerID)
}

func (s *VehicleService) GetVehiclesByType(vehicleType string) ([]*models.Vehicle, error) {
	return s.vehicleRepo.FindByType(vehicleType)
}

func (s *VehicleService) RegisterVehicle(ownerID string, req *RegisterVehicleRequest) (*models.Vehicle, error) {
	existingVehicle, _ := s.vehicleRepo.FindByPlateNumber(req.PlateNumber)
	if existingVehicle != nil {
		return nil, errors.New("plate number already registered")
	}

	vehicle := &models.Vehicle{
		ID:          primitive.NewObjectID(),
		OwnerID:     ownerID,
		OwnerName:   req.OwnerName,
		PlateNumber: req.PlateNumber,
		VehicleType: req.VehicleType,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Color:       req.Color,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	return s.vehicleRepo.Create(vehicle)
}

func (s *VehicleService) UpdateVehicle(id string, req *UpdateVehicleRequest) (*models.Vehicle, error) {
	vehicle, err := s.vehicleRepo.FindByID(id)
	if err != nil {
		return nil, errors.New("vehicle not found")
	}

	if req.PlateNumber != "" {
		existingVehicle, _ := s.vehicleRepo.FindByPlateNumber(req.PlateNumber)
		if existingVehicle != nil && existingVehicle.ID.Hex() != id {
			return nil, errors.New("plate number already registered")
		}
		vehicle.PlateNumber = req.PlateNumber
	}
	if req.OwnerName != "" {
		vehicle.OwnerName = req.OwnerName
	}
	if req.VehicleType != "" {
		vehicle.VehicleType = req.VehicleType
	}
	if req.Make != "" {
		vehicle.Make = req.Make
	}
	if req.Model != "" {
		vehicle.Model = req.Model
	}
	if req.Year > 0 {
		vehicle.Year = req.Year
	}
	if req.Color != "" {
		vehicle.Color = req.Color
	}

	vehicle.UpdatedAt = time.Now()

	return s.vehicleRepo.Update(id, vehicle)
}

func (s *VehicleService) DeleteVehicle(id string) error {
	if _, err := s.vehicleRepo.FindByID(id); err != nil {
		return errors.New("vehicle not found")
	}

	return s.vehicleRepo.Delete(id)
}

func (s *VehicleService) CountVehicles() (int64, error) {
	return s.vehicleRepo.Count()
}

func (s *VehicleService) CountVehiclesByType() (map[string]int64, error) {
	return s.vehicleRepo.CountByType()
}
