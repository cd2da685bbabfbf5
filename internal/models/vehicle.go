package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Vehicle struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     string             `bson:"owner_id" json:"ownerId" validate:"required"`
	OwnerName   string             `bson:"owner_name" json:"ownerName" validate:"required"`
	PlateNumber string             `bson:"plate_number" json:"plateNumber" validate:"required"`
	VehicleType string             `bson:"vehicle_type" json:"vehicleType" validate:"required,oneof=car motorcycle truck bus auto"`
	Make        string             `bson:"make" json:"make"`
	Model       string             `bson:"model" json:"model"`
	Year        int                `bson:"year" json:"year"`
	Color       string             `bson:"color" json:"color"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

type Location struct {
	Lat     float64 `bson:"lat" json:"lat"`
	Lng     float64 `bson:"lng" json:"lng"`
	Address string  `bson:"address" json:"address"`
}
