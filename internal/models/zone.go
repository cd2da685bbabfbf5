package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TrafficZone struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name" validate:"required"`
	District        string             `bson:"district" json:"district" validate:"required"`
	State           string             `bson:"state" json:"state" validate:"required"`
	Location        Location           `bson:"location" json:"location"`
	RadiusKM        float64            `bson:"radius_km" json:"radiusKm"`
	CongestionLevel string             `bson:"congestion_level" json:"congestionLevel" validate:"omitempty,oneof=low moderate high severe"`
	AvgSpeed        float64            `bson:"avg_speed" json:"avgSpeed"`
	VehicleCount    int                `bson:"vehicle_count" json:"vehicleCount"`
	SignalCount     int                `bson:"signal_count" json:"signalCount"`
	Monitored       bool               `bson:"monitored" json:"monitored"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updatedAt"`
}
