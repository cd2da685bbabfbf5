package repository

import (
	"context"
	"errors"
	"time"

	"trafficwatch-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ZoneRepository struct {
	collection *mongo.Collection
}

func NewZoneRepository(db *mongo.Database) *ZoneRepository {
	return &ZoneRepository{
		collection: db.Collection("zones"),
	}
}

func (r *ZoneRepository) Create(zone *models.TrafficZone) (*models.TrafficZone, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, zone)
	if err != nil {
		return nil, err
	}

	zone.ID = result.InsertedID.(primitive.ObjectID)
	return zone, nil
}

func (r *ZoneRepository) FindByID(id string) (*models.TrafficZone, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.New("invalid zone ID")
	}

	var zone models.TrafficZone
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&zone)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.New("zone not found")
		}
		return nil, err
	}

	return &zone, nil
}

func (r *ZoneRepository) FindByName(name string) (*models.TrafficZone, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var zone models.TrafficZone
	err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&zone)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.New("zone not found")
		}
		return nil, err
	}

	return &zone, nil
}

func (r *ZoneRepository) FindAll() ([]*models.TrafficZone, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var zones []*models.TrafficZone
	for cursor.Next(ctx) {
		var zone models.TrafficZone
		if err := cursor.Decode(&zone); err != nil {
			return nil, err
		}
		zones = append(zones, &zone)
	}

	return zones, nil
}

func (r *ZoneRepository) FindByDistrict(district string) ([]*models.TrafficZone, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"district": district})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var zones []*models.TrafficZone
	for cursor.Next(ctx) {
		var zone models.TrafficZone
		if err := cursor.Decode(&zone); err != nil {
			return nil, err
		}
		zones = append(zones, &zone)
	}

	return zones, nil
}

func (r *ZoneRepository) FindByCongestionLevel(level string) ([]*models.TrafficZone, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"congestion_level": level})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var zones []*models.TrafficZone
	for cursor.Next(ctx) {
		var zone models.TrafficZone
		if err := cursor.Decode(&zone); err != nil {
			return nil, err
		}
		zones = append(zones, &zone)
	}

	return zones, nil
}

// FindInRadius returns monitored zones within radiusKm of the given point.
func (r *ZoneRepository) FindInRadius(lat, lng, radiusKm float64) ([]*models.TrafficZone, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Bounding-box approximation; precise queries would use $geoNear
	latRange := radiusKm / 111.0
	lngRange := radiusKm / (111.0 * 0.7)

	filter := bson.M{
		"monitored": true,
		"location.lat": bson.M{
			"$gte": lat - latRange,
			"$lte": lat + latRange,
		},
		"location.lng": bson.M{
			"$gte": lng - lngRange,
			"$lte": lng + lngRange,
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var zones []*models.TrafficZone
	for cursor.Next(ctx) {
		var zone models.TrafficZone
		if err := cursor.Decode(&zone); err != nil {
			return nil, err
		}
		zones = append(zones, &zone)
	}

	return zones, nil
}

func (r *ZoneRepository) Update(id string, zone *models.TrafficZone) (*models.TrafficZone, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.New("invalid zone ID")
	}

	zone.UpdatedAt = time.Now()

	result := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": zone},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updatedZone models.TrafficZone
	if err := result.Decode(&updatedZone); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.New("zone not found")
		}
		return nil, err
	}

	return &updatedZone, nil
}

func (r *ZoneRepository) UpdateCongestion(id string, level string, avgSpeed float64, vehicleCount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.New("invalid zone ID")
	}

	update := bson.M{
		"$set": bson.M{
			"congestion_level": level,
			"avg_speed":        avgSpeed,
			"vehicle_count":    vehicleCount,
			"updated_at":       time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return errors.New("zone not found")
	}

	return nil
}

func (r *ZoneRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.New("invalid zone ID")
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return errors.New("zone not found")
	}

	return nil
}

func (r *ZoneRepository) Count() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{})
}

// CongestionBreakdown groups monitored zones by congestion_level.
func (r *ZoneRepository) CongestionBreakdown() (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{"monitored": true}},
		{
			"$group": bson.M{
				"_id":   "$congestion_level",
				"count": bson.M{"$sum": 1},
			},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			Level string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Level] = row.Count
	}

	return counts, nil
}
