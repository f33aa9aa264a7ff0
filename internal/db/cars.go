package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/luxury-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CarFilter narrows a car listing. Zero values do not filter.
type CarFilter struct {
	Category  string
	Brand     string
	MinPrice  *float64
	MaxPrice  *float64
	Available *bool
}

// BSON renders the filter as a query document.
func (f CarFilter) BSON() bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Brand != "" {
		filter["brand"] = f.Brand
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["daily_rate"] = price
	}
	if f.Available != nil {
		filter["is_available"] = *f.Available
	}
	return filter
}

// CarQuery is a filtered, ordered and optionally limited car listing.
type CarQuery struct {
	Filter CarFilter
	SortBy string // bson field, defaults to daily_rate
	Desc   bool
	Limit  int64
}

func (q CarQuery) findOptions() *options.FindOptions {
	field := q.SortBy
	if field == "" {
		field = "daily_rate"
	}
	dir := 1
	if q.Desc {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return opts
}

// MongoCarCollection implements CarCollection for MongoDB.
type MongoCarCollection struct {
	Collection *mongo.Collection
}

// InsertCar stores a new car, assigning its ID and timestamps.
func (c *MongoCarCollection) InsertCar(ctx context.Context, car *models.Car) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if car.ID == "" {
		car.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	car.CreatedAt = now
	car.UpdatedAt = now

	_, err := c.Collection.InsertOne(ctx, car)
	return mapErr(err)
}

// FindCars runs a car listing query.
func (c *MongoCarCollection) FindCars(ctx context.Context, q CarQuery) ([]models.Car, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, q.Filter.BSON(), q.findOptions())
	if err != nil {
		return nil, err
	}
	cars := []models.Car{}
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// FindCarByID finds a car by its ID.
func (c *MongoCarCollection) FindCarByID(ctx context.Context, id string) (*models.Car, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var car models.Car
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&car); err != nil {
		return nil, mapErr(err)
	}
	return &car, nil
}

// FindCarsByIDs loads every car whose ID is in ids.
func (c *MongoCarCollection) FindCarsByIDs(ctx context.Context, ids []string) ([]models.Car, error) {
	if len(ids) == 0 {
		return []models.Car{}, nil
	}
	cursor, err := c.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	cars := []models.Car{}
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// UpdateCar replaces the editable fields of a car.
func (c *MongoCarCollection) UpdateCar(ctx context.Context, car *models.Car) error {
	car.UpdatedAt = time.Now().UTC()
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": car.ID}, bson.M{"$set": bson.M{
		"name":         car.Name,
		"brand":        car.Brand,
		"model":        car.Model,
		"year":         car.Year,
		"daily_rate":   car.DailyRate,
		"description":  car.Description,
		"features":     car.Features,
		"category":     car.Category,
		"image_url":    car.ImageURL,
		"is_available": car.IsAvailable,
		"updated_at":   car.UpdatedAt,
	}})
	if err != nil {
		return mapErr(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCarAvailability toggles the availability flag of a car.
func (c *MongoCarCollection) SetCarAvailability(ctx context.Context, id string, available bool) error {
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_available": available,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCar deletes a car by its ID.
func (c *MongoCarCollection) DeleteCar(ctx context.Context, id string) error {
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DistinctCarValues returns the sorted distinct non-empty values of field.
func (c *MongoCarCollection) DistinctCarValues(ctx context.Context, field string) ([]string, error) {
	values, err := c.Collection.Distinct(ctx, field, bson.M{})
	if err != nil {
		return nil, err
	}
	return distinctStrings(values), nil
}

// CountCars counts the cars matching f.
func (c *MongoCarCollection) CountCars(ctx context.Context, f CarFilter) (int64, error) {
	return c.Collection.CountDocuments(ctx, f.BSON())
}
