package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/luxury-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BookingFilter narrows a booking listing. Zero values do not filter.
type BookingFilter struct {
	UserID string
	CarID  string
	Status models.BookingStatus
}

// BSON renders the filter as a query document.
func (f BookingFilter) BSON() bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.CarID != "" {
		filter["car_id"] = f.CarID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

// overlapFilter matches the live bookings of carID sharing at least one
// calendar day (UTC) with [start, end]. Both bounds must hold. The range is
// widened to whole days so a stored time of day never hides a billed day.
func overlapFilter(carID string, start, end time.Time) bson.M {
	first := utcDay(start)
	last := utcDay(end).Add(24*time.Hour - time.Millisecond)
	return bson.M{
		"car_id":     carID,
		"status":     bson.M{"$ne": models.BookingCancelled},
		"start_date": bson.M{"$lte": last},
		"end_date":   bson.M{"$gte": first},
	}
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MongoBookingCollection implements BookingCollection for MongoDB.
type MongoBookingCollection struct {
	Collection *mongo.Collection
}

// InsertBooking stores a new booking, assigning its ID and timestamps.
func (c *MongoBookingCollection) InsertBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := c.Collection.InsertOne(ctx, b)
	return mapErr(err)
}

// FindBookingByID finds a booking by its ID.
func (c *MongoBookingCollection) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

// FindBookings lists bookings matching f, newest first.
func (c *MongoBookingCollection) FindBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, f.BSON(), opts)
	if err != nil {
		return nil, err
	}
	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateBookingStatus performs a compare-and-set on the booking status.
func (c *MongoBookingCollection) UpdateBookingStatus(ctx context.Context, id string, from, to models.BookingStatus) error {
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// CountOverlapping counts live bookings of carID overlapping [start, end].
func (c *MongoBookingCollection) CountOverlapping(ctx context.Context, carID string, start, end time.Time) (int64, error) {
	return c.Collection.CountDocuments(ctx, overlapFilter(carID, start, end))
}

// CountByStatus returns the number of bookings in each status.
func (c *MongoBookingCollection) CountByStatus(ctx context.Context) (map[models.BookingStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := c.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status models.BookingStatus `bson:"_id"`
		Count  int64                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[models.BookingStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// SumRevenue totals total_amount over bookings in the given statuses.
func (c *MongoBookingCollection) SumRevenue(ctx context.Context, statuses ...models.BookingStatus) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: statuses}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$total_amount"}}},
		}}},
	}
	cursor, err := c.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
