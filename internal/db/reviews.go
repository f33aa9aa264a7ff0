package db

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/luxury-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReviewFilter narrows a review listing.
type ReviewFilter struct {
	CarID  string
	UserID string
}

// BSON renders the filter as a query document.
func (f ReviewFilter) BSON() bson.M {
	filter := bson.M{}
	if f.CarID != "" {
		filter["car_id"] = f.CarID
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	return filter
}

// MongoReviewCollection implements ReviewCollection for MongoDB.
type MongoReviewCollection struct {
	Collection *mongo.Collection
}

// InsertReview stores a new review.
func (c *MongoReviewCollection) InsertReview(ctx context.Context, r *models.Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()
	_, err := c.Collection.InsertOne(ctx, r)
	return mapErr(err)
}

// FindReviews lists reviews matching f, newest first.
func (c *MongoReviewCollection) FindReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, f.BSON(), opts)
	if err != nil {
		return nil, err
	}
	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// DeleteReview deletes a review owned by userID.
func (c *MongoReviewCollection) DeleteReview(ctx context.Context, id, userID string) error {
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RatingSummary averages the ratings of a car, rounded to one decimal.
func (c *MongoReviewCollection) RatingSummary(ctx context.Context, carID string) (models.RatingSummary, error) {
	summary := models.RatingSummary{CarID: carID}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "car_id", Value: carID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := c.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return summary, err
	}
	var rows []struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return summary, err
	}
	if len(rows) > 0 {
		summary.Average = math.Round(rows[0].Avg*10) / 10
		summary.Count = rows[0].Count
	}
	return summary, nil
}
