package models

import "time"

// Review represents a customer's rating of a car.
type Review struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	CarID     string    `bson:"car_id" json:"car_id"`
	Rating    int       `bson:"rating" json:"rating"` // 1..5
	Comment   string    `bson:"comment" json:"comment"`
	UserName  string    `bson:"user_name" json:"user_name,omitempty"`
	CarName   string    `bson:"-" json:"car_name,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// CreateReviewRequest is the body of a review submission.
type CreateReviewRequest struct {
	CarID   string `json:"car_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// RatingSummary aggregates the reviews of one car.
type RatingSummary struct {
	CarID   string  `json:"car_id"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
