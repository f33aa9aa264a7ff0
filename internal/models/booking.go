package models

import (
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// IsValid reports whether s is a known status.
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a booking in status s may move to next.
// Cancelled and completed are terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	default:
		return false
	}
}

// Booking represents a car reservation for an inclusive date range.
type Booking struct {
	ID              string        `bson:"_id" json:"id"`
	UserID          string        `bson:"user_id" json:"user_id"`
	CarID           string        `bson:"car_id" json:"car_id"`
	StartDate       time.Time     `bson:"start_date" json:"start_date"`
	EndDate         time.Time     `bson:"end_date" json:"end_date"`
	TotalAmount     float64       `bson:"total_amount" json:"total_amount"` // in USD
	Status          BookingStatus `bson:"status" json:"status"`
	PaymentIntentID string        `bson:"payment_intent_id,omitempty" json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at" json:"updated_at"`

	Car *Car `bson:"-" json:"car,omitempty"`
}

// CreateBookingRequest is the body of a booking request.
type CreateBookingRequest struct {
	CarID     string    `json:"car_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}
