package db

import (
	"context"
	"time"

	"github.com/ukydev/luxury-rentals/internal/models"
)

// CarCollection defines the interface for car operations.
type CarCollection interface {
	InsertCar(ctx context.Context, car *models.Car) error
	FindCars(ctx context.Context, q CarQuery) ([]models.Car, error)
	FindCarByID(ctx context.Context, id string) (*models.Car, error)
	FindCarsByIDs(ctx context.Context, ids []string) ([]models.Car, error)
	UpdateCar(ctx context.Context, car *models.Car) error
	SetCarAvailability(ctx context.Context, id string, available bool) error
	DeleteCar(ctx context.Context, id string) error
	DistinctCarValues(ctx context.Context, field string) ([]string, error)
	CountCars(ctx context.Context, f CarFilter) (int64, error)
}

// BookingCollection defines the interface for booking operations.
type BookingCollection interface {
	InsertBooking(ctx context.Context, b *models.Booking) error
	FindBookingByID(ctx context.Context, id string) (*models.Booking, error)
	FindBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error)
	// UpdateBookingStatus moves a booking from one status to another and
	// fails with ErrConflict when the stored status is no longer from.
	UpdateBookingStatus(ctx context.Context, id string, from, to models.BookingStatus) error
	CountOverlapping(ctx context.Context, carID string, start, end time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[models.BookingStatus]int64, error)
	SumRevenue(ctx context.Context, statuses ...models.BookingStatus) (float64, error)
}

// ReviewCollection defines the interface for review operations.
type ReviewCollection interface {
	InsertReview(ctx context.Context, r *models.Review) error
	FindReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error)
	DeleteReview(ctx context.Context, id, userID string) error
	RatingSummary(ctx context.Context, carID string) (models.RatingSummary, error)
}

// ProfileCollection defines the interface for user profile operations.
type ProfileCollection interface {
	FindProfile(ctx context.Context, id string) (*models.UserProfile, error)
	InsertProfile(ctx context.Context, p *models.UserProfile) error
	UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.UserProfile, error)
}

// PromotionCollection defines the interface for promotion operations.
type PromotionCollection interface {
	InsertPromotion(ctx context.Context, p *models.Promotion) error
	FindActivePromotions(ctx context.Context, now time.Time) ([]models.Promotion, error)
	FindPromotionByCode(ctx context.Context, code string) (*models.Promotion, error)
	SetPromotionActive(ctx context.Context, id string, active bool) error
}

// FAQCollection defines the interface for FAQ operations.
type FAQCollection interface {
	InsertFAQ(ctx context.Context, f models.FAQ) error
	FindFAQs(ctx context.Context, category string) ([]models.FAQ, error)
	FAQCategories(ctx context.Context) ([]string, error)
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	// ConsumeResetToken clears an unexpired reset token and returns its owner.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
}

// SessionCollection defines the interface for session operations.
type SessionCollection interface {
	InsertSession(ctx context.Context, s *models.Session) error
	FindSessionByID(ctx context.Context, id string) (*models.Session, error)
	FindSessionByRefreshHash(ctx context.Context, hash string) (*models.Session, error)
	// RotateRefresh replaces the refresh token hash of an active session and
	// fails with ErrConflict when oldHash was already rotated.
	RotateRefresh(ctx context.Context, id, oldHash, newHash string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, id string) error
	// RevokeUserSessions revokes every live session of a user and returns
	// the IDs it revoked.
	RevokeUserSessions(ctx context.Context, userID string) ([]string, error)
}
