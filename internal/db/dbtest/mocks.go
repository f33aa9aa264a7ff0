// Package dbtest provides testify mocks of the db collection interfaces.
package dbtest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/models"
)

var (
	_ db.CarCollection       = (*MockCarCollection)(nil)
	_ db.BookingCollection   = (*MockBookingCollection)(nil)
	_ db.ReviewCollection    = (*MockReviewCollection)(nil)
	_ db.ProfileCollection   = (*MockProfileCollection)(nil)
	_ db.PromotionCollection = (*MockPromotionCollection)(nil)
	_ db.FAQCollection       = (*MockFAQCollection)(nil)
	_ db.UserCollection      = (*MockUserCollection)(nil)
	_ db.SessionCollection   = (*MockSessionCollection)(nil)
)

// MockCarCollection is a mock implementation of CarCollection
type MockCarCollection struct {
	mock.Mock
}

func (m *MockCarCollection) InsertCar(ctx context.Context, car *models.Car) error {
	args := m.Called(ctx, car)
	return args.Error(0)
}

func (m *MockCarCollection) FindCars(ctx context.Context, q db.CarQuery) ([]models.Car, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Car), args.Error(1)
}

func (m *MockCarCollection) FindCarByID(ctx context.Context, id string) (*models.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}

func (m *MockCarCollection) FindCarsByIDs(ctx context.Context, ids []string) ([]models.Car, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Car), args.Error(1)
}

func (m *MockCarCollection) UpdateCar(ctx context.Context, car *models.Car) error {
	args := m.Called(ctx, car)
	return args.Error(0)
}

func (m *MockCarCollection) SetCarAvailability(ctx context.Context, id string, available bool) error {
	args := m.Called(ctx, id, available)
	return args.Error(0)
}

func (m *MockCarCollection) DeleteCar(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCarCollection) DistinctCarValues(ctx context.Context, field string) ([]string, error) {
	args := m.Called(ctx, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCarCollection) CountCars(ctx context.Context, f db.CarFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

// MockBookingCollection is a mock implementation of BookingCollection
type MockBookingCollection struct {
	mock.Mock
}

func (m *MockBookingCollection) InsertBooking(ctx context.Context, b *models.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingCollection) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingCollection) FindBookings(ctx context.Context, f db.BookingFilter) ([]models.Booking, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockBookingCollection) UpdateBookingStatus(ctx context.Context, id string, from, to models.BookingStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockBookingCollection) CountOverlapping(ctx context.Context, carID string, start, end time.Time) (int64, error) {
	args := m.Called(ctx, carID, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingCollection) CountByStatus(ctx context.Context) (map[models.BookingStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.BookingStatus]int64), args.Error(1)
}

func (m *MockBookingCollection) SumRevenue(ctx context.Context, statuses ...models.BookingStatus) (float64, error) {
	args := m.Called(ctx, statuses)
	return args.Get(0).(float64), args.Error(1)
}

// MockReviewCollection is a mock implementation of ReviewCollection
type MockReviewCollection struct {
	mock.Mock
}

func (m *MockReviewCollection) InsertReview(ctx context.Context, r *models.Review) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReviewCollection) FindReviews(ctx context.Context, f db.ReviewFilter) ([]models.Review, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *MockReviewCollection) DeleteReview(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockReviewCollection) RatingSummary(ctx context.Context, carID string) (models.RatingSummary, error) {
	args := m.Called(ctx, carID)
	return args.Get(0).(models.RatingSummary), args.Error(1)
}

// MockProfileCollection is a mock implementation of ProfileCollection
type MockProfileCollection struct {
	mock.Mock
}

func (m *MockProfileCollection) FindProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockProfileCollection) InsertProfile(ctx context.Context, p *models.UserProfile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProfileCollection) UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.UserProfile, error) {
	args := m.Called(ctx, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

// MockPromotionCollection is a mock implementation of PromotionCollection
type MockPromotionCollection struct {
	mock.Mock
}

func (m *MockPromotionCollection) InsertPromotion(ctx context.Context, p *models.Promotion) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPromotionCollection) FindActivePromotions(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Promotion), args.Error(1)
}

func (m *MockPromotionCollection) FindPromotionByCode(ctx context.Context, code string) (*models.Promotion, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Promotion), args.Error(1)
}

func (m *MockPromotionCollection) SetPromotionActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

// MockFAQCollection is a mock implementation of FAQCollection
type MockFAQCollection struct {
	mock.Mock
}

func (m *MockFAQCollection) InsertFAQ(ctx context.Context, f models.FAQ) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFAQCollection) FindFAQs(ctx context.Context, category string) ([]models.FAQ, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FAQ), args.Error(1)
}

func (m *MockFAQCollection) FAQCategories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserCollection) SetPasswordHash(ctx context.Context, id, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockUserCollection) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, id, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockUserCollection) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	args := m.Called(ctx, tokenHash, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockSessionCollection is a mock implementation of SessionCollection
type MockSessionCollection struct {
	mock.Mock
}

func (m *MockSessionCollection) InsertSession(ctx context.Context, s *models.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionCollection) FindSessionByID(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionCollection) FindSessionByRefreshHash(ctx context.Context, hash string) (*models.Session, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionCollection) RotateRefresh(ctx context.Context, id, oldHash, newHash string, expiresAt time.Time) error {
	args := m.Called(ctx, id, oldHash, newHash, expiresAt)
	return args.Error(0)
}

func (m *MockSessionCollection) RevokeSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionCollection) RevokeUserSessions(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}
