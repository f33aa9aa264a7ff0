package rental

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/pricing"
)

// BookingService creates, prices and moves bookings through their lifecycle.
type BookingService struct {
	cars       db.CarCollection
	bookings   db.BookingCollection
	promotions *PromotionService
	events     events.Publisher
	now        func() time.Time
}

func validateRange(start, end time.Time) error {
	if start.IsZero() {
		return invalid("start_date", "is required")
	}
	if end.IsZero() {
		return invalid("end_date", "is required")
	}
	if end.Before(start) {
		return invalid("end_date", "must not be before start_date")
	}
	return nil
}

// bookingDay is the UTC midnight of t's calendar day. Bookings are stored and
// compared as whole days, the unit they are billed in.
func bookingDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckCarAvailability reports whether carID can be booked for [start, end].
// A missing or disabled car is never available.
func (s *BookingService) CheckCarAvailability(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	if err := validateRange(start, end); err != nil {
		return false, err
	}
	car, err := s.cars.FindCarByID(ctx, carID)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("check availability", err)
	}
	return s.available(ctx, car, bookingDay(start), bookingDay(end))
}

func (s *BookingService) available(ctx context.Context, car *models.Car, start, end time.Time) (bool, error) {
	if !car.IsAvailable {
		return false, nil
	}
	n, err := s.bookings.CountOverlapping(ctx, car.ID, start, end)
	if err != nil {
		return false, storeErr("check availability", err)
	}
	return n == 0, nil
}

// Quote prices a prospective booking, applying promoCode when given.
func (s *BookingService) Quote(ctx context.Context, carID string, start, end time.Time, promoCode string) (pricing.Quote, error) {
	if err := validateRange(start, end); err != nil {
		return pricing.Quote{}, err
	}
	car, err := s.cars.FindCarByID(ctx, carID)
	if err != nil {
		return pricing.Quote{}, storeErr("quote", err)
	}

	var pct float64
	code := strings.TrimSpace(promoCode)
	if code != "" {
		promo, err := s.promotions.ValidatePromoCode(ctx, code)
		if err != nil {
			return pricing.Quote{}, err
		}
		code = promo.Code
		pct = promo.DiscountPercentage
	}
	return pricing.NewQuote(car.DailyRate, bookingDay(start), bookingDay(end), code, pct), nil
}

// CreateBooking reserves a car for the caller. The booking starts pending
// and is priced with the inclusive day count.
func (s *BookingService) CreateBooking(ctx context.Context, caller *models.Claims, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CarID) == "" {
		return nil, invalid("car_id", "is required")
	}
	if err := validateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if startOfDay(req.StartDate).Before(startOfDay(s.now().In(req.StartDate.Location()))) {
		return nil, invalid("start_date", "must not be in the past")
	}
	start, end := bookingDay(req.StartDate), bookingDay(req.EndDate)

	car, err := s.cars.FindCarByID(ctx, req.CarID)
	if err != nil {
		return nil, storeErr("create booking", err)
	}
	ok, err := s.available(ctx, car, start, end)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnavailable
	}

	booking := &models.Booking{
		UserID:      caller.UserID,
		CarID:       car.ID,
		StartDate:   start,
		EndDate:     end,
		TotalAmount: pricing.TotalPrice(car.DailyRate, start, end),
		Status:      models.BookingPending,
	}
	if err := s.bookings.InsertBooking(ctx, booking); err != nil {
		return nil, storeErr("create booking", err)
	}
	booking.Car = car

	log.WithFields(log.Fields{
		"booking_id": booking.ID,
		"user_id":    booking.UserID,
		"car_id":     booking.CarID,
		"total":      booking.TotalAmount,
	}).Info("Booking created")
	publish(ctx, s.events, events.Event{
		Type:      events.BookingCreated,
		UserID:    booking.UserID,
		BookingID: booking.ID,
		Status:    string(booking.Status),
	})
	return booking, nil
}

// UserBookings lists the caller's bookings, newest first, with their cars.
func (s *BookingService) UserBookings(ctx context.Context, caller *models.Claims) ([]models.Booking, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.FindBookings(ctx, db.BookingFilter{UserID: caller.UserID})
	if err != nil {
		return nil, storeErr("fetch bookings", err)
	}
	if err := s.embedCars(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// CancelBooking cancels one of the caller's bookings.
func (s *BookingService) CancelBooking(ctx context.Context, caller *models.Claims, id string) (*models.Booking, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	b, err := s.bookings.FindBookingByID(ctx, id)
	if err != nil {
		return nil, storeErr("cancel booking", err)
	}
	if b.UserID != caller.UserID {
		return nil, fmt.Errorf("cancel booking: %w", ErrNotFound)
	}
	return s.transition(ctx, b, models.BookingCancelled)
}

// AllBookings lists every booking, optionally narrowed to one status.
func (s *BookingService) AllBookings(ctx context.Context, caller *models.Claims, status models.BookingStatus) ([]models.Booking, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, invalid("status", "unknown status %q", status)
	}
	bookings, err := s.bookings.FindBookings(ctx, db.BookingFilter{Status: status})
	if err != nil {
		return nil, storeErr("fetch bookings", err)
	}
	if err := s.embedCars(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateStatus moves a booking to status on behalf of an admin.
func (s *BookingService) UpdateStatus(ctx context.Context, caller *models.Claims, id string, status models.BookingStatus) (*models.Booking, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, invalid("status", "unknown status %q", status)
	}
	b, err := s.bookings.FindBookingByID(ctx, id)
	if err != nil {
		return nil, storeErr("update booking status", err)
	}
	return s.transition(ctx, b, status)
}

func (s *BookingService) transition(ctx context.Context, b *models.Booking, to models.BookingStatus) (*models.Booking, error) {
	from := b.Status
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	err := s.bookings.UpdateBookingStatus(ctx, b.ID, from, to)
	if errors.Is(err, db.ErrConflict) {
		return nil, fmt.Errorf("%w: booking changed concurrently", ErrInvalidTransition)
	}
	if err != nil {
		return nil, storeErr("update booking status", err)
	}
	b.Status = to
	b.UpdatedAt = s.now().UTC()

	log.WithFields(log.Fields{
		"booking_id": b.ID,
		"from":       from,
		"to":         to,
	}).Info("Booking status changed")
	publish(ctx, s.events, events.Event{
		Type:      events.BookingStatusChanged,
		UserID:    b.UserID,
		BookingID: b.ID,
		Status:    string(to),
	})
	return b, nil
}

func (s *BookingService) embedCars(ctx context.Context, bookings []models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if !seen[b.CarID] {
			seen[b.CarID] = true
			ids = append(ids, b.CarID)
		}
	}
	cars, err := s.cars.FindCarsByIDs(ctx, ids)
	if err != nil {
		return storeErr("fetch booking cars", err)
	}
	byID := make(map[string]*models.Car, len(cars))
	for i := range cars {
		byID[cars[i].ID] = &cars[i]
	}
	for i := range bookings {
		bookings[i].Car = byID[bookings[i].CarID]
	}
	return nil
}
