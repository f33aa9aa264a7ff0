// Package rental holds the domain services behind the HTTP API: cars,
// bookings, reviews, promotions, FAQs, profiles and the admin dashboard.
//
// Every mutation takes the identity of the caller. A nil identity is
// rejected with ErrUnauthenticated before storage is touched.
package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/storage"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("operation not allowed")
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("car is not available for the selected dates")
	ErrInvalidTransition = errors.New("booking status change not allowed")
	ErrInvalidPromotion  = errors.New("invalid or expired promotion code")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AvatarBucket is the storage bucket for profile pictures.
const AvatarBucket = "avatars"

// Deps are the collaborators of the services.
type Deps struct {
	Cars       db.CarCollection
	Bookings   db.BookingCollection
	Reviews    db.ReviewCollection
	Profiles   db.ProfileCollection
	Promotions db.PromotionCollection
	FAQs       db.FAQCollection
	Users      db.UserCollection
	Avatars    storage.ObjectStore
	Events     events.Publisher
	Now        func() time.Time
}

// Services bundles one service per concern.
type Services struct {
	Cars       *CarService
	Bookings   *BookingService
	Reviews    *ReviewService
	Promotions *PromotionService
	FAQs       *FAQService
	Profiles   *ProfileService
	Admin      *AdminService
}

// New wires the services over d.
func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	promotions := &PromotionService{promotions: d.Promotions, now: d.Now}
	return &Services{
		Cars: &CarService{cars: d.Cars},
		Bookings: &BookingService{
			cars:       d.Cars,
			bookings:   d.Bookings,
			promotions: promotions,
			events:     d.Events,
			now:        d.Now,
		},
		Reviews: &ReviewService{
			reviews:  d.Reviews,
			cars:     d.Cars,
			profiles: d.Profiles,
		},
		Promotions: promotions,
		FAQs:       &FAQService{faqs: d.FAQs},
		Profiles: &ProfileService{
			profiles: d.Profiles,
			users:    d.Users,
			avatars:  d.Avatars,
			events:   d.Events,
			now:      d.Now,
		},
		Admin: &AdminService{cars: d.Cars, bookings: d.Bookings},
	}
}

func requireIdentity(c *models.Claims) error {
	if c == nil || c.UserID == "" {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(c *models.Claims) error {
	if err := requireIdentity(c); err != nil {
		return err
	}
	if c.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// storeErr maps a storage failure onto the service errors. Anything other
// than a missing record is logged as a remote failure.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, context.Canceled):
		return err
	}
	log.WithError(err).WithField("op", op).Error("Storage operation failed")
	return fmt.Errorf("%s: %w", op, err)
}

func publish(ctx context.Context, pub events.Publisher, e events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		log.WithError(err).WithField("event", e.Type).Warn("Failed to publish event")
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
