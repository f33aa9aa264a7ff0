package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/pricing"
)

const dateLayout = "2006-01-02"

func dateRange(start, end time.Time) url.Values {
	return url.Values{
		"start": {start.Format(dateLayout)},
		"end":   {end.Format(dateLayout)},
	}
}

// Cars lists cars, cheapest first.
func (c *Client) Cars(ctx context.Context, q CarQuery) ([]models.Car, error) {
	var cars []models.Car
	err := c.request(ctx, http.MethodGet, "/api/cars", q.values(), nil, &cars)
	return cars, err
}

// FeaturedCars lists the most expensive available cars.
func (c *Client) FeaturedCars(ctx context.Context) ([]models.Car, error) {
	var cars []models.Car
	err := c.request(ctx, http.MethodGet, "/api/cars/featured", nil, nil, &cars)
	return cars, err
}

// Car fetches one car.
func (c *Client) Car(ctx context.Context, id string) (*models.Car, error) {
	var car models.Car
	if err := c.request(ctx, http.MethodGet, "/api/cars/"+url.PathEscape(id), nil, nil, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// Categories lists the distinct car categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := c.request(ctx, http.MethodGet, "/api/cars/categories", nil, nil, &out)
	return out, err
}

// CheckAvailability reports whether a car can be booked for the dates.
func (c *Client) CheckAvailability(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	var resp struct {
		Available bool `json:"available"`
	}
	err := c.request(ctx, http.MethodGet, "/api/cars/"+url.PathEscape(carID)+"/availability", dateRange(start, end), nil, &resp)
	return resp.Available, err
}

// Quote prices a rental with an optional promotion code.
func (c *Client) Quote(ctx context.Context, carID string, start, end time.Time, promo string) (*pricing.Quote, error) {
	q := dateRange(start, end)
	if promo != "" {
		q.Set("promo", promo)
	}
	var quote pricing.Quote
	if err := c.request(ctx, http.MethodGet, "/api/cars/"+url.PathEscape(carID)+"/quote", q, nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// CreateBooking books a car for the signed-in user.
func (c *Client) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	var b models.Booking
	if err := c.request(ctx, http.MethodPost, "/api/bookings", nil, req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// MyBookings lists the bookings of the signed-in user, newest first.
func (c *Client) MyBookings(ctx context.Context) ([]models.Booking, error) {
	var out []models.Booking
	err := c.request(ctx, http.MethodGet, "/api/bookings", nil, nil, &out)
	return out, err
}

// CancelBooking cancels one of the signed-in user's bookings.
func (c *Client) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := c.request(ctx, http.MethodPost, "/api/bookings/"+url.PathEscape(id)+"/cancel", nil, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateReview rates a car.
func (c *Client) CreateReview(ctx context.Context, req models.CreateReviewRequest) (*models.Review, error) {
	var r models.Review
	if err := c.request(ctx, http.MethodPost, "/api/reviews", nil, req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ActivePromotions lists the promotions redeemable now.
func (c *Client) ActivePromotions(ctx context.Context) ([]models.Promotion, error) {
	var out []models.Promotion
	err := c.request(ctx, http.MethodGet, "/api/promotions", nil, nil, &out)
	return out, err
}

// FAQs lists the FAQ, optionally limited to one category.
func (c *Client) FAQs(ctx context.Context, category string) ([]models.FAQ, error) {
	var q url.Values
	if category != "" {
		q = url.Values{"category": {category}}
	}
	var out []models.FAQ
	err := c.request(ctx, http.MethodGet, "/api/faqs", q, nil, &out)
	return out, err
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.request(ctx, http.MethodGet, "/api/profile", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile patches the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, patch models.ProfileUpdate) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.request(ctx, http.MethodPut, "/api/profile", nil, patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// TimeoutSettings returns the inactivity settings of the signed-in user.
func (c *Client) TimeoutSettings(ctx context.Context) (models.TimeoutSettings, error) {
	var ts models.TimeoutSettings
	err := c.request(ctx, http.MethodGet, "/api/session/timeout", nil, nil, &ts)
	return ts, err
}

// SetTimeoutSettings stores the inactivity settings of the signed-in user.
func (c *Client) SetTimeoutSettings(ctx context.Context, ts models.TimeoutSettings) error {
	return c.request(ctx, http.MethodPut, "/api/session/timeout", nil, ts, nil)
}

// Activity reports user activity so the session is not signed out as idle.
func (c *Client) Activity(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/api/session/activity", nil, nil, nil)
}

// CreateCar adds a car. Admin only.
func (c *Client) CreateCar(ctx context.Context, car models.Car) (*models.Car, error) {
	var out models.Car
	if err := c.request(ctx, http.MethodPost, "/api/admin/cars", nil, car, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePromotion adds a promotion. Admin only.
func (c *Client) CreatePromotion(ctx context.Context, p models.Promotion) (*models.Promotion, error) {
	var out models.Promotion
	if err := c.request(ctx, http.MethodPost, "/api/admin/promotions", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateFAQ adds an FAQ entry. Admin only.
func (c *Client) CreateFAQ(ctx context.Context, f models.FAQ) error {
	return c.request(ctx, http.MethodPost, "/api/admin/faqs", nil, f, nil)
}

// UpdateBookingStatus moves a booking to status. Admin only.
func (c *Client) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	var b models.Booking
	body := map[string]models.BookingStatus{"status": status}
	if err := c.request(ctx, http.MethodPut, "/api/admin/bookings/"+url.PathEscape(id)+"/status", nil, body, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
