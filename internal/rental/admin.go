package rental

import (
	"context"

	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/models"
)

// Dashboard is the admin overview of the fleet and bookings.
type Dashboard struct {
	TotalCars        int64                          `json:"total_cars"`
	AvailableCars    int64                          `json:"available_cars"`
	TotalBookings    int64                          `json:"total_bookings"`
	BookingsByStatus map[models.BookingStatus]int64 `json:"bookings_by_status"`
	Revenue          float64                        `json:"revenue"`
}

// AdminService computes the dashboard.
type AdminService struct {
	cars     db.CarCollection
	bookings db.BookingCollection
}

// Dashboard counts cars and bookings. Revenue covers confirmed and
// completed bookings.
func (s *AdminService) Dashboard(ctx context.Context, caller *models.Claims) (*Dashboard, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	d := &Dashboard{BookingsByStatus: map[models.BookingStatus]int64{
		models.BookingPending:   0,
		models.BookingConfirmed: 0,
		models.BookingCancelled: 0,
		models.BookingCompleted: 0,
	}}

	var err error
	if d.TotalCars, err = s.cars.CountCars(ctx, db.CarFilter{}); err != nil {
		return nil, storeErr("count cars", err)
	}
	available := true
	if d.AvailableCars, err = s.cars.CountCars(ctx, db.CarFilter{Available: &available}); err != nil {
		return nil, storeErr("count available cars", err)
	}

	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, storeErr("count bookings", err)
	}
	for status, n := range counts {
		d.BookingsByStatus[status] = n
		d.TotalBookings += n
	}

	if d.Revenue, err = s.bookings.SumRevenue(ctx, models.BookingConfirmed, models.BookingCompleted); err != nil {
		return nil, storeErr("sum revenue", err)
	}
	return d, nil
}
