package rental

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
)

func TestCheckCarAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("missing car", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-x").Return(nil, db.ErrNotFound)
		ok, err := f.svc.Bookings.CheckCarAvailability(ctx, "car-x", day(15), day(18))
		require.NoError(t, err)
		assert.False(t, ok)
		f.assertExpectations(t)
	})

	t.Run("flag off", func(t *testing.T) {
		f := newFixture(t)
		car := testCar()
		car.IsAvailable = false
		f.cars.On("FindCarByID", ctx, "car-1").Return(car, nil)
		ok, err := f.svc.Bookings.CheckCarAvailability(ctx, "car-1", day(15), day(18))
		require.NoError(t, err)
		assert.False(t, ok)
		f.bookings.AssertNotCalled(t, "CountOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("overlapping booking", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
		f.bookings.On("CountOverlapping", ctx, "car-1", day(15), day(18)).Return(int64(1), nil)
		ok, err := f.svc.Bookings.CheckCarAvailability(ctx, "car-1", day(15), day(18))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("disjoint range", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
		f.bookings.On("CountOverlapping", ctx, "car-1", day(20), day(22)).Return(int64(0), nil)
		ok, err := f.svc.Bookings.CheckCarAvailability(ctx, "car-1", day(20), day(22))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("inverted range", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Bookings.CheckCarAvailability(ctx, "car-1", day(18), day(15))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "end_date", verr.Field)
	})

	t.Run("remote failure", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-1").Return(nil, errors.New("timeout"))
		_, err := f.svc.Bookings.CheckCarAvailability(ctx, "car-1", day(15), day(18))
		assert.Error(t, err)
	})
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
	f.bookings.On("CountOverlapping", ctx, "car-1", day(15), day(18)).Return(int64(0), nil)
	f.bookings.On("InsertBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool {
		return b.UserID == "u-1" && b.Status == models.BookingPending && b.TotalAmount == 1196
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Booking).ID = "b-1"
	}).Return(nil)

	b, err := f.svc.Bookings.CreateBooking(ctx, customer(), models.CreateBookingRequest{
		CarID:     "car-1",
		StartDate: day(15),
		EndDate:   day(18),
	})
	require.NoError(t, err)
	assert.Equal(t, "b-1", b.ID)
	assert.Equal(t, 1196.0, b.TotalAmount)
	require.NotNil(t, b.Car)
	assert.Equal(t, "Ferrari 488", b.Car.Name)

	require.Len(t, f.events, 1)
	assert.Equal(t, events.BookingCreated, f.events[0].Type)
	assert.Equal(t, "b-1", f.events[0].BookingID)
	f.assertExpectations(t)
}

func TestCreateBooking_SameDayIsOneDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := day(15).Add(9 * time.Hour)
	end := day(15).Add(17 * time.Hour)
	f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
	f.bookings.On("CountOverlapping", ctx, "car-1", day(15), day(15)).Return(int64(0), nil)
	f.bookings.On("InsertBooking", ctx, mock.Anything).Return(nil)

	b, err := f.svc.Bookings.CreateBooking(ctx, customer(), models.CreateBookingRequest{CarID: "car-1", StartDate: start, EndDate: end})
	require.NoError(t, err)
	assert.Equal(t, 299.0, b.TotalAmount)
	assert.Equal(t, day(15), b.StartDate)
	assert.Equal(t, day(15), b.EndDate)
}

func TestCreateBooking_StoresWholeDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 23:30 at UTC-5 is still the 18th for the customer.
	est := time.FixedZone("EST", -5*3600)
	start := time.Date(2023, 6, 18, 12, 0, 0, 0, time.UTC)
	end := time.Date(2023, 6, 20, 23, 30, 0, 0, est)

	f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
	f.bookings.On("CountOverlapping", ctx, "car-1", day(18), day(20)).Return(int64(0), nil)
	f.bookings.On("InsertBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool {
		return b.StartDate.Equal(day(18)) && b.EndDate.Equal(day(20)) && b.TotalAmount == 897
	})).Return(nil)

	_, err := f.svc.Bookings.CreateBooking(ctx, customer(), models.CreateBookingRequest{CarID: "car-1", StartDate: start, EndDate: end})
	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestCheckCarAvailability_ComparesWholeDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
	f.bookings.On("CountOverlapping", ctx, "car-1", day(18), day(20)).Return(int64(1), nil)

	ok, err := f.svc.Bookings.CheckCarAvailability(ctx, "car-1", day(18).Add(12*time.Hour), day(20).Add(12*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
	f.assertExpectations(t)
}

func TestCreateBooking_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("past start", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Bookings.CreateBooking(ctx, customer(), models.CreateBookingRequest{CarID: "car-1", StartDate: day(9), EndDate: day(12)})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "start_date", verr.Field)
		f.assertExpectations(t)
	})

	t.Run("today is allowed", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
		f.bookings.On("CountOverlapping", ctx, "car-1", day(10), day(10)).Return(int64(0), nil)
		f.bookings.On("InsertBooking", ctx, mock.Anything).Return(nil)
		_, err := f.svc.Bookings.CreateBooking(ctx, customer(), models.CreateBookingRequest{CarID: "car-1", StartDate: day(10), EndDate: day(10)})
		require.NoError(t, err)
	})

	t.Run("missing car id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Bookings.CreateBooking(ctx, customer(), models.CreateBookingRequest{StartDate: day(15), EndDate: day(18)})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown car", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-x").Return(nil, db.ErrNotFound)
		_, err := f.svc.Bookings.CreateBooking(ctx, customer(), models.CreateBookingRequest{CarID: "car-x", StartDate: day(15), EndDate: day(18)})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
		f.bookings.On("CountOverlapping", ctx, "car-1", day(15), day(18)).Return(int64(2), nil)
		_, err := f.svc.Bookings.CreateBooking(ctx, customer(), models.CreateBookingRequest{CarID: "car-1", StartDate: day(15), EndDate: day(18)})
		assert.ErrorIs(t, err, ErrUnavailable)
		f.bookings.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
		assert.Empty(t, f.events)
	})
}

func TestQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("without promotion", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
		q, err := f.svc.Bookings.Quote(ctx, "car-1", day(15), day(18), "")
		require.NoError(t, err)
		assert.Equal(t, 4, q.Days)
		assert.Equal(t, 1196.0, q.Total)
		assert.Zero(t, q.Discount)
	})

	t.Run("with promotion", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
		f.promotions.On("FindPromotionByCode", ctx, "SUMMER10").Return(&models.Promotion{
			Code: "SUMMER10", DiscountPercentage: 10, IsActive: true,
			ValidFrom: day(1), ValidTo: day(30),
		}, nil)
		q, err := f.svc.Bookings.Quote(ctx, "car-1", day(15), day(18), " summer10 ")
		require.NoError(t, err)
		assert.Equal(t, 1196.0, q.Subtotal)
		assert.Equal(t, 119.6, q.Discount)
		assert.InDelta(t, 1076.4, q.Total, 1e-9)
		assert.Equal(t, "SUMMER10", q.PromotionCode)
	})

	t.Run("expired promotion", func(t *testing.T) {
		f := newFixture(t)
		f.cars.On("FindCarByID", ctx, "car-1").Return(testCar(), nil)
		f.promotions.On("FindPromotionByCode", ctx, "SPRING").Return(&models.Promotion{
			Code: "SPRING", DiscountPercentage: 10, IsActive: true,
			ValidFrom: day(1), ValidTo: day(5),
		}, nil)
		_, err := f.svc.Bookings.Quote(ctx, "car-1", day(15), day(18), "spring")
		assert.ErrorIs(t, err, ErrInvalidPromotion)
	})
}

func TestUserBookings_EmbedsCars(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bookings.On("FindBookings", ctx, db.BookingFilter{UserID: "u-1"}).Return([]models.Booking{
		{ID: "b-2", CarID: "car-1"},
		{ID: "b-1", CarID: "car-1"},
		{ID: "b-0", CarID: "car-gone"},
	}, nil)
	f.cars.On("FindCarsByIDs", ctx, []string{"car-1", "car-gone"}).Return([]models.Car{*testCar()}, nil)

	bookings, err := f.svc.Bookings.UserBookings(ctx, customer())
	require.NoError(t, err)
	require.Len(t, bookings, 3)
	assert.Equal(t, "b-2", bookings[0].ID)
	require.NotNil(t, bookings[1].Car)
	assert.Equal(t, "Ferrari 488", bookings[1].Car.Name)
	assert.Nil(t, bookings[2].Car)
	f.assertExpectations(t)
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels pending", func(t *testing.T) {
		f := newFixture(t)
		f.bookings.On("FindBookingByID", ctx, "b-1").Return(&models.Booking{ID: "b-1", UserID: "u-1", Status: models.BookingPending}, nil)
		f.bookings.On("UpdateBookingStatus", ctx, "b-1", models.BookingPending, models.BookingCancelled).Return(nil)

		b, err := f.svc.Bookings.CancelBooking(ctx, customer(), "b-1")
		require.NoError(t, err)
		assert.Equal(t, models.BookingCancelled, b.Status)
		require.Len(t, f.events, 1)
		assert.Equal(t, events.BookingStatusChanged, f.events[0].Type)
		assert.Equal(t, "cancelled", f.events[0].Status)
		f.assertExpectations(t)
	})

	t.Run("someone else's booking", func(t *testing.T) {
		f := newFixture(t)
		f.bookings.On("FindBookingByID", ctx, "b-1").Return(&models.Booking{ID: "b-1", UserID: "u-2", Status: models.BookingPending}, nil)
		_, err := f.svc.Bookings.CancelBooking(ctx, customer(), "b-1")
		assert.ErrorIs(t, err, ErrNotFound)
		f.bookings.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("terminal booking", func(t *testing.T) {
		f := newFixture(t)
		f.bookings.On("FindBookingByID", ctx, "b-1").Return(&models.Booking{ID: "b-1", UserID: "u-1", Status: models.BookingCompleted}, nil)
		_, err := f.svc.Bookings.CancelBooking(ctx, customer(), "b-1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("concurrent change", func(t *testing.T) {
		f := newFixture(t)
		f.bookings.On("FindBookingByID", ctx, "b-1").Return(&models.Booking{ID: "b-1", UserID: "u-1", Status: models.BookingConfirmed}, nil)
		f.bookings.On("UpdateBookingStatus", ctx, "b-1", models.BookingConfirmed, models.BookingCancelled).Return(db.ErrConflict)
		_, err := f.svc.Bookings.CancelBooking(ctx, customer(), "b-1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Empty(t, f.events)
	})
}

func TestAdminBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bookings.On("FindBookings", ctx, db.BookingFilter{Status: models.BookingPending}).Return([]models.Booking{}, nil)
	bookings, err := f.svc.Bookings.AllBookings(ctx, admin(), models.BookingPending)
	require.NoError(t, err)
	assert.Empty(t, bookings)

	_, err = f.svc.Bookings.AllBookings(ctx, admin(), "refunded")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	f.bookings.On("FindBookingByID", ctx, "b-1").Return(&models.Booking{ID: "b-1", UserID: "u-1", Status: models.BookingPending}, nil)
	f.bookings.On("UpdateBookingStatus", ctx, "b-1", models.BookingPending, models.BookingConfirmed).Return(nil)
	b, err := f.svc.Bookings.UpdateStatus(ctx, admin(), "b-1", models.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)

	f.bookings.On("FindBookingByID", ctx, "b-2").Return(&models.Booking{ID: "b-2", Status: models.BookingPending}, nil)
	_, err = f.svc.Bookings.UpdateStatus(ctx, admin(), "b-2", models.BookingCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	f.assertExpectations(t)
}
