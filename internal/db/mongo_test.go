package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/luxury-rentals/internal/models"
)

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, "mongodb://bad:uri")
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestInsertCar_NilCollection(t *testing.T) {
	coll := &MongoCarCollection{Collection: nil}
	err := coll.InsertCar(context.Background(), &models.Car{})
	if err == nil {
		t.Error("expected error when collection is nil")
	}
}

// testStore connects to the database named by MONGO_URI or skips the test.
func testStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	database := client.Database("test_rentals")
	require.NoError(t, database.Drop(ctx))
	store := NewStore(database)
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func sampleCar(name string, rate float64, available bool) *models.Car {
	return &models.Car{
		Name:        name,
		Brand:       "Porsche",
		Model:       name,
		Year:        2023,
		DailyRate:   rate,
		Category:    "sports",
		IsAvailable: available,
		Features: models.CarFeatures{
			Kind:         models.FeatureElectric,
			Seats:        4,
			Transmission: "automatic",
			BatteryKWh:   93,
			RangeMiles:   280,
		},
	}
}

func TestMongoCarCollection_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	cheap := sampleCar("Taycan 4S", 499, true)
	mid := sampleCar("Taycan Turbo", 899, true)
	pricey := sampleCar("Taycan Turbo S", 1199, false)
	pricey.Category = "sedan"
	for _, c := range []*models.Car{pricey, cheap, mid} {
		require.NoError(t, store.Cars.InsertCar(ctx, c))
		assert.NotEmpty(t, c.ID)
	}

	all, err := store.Cars.FindCars(ctx, CarQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, cheap.ID, all[0].ID)
	assert.Equal(t, pricey.ID, all[2].ID)

	featured, err := store.Cars.FindCars(ctx, CarQuery{
		Filter: CarFilter{Available: ptr(true)},
		Desc:   true,
		Limit:  1,
	})
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, mid.ID, featured[0].ID)

	inRange, err := store.Cars.FindCars(ctx, CarQuery{Filter: CarFilter{MinPrice: ptr(500.0), MaxPrice: ptr(1200.0)}})
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	cats, err := store.Cars.DistinctCarValues(ctx, "category")
	require.NoError(t, err)
	assert.Equal(t, []string{"sedan", "sports"}, cats)

	require.NoError(t, store.Cars.SetCarAvailability(ctx, pricey.ID, true))
	got, err := store.Cars.FindCarByID(ctx, pricey.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
	assert.Equal(t, models.FeatureElectric, got.Features.Kind)

	n, err := store.Cars.CountCars(ctx, CarFilter{Available: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, store.Cars.DeleteCar(ctx, cheap.ID))
	_, err = store.Cars.FindCarByID(ctx, cheap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Cars.DeleteCar(ctx, cheap.ID), ErrNotFound)
}

func TestMongoBookingCollection_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2024, 7, d, 0, 0, 0, 0, time.UTC) }

	confirmed := &models.Booking{UserID: "u-1", CarID: "car-1", StartDate: day(10), EndDate: day(14), TotalAmount: 1000, Status: models.BookingConfirmed}
	cancelled := &models.Booking{UserID: "u-2", CarID: "car-1", StartDate: day(1), EndDate: day(30), TotalAmount: 6000, Status: models.BookingCancelled}
	require.NoError(t, store.Bookings.InsertBooking(ctx, confirmed))
	require.NoError(t, store.Bookings.InsertBooking(ctx, cancelled))

	overlapping := [][2]time.Time{
		{day(8), day(10)},
		{day(14), day(16)},
		{day(11), day(12)},
		{day(5), day(20)},
	}
	for _, r := range overlapping {
		n, err := store.Bookings.CountOverlapping(ctx, "car-1", r[0], r[1])
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "range %v", r)
	}

	disjoint := [][2]time.Time{
		{day(1), day(9)},
		{day(15), day(20)},
	}
	for _, r := range disjoint {
		n, err := store.Bookings.CountOverlapping(ctx, "car-1", r[0], r[1])
		require.NoError(t, err)
		assert.Equal(t, int64(0), n, "range %v", r)
	}

	n, err := store.Bookings.CountOverlapping(ctx, "car-2", day(10), day(14))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	mine, err := store.Bookings.FindBookings(ctx, BookingFilter{UserID: "u-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, store.Bookings.UpdateBookingStatus(ctx, confirmed.ID, models.BookingConfirmed, models.BookingCompleted))
	assert.ErrorIs(t, store.Bookings.UpdateBookingStatus(ctx, confirmed.ID, models.BookingConfirmed, models.BookingCancelled), ErrConflict)
	assert.ErrorIs(t, store.Bookings.UpdateBookingStatus(ctx, "missing", models.BookingPending, models.BookingCancelled), ErrNotFound)

	counts, err := store.Bookings.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.BookingCompleted])
	assert.Equal(t, int64(1), counts[models.BookingCancelled])

	revenue, err := store.Bookings.SumRevenue(ctx, models.BookingConfirmed, models.BookingCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, revenue)
}

func TestMongoReviewAndPromotion_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, r := range []int{5, 4, 4} {
		require.NoError(t, store.Reviews.InsertReview(ctx, &models.Review{UserID: "u-1", CarID: "car-1", Rating: r}))
	}
	summary, err := store.Reviews.RatingSummary(ctx, "car-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 4.3, summary.Average)

	reviews, err := store.Reviews.FindReviews(ctx, ReviewFilter{CarID: "car-1"})
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.ErrorIs(t, store.Reviews.DeleteReview(ctx, reviews[0].ID, "someone-else"), ErrNotFound)
	require.NoError(t, store.Reviews.DeleteReview(ctx, reviews[0].ID, "u-1"))

	now := time.Now().UTC()
	promo := &models.Promotion{Code: "summer25", DiscountPercentage: 25, ValidFrom: now.Add(-time.Hour), ValidTo: now.Add(time.Hour), IsActive: true}
	require.NoError(t, store.Promotions.InsertPromotion(ctx, promo))
	assert.ErrorIs(t, store.Promotions.InsertPromotion(ctx, &models.Promotion{Code: "SUMMER25"}), ErrDuplicate)

	found, err := store.Promotions.FindPromotionByCode(ctx, "Summer25")
	require.NoError(t, err)
	assert.Equal(t, promo.ID, found.ID)

	active, err := store.Promotions.FindActivePromotions(ctx, now)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, store.Promotions.SetPromotionActive(ctx, promo.ID, false))
	active, err = store.Promotions.FindActivePromotions(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMongoProfileCollection_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.Profiles.FindProfile(ctx, "u-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Profiles.InsertProfile(ctx, &models.UserProfile{ID: "u-1", FullName: "Ada"}))
	updated, err := store.Profiles.UpdateProfile(ctx, "u-1", models.ProfileUpdate{PhoneNumber: ptr("+44 20 7946 0958")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FullName)
	assert.Equal(t, "+44 20 7946 0958", updated.PhoneNumber)

	created, err := store.Profiles.UpdateProfile(ctx, "u-2", models.ProfileUpdate{FullName: ptr("Grace")})
	require.NoError(t, err)
	assert.Equal(t, "u-2", created.ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestMongoSessionCollection_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	s := &models.Session{UserID: "u-1", RefreshTokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Sessions.InsertSession(ctx, s))

	found, err := store.Sessions.FindSessionByRefreshHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)

	require.NoError(t, store.Sessions.RotateRefresh(ctx, s.ID, "h1", "h2", time.Now().Add(2*time.Hour)))
	assert.ErrorIs(t, store.Sessions.RotateRefresh(ctx, s.ID, "h1", "h3", time.Now()), ErrConflict)

	require.NoError(t, store.Sessions.RevokeSession(ctx, s.ID))
	require.NoError(t, store.Sessions.RevokeSession(ctx, s.ID))
	assert.ErrorIs(t, store.Sessions.RevokeSession(ctx, "missing"), ErrNotFound)

	found, err = store.Sessions.FindSessionByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, found.Active(time.Now()))
}

func TestMongoSessionCollection_RevokeUserSessions_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	a := &models.Session{UserID: "u-9", RefreshTokenHash: "ha", ExpiresAt: time.Now().Add(time.Hour)}
	b := &models.Session{UserID: "u-9", RefreshTokenHash: "hb", ExpiresAt: time.Now().Add(time.Hour)}
	other := &models.Session{UserID: "u-10", RefreshTokenHash: "hc", ExpiresAt: time.Now().Add(time.Hour)}
	for _, s := range []*models.Session{a, b, other} {
		require.NoError(t, store.Sessions.InsertSession(ctx, s))
	}
	require.NoError(t, store.Sessions.RevokeSession(ctx, b.ID))

	ids, err := store.Sessions.RevokeUserSessions(ctx, "u-9")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids)

	ids, err = store.Sessions.RevokeUserSessions(ctx, "u-9")
	require.NoError(t, err)
	assert.Empty(t, ids)

	found, err := store.Sessions.FindSessionByID(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, found.Active(time.Now()))
}
