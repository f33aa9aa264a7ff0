package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/client"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/session"
)

// catalogue is the admin surface the seeder writes through.
type catalogue interface {
	CreateCar(ctx context.Context, car models.Car) (*models.Car, error)
	CreatePromotion(ctx context.Context, p models.Promotion) (*models.Promotion, error)
	CreateFAQ(ctx context.Context, f models.FAQ) error
}

type carTemplate struct {
	brand, model, category string
	kind                   models.FeatureKind
	baseRate               float64
	horsepower             int
}

var templates = []carTemplate{
	{"Lamborghini", "Huracan EVO", "sports", models.FeatureCombustion, 1200, 631},
	{"Ferrari", "F8 Tributo", "sports", models.FeatureCombustion, 1300, 710},
	{"Porsche", "911 Turbo S", "sports", models.FeatureCombustion, 900, 640},
	{"Rolls-Royce", "Cullinan", "suv", models.FeatureCombustion, 1500, 563},
	{"Bentley", "Bentayga Hybrid", "suv", models.FeatureHybrid, 850, 443},
	{"Mercedes-Benz", "S 580", "sedan", models.FeatureCombustion, 600, 496},
	{"Porsche", "Taycan Turbo S", "sedan", models.FeatureElectric, 750, 750},
	{"Tesla", "Model S Plaid", "sedan", models.FeatureElectric, 450, 1020},
	{"Aston Martin", "DB11 Volante", "convertible", models.FeatureCombustion, 950, 503},
	{"McLaren", "Artura", "sports", models.FeatureHybrid, 1100, 671},
}

var extras = []string{"Premium sound", "Heated seats", "Carbon ceramic brakes", "Night vision", "Massage seats", "Panoramic roof"}

func randomFeatures(r *rand.Rand, t carTemplate) models.CarFeatures {
	f := models.CarFeatures{
		Kind:         t.kind,
		Seats:        []int{2, 4, 5}[r.Intn(3)],
		Transmission: "automatic",
		Horsepower:   t.horsepower,
		Acceleration: 2.5 + r.Float64()*2.5,
		TopSpeedMPH:  150 + r.Intn(60),
	}
	switch t.kind {
	case models.FeatureCombustion:
		f.Engine = []string{"V8 twin-turbo", "V10", "V12", "Flat-6 twin-turbo"}[r.Intn(4)]
		f.FuelType = "petrol"
	case models.FeatureElectric:
		f.BatteryKWh = 80 + float64(r.Intn(30))
		f.RangeMiles = 250 + r.Intn(150)
	case models.FeatureHybrid:
		f.Engine = "V6 plug-in hybrid"
		f.FuelType = "petrol"
		f.BatteryKWh = 7 + float64(r.Intn(12))
		f.RangeMiles = 20 + r.Intn(30)
	}
	for _, e := range extras {
		if r.Intn(2) == 0 {
			f.Extras = append(f.Extras, e)
		}
	}
	return f
}

func randomCar(r *rand.Rand, now time.Time) models.Car {
	t := templates[r.Intn(len(templates))]
	year := now.Year() - r.Intn(4)
	return models.Car{
		Name:        fmt.Sprintf("%d %s %s", year, t.brand, t.model),
		Brand:       t.brand,
		Model:       t.model,
		Year:        year,
		DailyRate:   t.baseRate + float64(r.Intn(10))*25,
		Description: fmt.Sprintf("The %s %s, delivered detailed and fully fuelled.", t.brand, t.model),
		Features:    randomFeatures(r, t),
		Category:    t.category,
		IsAvailable: true,
	}
}

var defaultFAQs = []models.FAQ{
	{ID: 1, Category: "booking", Question: "How far in advance should I book?", Answer: "We recommend booking at least a week ahead, though same-day rentals are possible when a car is free."},
	{ID: 2, Category: "booking", Question: "Can I cancel a booking?", Answer: "Pending and confirmed bookings can be cancelled from your account until the rental starts."},
	{ID: 3, Category: "requirements", Question: "What do I need to rent a car?", Answer: "A valid driving licence held for at least three years, a credit card and proof of identity."},
	{ID: 4, Category: "requirements", Question: "Is there a minimum age?", Answer: "Drivers must be 25 or older for most cars and 30 or older for supercars."},
	{ID: 5, Category: "pricing", Question: "Are there discounts for longer rentals?", Answer: "Rentals of a week or more get 10% off and rentals of a month or more get 20% off."},
	{ID: 6, Category: "pricing", Question: "Is insurance included?", Answer: "Comprehensive insurance and tax are included in the quoted total."},
}

func welcomePromotion(now time.Time) models.Promotion {
	return models.Promotion{
		Code:               "WELCOME10",
		Description:        "10% off your first luxury rental",
		DiscountPercentage: 10,
		ValidFrom:          now,
		ValidTo:            now.AddDate(0, 3, 0),
		IsActive:           true,
	}
}

type result struct {
	cars, promotions, faqs, skipped int
}

// seed creates fleetSize random cars, the welcome promotion and the default
// FAQs. Entries rejected as duplicates are skipped.
func seed(ctx context.Context, api catalogue, r *rand.Rand, now time.Time, fleetSize int) (result, error) {
	var res result
	for i := 0; i < fleetSize; i++ {
		car, err := api.CreateCar(ctx, randomCar(r, now))
		if err != nil {
			return res, fmt.Errorf("failed to create car: %w", err)
		}
		res.cars++
		log.WithFields(log.Fields{"car_id": car.ID, "name": car.Name}).Info("Created car")
	}

	promo, err := api.CreatePromotion(ctx, welcomePromotion(now))
	switch {
	case client.IsStatus(err, http.StatusBadRequest):
		res.skipped++
		log.WithError(err).Warn("Skipping promotion")
	case err != nil:
		return res, fmt.Errorf("failed to create promotion: %w", err)
	default:
		res.promotions++
		log.WithField("code", promo.Code).Info("Created promotion")
	}

	for _, f := range defaultFAQs {
		err := api.CreateFAQ(ctx, f)
		switch {
		case client.IsStatus(err, http.StatusBadRequest):
			res.skipped++
			log.WithError(err).WithField("faq_id", f.ID).Warn("Skipping FAQ")
		case err != nil:
			return res, fmt.Errorf("failed to create faq %d: %w", f.ID, err)
		default:
			res.faqs++
		}
	}
	return res, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	fleetSize := 10
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			fleetSize = n
		}
	}
	apiURL := envOr("API_BASE_URL", "http://localhost:8080")
	email := envOr("SEED_ADMIN_EMAIL", "admin@example.com")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is required")
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
	}).Info("Seeding catalogue")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	api := client.New(apiURL)
	defer api.Close()

	holder := session.NewHolder(api, api.Events())
	if err := holder.Start(ctx); err != nil {
		log.Fatalf("Failed to follow session: %v", err)
	}
	defer holder.Close()
	holder.OnChange(func(e events.Event, s session.State) {
		if e.Type == events.SignedOut {
			log.Warn("Admin session ended")
		}
	})

	if _, err := api.SignIn(ctx, email, password); err != nil {
		log.Fatalf("Failed to sign in as %s: %v", email, err)
	}
	state := holder.Snapshot()
	if !state.SignedIn() || state.User.Role != models.RoleAdmin {
		log.Fatalf("%s is not an admin", email)
	}

	res, err := seed(ctx, api, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now().UTC(), fleetSize)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.WithFields(log.Fields{
		"cars":       res.cars,
		"promotions": res.promotions,
		"faqs":       res.faqs,
		"skipped":    res.skipped,
	}).Info("Seeding completed")

	if err := api.SignOut(ctx); err != nil {
		log.WithError(err).Warn("Failed to sign out")
	}
}
