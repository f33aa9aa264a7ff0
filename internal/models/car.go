package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCar is wrapped by every car validation failure.
var ErrInvalidCar = errors.New("invalid car")

// FeatureKind tags the powertrain-specific shape of a car's feature set.
type FeatureKind string

const (
	FeatureCombustion FeatureKind = "combustion"
	FeatureElectric   FeatureKind = "electric"
	FeatureHybrid     FeatureKind = "hybrid"
)

// CarFeatures is the typed feature set of a car. Which powertrain fields are
// required depends on Kind.
type CarFeatures struct {
	Kind         FeatureKind `bson:"kind" json:"kind"`
	Seats        int         `bson:"seats" json:"seats"`
	Transmission string      `bson:"transmission" json:"transmission"` // "automatic" or "manual"
	Horsepower   int         `bson:"horsepower" json:"horsepower"`
	Acceleration float64     `bson:"acceleration_0_60" json:"acceleration_0_60"` // seconds
	TopSpeedMPH  int         `bson:"top_speed_mph" json:"top_speed_mph"`
	Engine       string      `bson:"engine,omitempty" json:"engine,omitempty"`
	FuelType     string      `bson:"fuel_type,omitempty" json:"fuel_type,omitempty"`
	BatteryKWh   float64     `bson:"battery_kwh,omitempty" json:"battery_kwh,omitempty"`
	RangeMiles   int         `bson:"range_miles,omitempty" json:"range_miles,omitempty"`
	Extras       []string    `bson:"extras,omitempty" json:"extras,omitempty"`
}

// Validate checks the feature set against the rules of its kind.
func (f CarFeatures) Validate() error {
	if f.Seats < 0 || f.Horsepower < 0 || f.TopSpeedMPH < 0 || f.Acceleration < 0 {
		return fmt.Errorf("%w: features must not be negative", ErrInvalidCar)
	}
	if f.Transmission != "" && f.Transmission != "automatic" && f.Transmission != "manual" {
		return fmt.Errorf("%w: unknown transmission %q", ErrInvalidCar, f.Transmission)
	}

	needsEngine := false
	needsBattery := false
	switch f.Kind {
	case FeatureCombustion:
		needsEngine = true
	case FeatureElectric:
		needsBattery = true
	case FeatureHybrid:
		needsEngine = true
		needsBattery = true
	default:
		return fmt.Errorf("%w: unknown feature kind %q", ErrInvalidCar, f.Kind)
	}

	if needsEngine {
		if strings.TrimSpace(f.Engine) == "" || strings.TrimSpace(f.FuelType) == "" {
			return fmt.Errorf("%w: %s cars require engine and fuel_type", ErrInvalidCar, f.Kind)
		}
	} else if f.Engine != "" || f.FuelType != "" {
		return fmt.Errorf("%w: %s cars have no engine", ErrInvalidCar, f.Kind)
	}

	if needsBattery {
		if f.BatteryKWh <= 0 || f.RangeMiles <= 0 {
			return fmt.Errorf("%w: %s cars require battery_kwh and range_miles", ErrInvalidCar, f.Kind)
		}
	} else if f.BatteryKWh != 0 || f.RangeMiles != 0 {
		return fmt.Errorf("%w: %s cars have no battery", ErrInvalidCar, f.Kind)
	}
	return nil
}

// Car represents a rentable car in the fleet.
type Car struct {
	ID          string      `bson:"_id" json:"id"`
	Name        string      `bson:"name" json:"name"`
	Brand       string      `bson:"brand" json:"brand"`
	Model       string      `bson:"model" json:"model"`
	Year        int         `bson:"year" json:"year"`
	DailyRate   float64     `bson:"daily_rate" json:"daily_rate"` // in USD
	Description string      `bson:"description" json:"description"`
	Features    CarFeatures `bson:"features" json:"features"`
	Category    string      `bson:"category" json:"category"` // "sports", "suv", "sedan", "convertible", ...
	ImageURL    string      `bson:"image_url" json:"image_url"`
	IsAvailable bool        `bson:"is_available" json:"is_available"`
	CreatedAt   time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `bson:"updated_at" json:"updated_at"`
}

// Validate checks the fields an admin must supply before a car is stored.
func (c Car) Validate() error {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Brand) == "" || strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: name, brand and model are required", ErrInvalidCar)
	}
	if c.Year < 1900 || c.Year > time.Now().Year()+1 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidCar, c.Year)
	}
	if c.DailyRate < 0 {
		return fmt.Errorf("%w: daily_rate must not be negative", ErrInvalidCar)
	}
	if strings.TrimSpace(c.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidCar)
	}
	return c.Features.Validate()
}
