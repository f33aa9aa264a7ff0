package rental

import (
	"context"
	"errors"
	"strings"

	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/models"
)

// DefaultFeaturedLimit is the number of cars on the home page.
const DefaultFeaturedLimit = 4

// CarService lists the fleet and lets admins maintain it.
type CarService struct {
	cars db.CarCollection
}

// FetchCars lists the cars matching f, cheapest first.
func (s *CarService) FetchCars(ctx context.Context, f db.CarFilter) ([]models.Car, error) {
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return nil, invalid("min_price", "must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, invalid("max_price", "must not be below min_price")
	}
	cars, err := s.cars.FindCars(ctx, db.CarQuery{Filter: f})
	if err != nil {
		return nil, storeErr("fetch cars", err)
	}
	return cars, nil
}

// FeaturedCars returns up to limit available cars, most expensive first.
func (s *CarService) FeaturedCars(ctx context.Context, limit int) ([]models.Car, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	available := true
	cars, err := s.cars.FindCars(ctx, db.CarQuery{
		Filter: db.CarFilter{Available: &available},
		Desc:   true,
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, storeErr("fetch featured cars", err)
	}
	return cars, nil
}

// CarByID returns one car.
func (s *CarService) CarByID(ctx context.Context, id string) (*models.Car, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "is required")
	}
	car, err := s.cars.FindCarByID(ctx, id)
	if err != nil {
		return nil, storeErr("fetch car", err)
	}
	return car, nil
}

// Categories returns the distinct car categories, sorted.
func (s *CarService) Categories(ctx context.Context) ([]string, error) {
	v, err := s.cars.DistinctCarValues(ctx, "category")
	if err != nil {
		return nil, storeErr("fetch categories", err)
	}
	return v, nil
}

// Brands returns the distinct car brands, sorted.
func (s *CarService) Brands(ctx context.Context) ([]string, error) {
	v, err := s.cars.DistinctCarValues(ctx, "brand")
	if err != nil {
		return nil, storeErr("fetch brands", err)
	}
	return v, nil
}

// CreateCar adds a car to the fleet.
func (s *CarService) CreateCar(ctx context.Context, caller *models.Claims, car *models.Car) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := validateCar(car); err != nil {
		return err
	}
	if err := s.cars.InsertCar(ctx, car); err != nil {
		return storeErr("create car", err)
	}
	return nil
}

// UpdateCar replaces the editable fields of a car.
func (s *CarService) UpdateCar(ctx context.Context, caller *models.Claims, car *models.Car) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if car == nil || car.ID == "" {
		return invalid("id", "is required")
	}
	if err := validateCar(car); err != nil {
		return err
	}
	if err := s.cars.UpdateCar(ctx, car); err != nil {
		return storeErr("update car", err)
	}
	return nil
}

// SetAvailability flips the is_available flag of a car.
func (s *CarService) SetAvailability(ctx context.Context, caller *models.Claims, id string, available bool) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.cars.SetCarAvailability(ctx, id, available); err != nil {
		return storeErr("set car availability", err)
	}
	return nil
}

// DeleteCar removes a car from the fleet.
func (s *CarService) DeleteCar(ctx context.Context, caller *models.Claims, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.cars.DeleteCar(ctx, id); err != nil {
		return storeErr("delete car", err)
	}
	return nil
}

func validateCar(car *models.Car) error {
	if car == nil {
		return invalid("car", "is required")
	}
	if err := car.Validate(); err != nil {
		if errors.Is(err, models.ErrInvalidCar) {
			return invalid("car", "%s", strings.TrimPrefix(err.Error(), models.ErrInvalidCar.Error()+": "))
		}
		return err
	}
	return nil
}
