package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/rental"
)

// CarHandler serves the car catalogue and its admin operations.
type CarHandler struct {
	cars     *rental.CarService
	bookings *rental.BookingService
	reviews  *rental.ReviewService
}

// NewCarHandler creates a car handler.
func NewCarHandler(svc *rental.Services) *CarHandler {
	return &CarHandler{cars: svc.Cars, bookings: svc.Bookings, reviews: svc.Reviews}
}

// AvailabilityResponse is the body of the availability check.
type AvailabilityResponse struct {
	CarID     string `json:"car_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

// CarReviewsResponse lists the reviews of a car with its rating summary.
type CarReviewsResponse struct {
	Rating  models.RatingSummary `json:"rating"`
	Reviews []models.Review      `json:"reviews"`
}

type availabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

// List handles GET /api/cars
func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	f := db.CarFilter{
		Category: r.URL.Query().Get("category"),
		Brand:    r.URL.Query().Get("brand"),
	}
	var err error
	if f.MinPrice, err = queryFloat(r, "min_price"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.MaxPrice, err = queryFloat(r, "max_price"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.Available, err = queryBool(r, "available"); err != nil {
		writeError(w, r, err)
		return
	}

	cars, err := h.cars.FetchCars(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

// Featured handles GET /api/cars/featured
func (h *CarHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit := rental.DefaultFeaturedLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	cars, err := h.cars.FeaturedCars(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

// Categories handles GET /api/cars/categories
func (h *CarHandler) Categories(w http.ResponseWriter, r *http.Request) {
	values, err := h.cars.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// Brands handles GET /api/cars/brands
func (h *CarHandler) Brands(w http.ResponseWriter, r *http.Request) {
	values, err := h.cars.Brands(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// Get handles GET /api/cars/{id}
func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	car, err := h.cars.CarByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// Availability handles GET /api/cars/{id}/availability?start&end
func (h *CarHandler) Availability(w http.ResponseWriter, r *http.Request) {
	start, end, err := queryDates(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	ok, err := h.bookings.CheckCarAvailability(r.Context(), id, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		CarID:     id,
		Start:     r.URL.Query().Get("start"),
		End:       r.URL.Query().Get("end"),
		Available: ok,
	})
}

// Quote handles GET /api/cars/{id}/quote?start&end&promo
func (h *CarHandler) Quote(w http.ResponseWriter, r *http.Request) {
	start, end, err := queryDates(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.bookings.Quote(r.Context(), chi.URLParam(r, "id"), start, end, r.URL.Query().Get("promo"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Reviews handles GET /api/cars/{id}/reviews
func (h *CarHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reviews, err := h.reviews.CarReviews(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rating, err := h.reviews.CarRating(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	writeJSON(w, http.StatusOK, CarReviewsResponse{Rating: rating, Reviews: reviews})
}

// Create handles POST /api/admin/cars
func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var car models.Car
	if !readJSON(w, r, &car) {
		return
	}
	if err := h.cars.CreateCar(r.Context(), caller(r), &car); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

// Update handles PUT /api/admin/cars/{id}
func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request) {
	var car models.Car
	if !readJSON(w, r, &car) {
		return
	}
	car.ID = chi.URLParam(r, "id")
	if err := h.cars.UpdateCar(r.Context(), caller(r), &car); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// SetAvailability handles PUT /api/admin/cars/{id}/availability
func (h *CarHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.cars.SetAvailability(r.Context(), caller(r), chi.URLParam(r, "id"), req.IsAvailable); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/admin/cars/{id}
func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.cars.DeleteCar(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
