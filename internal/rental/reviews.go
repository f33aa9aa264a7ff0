package rental

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/models"
)

const maxCommentLength = 2000

// ReviewService records and lists car reviews.
type ReviewService struct {
	reviews  db.ReviewCollection
	cars     db.CarCollection
	profiles db.ProfileCollection
}

// CreateReview stores a review by the caller. The author name is taken from
// the profile, falling back to the email address.
func (s *ReviewService) CreateReview(ctx context.Context, caller *models.Claims, req models.CreateReviewRequest) (*models.Review, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CarID) == "" {
		return nil, invalid("car_id", "is required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, invalid("rating", "must be between 1 and 5")
	}
	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, invalid("comment", "must be at most %d characters", maxCommentLength)
	}

	car, err := s.cars.FindCarByID(ctx, req.CarID)
	if err != nil {
		return nil, storeErr("create review", err)
	}

	review := &models.Review{
		UserID:   caller.UserID,
		CarID:    car.ID,
		Rating:   req.Rating,
		Comment:  comment,
		UserName: s.authorName(ctx, caller),
	}
	if err := s.reviews.InsertReview(ctx, review); err != nil {
		return nil, storeErr("create review", err)
	}
	review.CarName = car.Name
	return review, nil
}

func (s *ReviewService) authorName(ctx context.Context, caller *models.Claims) string {
	p, err := s.profiles.FindProfile(ctx, caller.UserID)
	if err == nil && strings.TrimSpace(p.FullName) != "" {
		return p.FullName
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		log.WithError(err).WithField("user_id", caller.UserID).Warn("Failed to fetch review author, using email")
	}
	return caller.Email
}

// CarReviews lists the reviews of a car, newest first.
func (s *ReviewService) CarReviews(ctx context.Context, carID string) ([]models.Review, error) {
	if strings.TrimSpace(carID) == "" {
		return nil, invalid("car_id", "is required")
	}
	reviews, err := s.reviews.FindReviews(ctx, db.ReviewFilter{CarID: carID})
	if err != nil {
		return nil, storeErr("fetch reviews", err)
	}
	return reviews, nil
}

// UserReviews lists the caller's reviews, newest first, with car names.
func (s *ReviewService) UserReviews(ctx context.Context, caller *models.Claims) ([]models.Review, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	reviews, err := s.reviews.FindReviews(ctx, db.ReviewFilter{UserID: caller.UserID})
	if err != nil {
		return nil, storeErr("fetch reviews", err)
	}
	if len(reviews) == 0 {
		return reviews, nil
	}

	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.CarID)
	}
	cars, err := s.cars.FindCarsByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("fetch reviewed cars", err)
	}
	names := make(map[string]string, len(cars))
	for _, c := range cars {
		names[c.ID] = c.Name
	}
	for i := range reviews {
		reviews[i].CarName = names[reviews[i].CarID]
	}
	return reviews, nil
}

// DeleteReview removes one of the caller's reviews.
func (s *ReviewService) DeleteReview(ctx context.Context, caller *models.Claims, id string) error {
	if err := requireIdentity(caller); err != nil {
		return err
	}
	if err := s.reviews.DeleteReview(ctx, id, caller.UserID); err != nil {
		return storeErr("delete review", err)
	}
	return nil
}

// CarRating returns the average rating of a car.
func (s *ReviewService) CarRating(ctx context.Context, carID string) (models.RatingSummary, error) {
	summary, err := s.reviews.RatingSummary(ctx, carID)
	if err != nil {
		return summary, storeErr("fetch rating", err)
	}
	return summary, nil
}
