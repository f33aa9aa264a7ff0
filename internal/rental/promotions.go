package rental

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/models"
)

// PromotionService manages discount codes.
type PromotionService struct {
	promotions db.PromotionCollection
	now        func() time.Time
}

// ActivePromotions lists the promotions redeemable now, biggest discount first.
func (s *PromotionService) ActivePromotions(ctx context.Context) ([]models.Promotion, error) {
	promos, err := s.promotions.FindActivePromotions(ctx, s.now().UTC())
	if err != nil {
		return nil, storeErr("fetch promotions", err)
	}
	return promos, nil
}

// ValidatePromoCode returns the promotion for code if it is redeemable now.
func (s *PromotionService) ValidatePromoCode(ctx context.Context, code string) (*models.Promotion, error) {
	code = db.NormalizeCode(code)
	if code == "" {
		return nil, invalid("code", "is required")
	}
	p, err := s.promotions.FindPromotionByCode(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidPromotion
	}
	if err != nil {
		return nil, storeErr("validate promotion", err)
	}
	if !p.ActiveAt(s.now().UTC()) {
		return nil, ErrInvalidPromotion
	}
	return p, nil
}

// CreatePromotion stores a new promotion. Codes are unique regardless of case.
func (s *PromotionService) CreatePromotion(ctx context.Context, caller *models.Claims, p *models.Promotion) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if p == nil {
		return invalid("promotion", "is required")
	}
	p.Code = db.NormalizeCode(p.Code)
	switch {
	case p.Code == "":
		return invalid("code", "is required")
	case strings.ContainsAny(p.Code, " \t"):
		return invalid("code", "must not contain spaces")
	case p.DiscountPercentage <= 0 || p.DiscountPercentage > 100:
		return invalid("discount_percentage", "must be greater than 0 and at most 100")
	case p.ValidFrom.IsZero() || p.ValidTo.IsZero():
		return invalid("valid_from", "validity window is required")
	case p.ValidTo.Before(p.ValidFrom):
		return invalid("valid_to", "must not be before valid_from")
	}

	err := s.promotions.InsertPromotion(ctx, p)
	if errors.Is(err, db.ErrDuplicate) {
		return invalid("code", "%s already exists", p.Code)
	}
	if err != nil {
		return storeErr("create promotion", err)
	}
	return nil
}

// DeactivatePromotion stops a promotion from being redeemed.
func (s *PromotionService) DeactivatePromotion(ctx context.Context, caller *models.Claims, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.promotions.SetPromotionActive(ctx, id, false); err != nil {
		return storeErr("deactivate promotion", err)
	}
	return nil
}

// FAQService serves the help page.
type FAQService struct {
	faqs db.FAQCollection
}

// FetchFAQs lists the FAQs in display order, optionally for one category.
func (s *FAQService) FetchFAQs(ctx context.Context, category string) ([]models.FAQ, error) {
	faqs, err := s.faqs.FindFAQs(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, storeErr("fetch faqs", err)
	}
	return faqs, nil
}

// FAQCategories returns the distinct FAQ categories, sorted.
func (s *FAQService) FAQCategories(ctx context.Context) ([]string, error) {
	c, err := s.faqs.FAQCategories(ctx)
	if err != nil {
		return nil, storeErr("fetch faq categories", err)
	}
	return c, nil
}

// CreateFAQ stores an FAQ. Its ID sets the display order.
func (s *FAQService) CreateFAQ(ctx context.Context, caller *models.Claims, f models.FAQ) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	switch {
	case f.ID <= 0:
		return invalid("id", "must be positive")
	case strings.TrimSpace(f.Question) == "":
		return invalid("question", "is required")
	case strings.TrimSpace(f.Answer) == "":
		return invalid("answer", "is required")
	case strings.TrimSpace(f.Category) == "":
		return invalid("category", "is required")
	}
	err := s.faqs.InsertFAQ(ctx, f)
	if errors.Is(err, db.ErrDuplicate) {
		return invalid("id", "faq %d already exists", f.ID)
	}
	if err != nil {
		return storeErr(fmt.Sprintf("create faq %d", f.ID), err)
	}
	return nil
}
