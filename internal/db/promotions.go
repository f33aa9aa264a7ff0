package db

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/luxury-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NormalizeCode canonicalizes a promotion code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func activePromotionFilter(now time.Time) bson.M {
	return bson.M{
		"is_active":  true,
		"valid_from": bson.M{"$lte": now},
		"valid_to":   bson.M{"$gte": now},
	}
}

// MongoPromotionCollection implements PromotionCollection for MongoDB.
type MongoPromotionCollection struct {
	Collection *mongo.Collection
}

// InsertPromotion stores a new promotion. Codes are unique.
func (c *MongoPromotionCollection) InsertPromotion(ctx context.Context, p *models.Promotion) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Code = NormalizeCode(p.Code)
	p.CreatedAt = time.Now().UTC()
	_, err := c.Collection.InsertOne(ctx, p)
	return mapErr(err)
}

// FindActivePromotions lists the promotions redeemable at now, largest
// discount first.
func (c *MongoPromotionCollection) FindActivePromotions(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "discount_percentage", Value: -1}})
	cursor, err := c.Collection.Find(ctx, activePromotionFilter(now), opts)
	if err != nil {
		return nil, err
	}
	promos := []models.Promotion{}
	if err := cursor.All(ctx, &promos); err != nil {
		return nil, err
	}
	return promos, nil
}

// FindPromotionByCode finds a promotion by its code, ignoring case.
func (c *MongoPromotionCollection) FindPromotionByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var p models.Promotion
	if err := c.Collection.FindOne(ctx, bson.M{"code": NormalizeCode(code)}).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// SetPromotionActive toggles the is_active flag of a promotion.
func (c *MongoPromotionCollection) SetPromotionActive(ctx context.Context, id string, active bool) error {
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_active": active}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoFAQCollection implements FAQCollection for MongoDB.
type MongoFAQCollection struct {
	Collection *mongo.Collection
}

// InsertFAQ stores a FAQ entry. IDs are chosen by the caller and define order.
func (c *MongoFAQCollection) InsertFAQ(ctx context.Context, f models.FAQ) error {
	_, err := c.Collection.InsertOne(ctx, f)
	return mapErr(err)
}

// FindFAQs lists FAQ entries ordered by ID, optionally in one category.
func (c *MongoFAQCollection) FindFAQs(ctx context.Context, category string) ([]models.FAQ, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	faqs := []models.FAQ{}
	if err := cursor.All(ctx, &faqs); err != nil {
		return nil, err
	}
	return faqs, nil
}

// FAQCategories returns the sorted distinct FAQ categories.
func (c *MongoFAQCollection) FAQCategories(ctx context.Context) ([]string, error) {
	values, err := c.Collection.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, err
	}
	return distinctStrings(values), nil
}
