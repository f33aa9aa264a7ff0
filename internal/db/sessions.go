package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/luxury-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSessionCollection implements SessionCollection for MongoDB.
type MongoSessionCollection struct {
	Collection *mongo.Collection
}

// InsertSession stores a new session.
func (c *MongoSessionCollection) InsertSession(ctx context.Context, s *models.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := c.Collection.InsertOne(ctx, s)
	return mapErr(err)
}

// FindSessionByID finds a session by its ID.
func (c *MongoSessionCollection) FindSessionByID(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

// FindSessionByRefreshHash finds the session holding a refresh token.
func (c *MongoSessionCollection) FindSessionByRefreshHash(ctx context.Context, hash string) (*models.Session, error) {
	var s models.Session
	if err := c.Collection.FindOne(ctx, bson.M{"refresh_token_hash": hash}).Decode(&s); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

// RotateRefresh swaps the refresh token of an unrevoked session.
func (c *MongoSessionCollection) RotateRefresh(ctx context.Context, id, oldHash, newHash string, expiresAt time.Time) error {
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "refresh_token_hash": oldHash, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"refresh_token_hash": newHash, "expires_at": expiresAt}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

// RevokeSession marks a session revoked. Revoking twice is not an error.
func (c *MongoSessionCollection) RevokeSession(ctx context.Context, id string) error {
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// RevokeUserSessions revokes every live session of a user.
func (c *MongoSessionCollection) RevokeUserSessions(ctx context.Context, userID string) ([]string, error) {
	live := bson.M{"user_id": userID, "revoked_at": bson.M{"$exists": false}}
	values, err := c.Collection.Distinct(ctx, "_id", live)
	if err != nil {
		return nil, err
	}
	ids := distinctStrings(values)
	if len(ids) == 0 {
		return nil, nil
	}
	_, err = c.Collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": time.Now().UTC()}},
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
