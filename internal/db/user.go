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

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new user into the database
func (c *MongoUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	user.IsActive = true

	_, err := c.Collection.InsertOne(ctx, user)
	return mapErr(err)
}

// FindUserByID finds a user by their ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

// FindUserByEmail finds a user by their email, ignoring case
func (c *MongoUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := c.Collection.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

// UpdateUser replaces a user in the database
func (c *MongoUserCollection) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return mapErr(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastLogin updates the last login time for a user
func (c *MongoUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	return err
}

// SetPasswordHash stores a new password hash for a user
func (c *MongoUserCollection) SetPasswordHash(ctx context.Context, id, hash string) error {
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken records a pending password reset for a user
func (c *MongoUserCollection) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	_, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"reset_token_hash": tokenHash, "reset_expires_at": expiresAt}},
	)
	return err
}

// ConsumeResetToken atomically clears a reset token that has not expired
func (c *MongoUserCollection) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	filter := bson.M{
		"reset_token_hash": tokenHash,
		"reset_expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$unset": bson.M{"reset_token_hash": "", "reset_expires_at": ""}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	if err := c.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user); err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}
