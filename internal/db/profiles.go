package db

import (
	"context"
	"time"

	"github.com/ukydev/luxury-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// profileUpdateDoc builds the update document for the non-nil fields of u.
func profileUpdateDoc(u models.ProfileUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if u.FullName != nil {
		set["full_name"] = *u.FullName
	}
	if u.PhoneNumber != nil {
		set["phone_number"] = *u.PhoneNumber
	}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	if u.DriverLicenseNumber != nil {
		set["driver_license_number"] = *u.DriverLicenseNumber
	}
	if u.DriverLicenseExpiry != nil {
		set["driver_license_expiry"] = *u.DriverLicenseExpiry
	}
	if u.AvatarURL != nil {
		set["avatar_url"] = *u.AvatarURL
	}
	return bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
}

// MongoProfileCollection implements ProfileCollection for MongoDB.
type MongoProfileCollection struct {
	Collection *mongo.Collection
}

// FindProfile finds the profile of an identity.
func (c *MongoProfileCollection) FindProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// InsertProfile stores a new profile.
func (c *MongoProfileCollection) InsertProfile(ctx context.Context, p *models.UserProfile) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, p)
	return mapErr(err)
}

// UpdateProfile applies u, creating the profile if it does not exist yet,
// and returns the stored result.
func (c *MongoProfileCollection) UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.UserProfile, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var p models.UserProfile
	err := c.Collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, profileUpdateDoc(u, time.Now().UTC()), opts).Decode(&p)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}
