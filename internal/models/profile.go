package models

import "time"

// UserProfile holds the customer details shown on the profile page. Its ID
// mirrors the auth identity.
type UserProfile struct {
	ID                  string     `bson:"_id" json:"id"`
	FullName            string     `bson:"full_name,omitempty" json:"full_name,omitempty"`
	PhoneNumber         string     `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Address             string     `bson:"address,omitempty" json:"address,omitempty"`
	DriverLicenseNumber string     `bson:"driver_license_number,omitempty" json:"driver_license_number,omitempty"`
	DriverLicenseExpiry *time.Time `bson:"driver_license_expiry,omitempty" json:"driver_license_expiry,omitempty"`
	AvatarURL           string     `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	CreatedAt           time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at" json:"updated_at"`
}

// ProfileUpdate carries the fields a customer may change. Nil fields are
// left untouched.
type ProfileUpdate struct {
	FullName            *string    `json:"full_name,omitempty"`
	PhoneNumber         *string    `json:"phone_number,omitempty"`
	Address             *string    `json:"address,omitempty"`
	DriverLicenseNumber *string    `json:"driver_license_number,omitempty"`
	DriverLicenseExpiry *time.Time `json:"driver_license_expiry,omitempty"`
	AvatarURL           *string    `json:"avatar_url,omitempty"`
}
