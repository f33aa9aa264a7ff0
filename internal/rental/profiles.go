package rental

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/storage"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]*[0-9]$`)

// ProfileService manages customer profiles and their avatars.
type ProfileService struct {
	profiles db.ProfileCollection
	users    db.UserCollection
	avatars  storage.ObjectStore
	events   events.Publisher
	now      func() time.Time
}

// GetProfile returns the caller's profile, creating it on first access.
func (s *ProfileService) GetProfile(ctx context.Context, caller *models.Claims) (*models.UserProfile, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	p, err := s.profiles.FindProfile(ctx, caller.UserID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, storeErr("fetch profile", err)
	}

	p = &models.UserProfile{ID: caller.UserID}
	if s.users != nil {
		if u, uerr := s.users.FindUserByID(ctx, caller.UserID); uerr == nil {
			p.FullName = u.FullName
		}
	}
	err = s.profiles.InsertProfile(ctx, p)
	if errors.Is(err, db.ErrDuplicate) {
		// Created by a concurrent request.
		p, err = s.profiles.FindProfile(ctx, caller.UserID)
	}
	if err != nil {
		return nil, storeErr("create profile", err)
	}
	log.WithField("user_id", caller.UserID).Info("Profile created")
	return p, nil
}

// ValidatePhone accepts an optional leading +, then 7 to 15 digits that may
// be grouped with spaces or dashes.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return invalid("phone_number", "must contain only digits, spaces and dashes")
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 7 || digits > 15 {
		return invalid("phone_number", "must have between 7 and 15 digits")
	}
	return nil
}

func (s *ProfileService) validateUpdate(u *models.ProfileUpdate) error {
	if u.FullName != nil {
		name := strings.TrimSpace(*u.FullName)
		if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
			return invalid("full_name", "must be between 2 and 100 characters")
		}
		u.FullName = &name
	}
	if u.PhoneNumber != nil {
		phone := strings.TrimSpace(*u.PhoneNumber)
		if phone != "" {
			if err := ValidatePhone(phone); err != nil {
				return err
			}
		}
		u.PhoneNumber = &phone
	}
	if u.DriverLicenseNumber != nil {
		lic := strings.ToUpper(strings.TrimSpace(*u.DriverLicenseNumber))
		if len(lic) > 32 {
			return invalid("driver_license_number", "must be at most 32 characters")
		}
		u.DriverLicenseNumber = &lic
	}
	if u.DriverLicenseExpiry != nil {
		exp := *u.DriverLicenseExpiry
		if startOfDay(exp).Before(startOfDay(s.now().In(exp.Location()))) {
			return invalid("driver_license_expiry", "license has expired")
		}
	}
	if u.Address != nil {
		addr := strings.TrimSpace(*u.Address)
		u.Address = &addr
	}
	return nil
}

// UpdateProfile applies the non-nil fields of patch to the caller's profile.
// The avatar is only changed through the avatar operations.
func (s *ProfileService) UpdateProfile(ctx context.Context, caller *models.Claims, patch models.ProfileUpdate) (*models.UserProfile, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	patch.AvatarURL = nil
	if err := s.validateUpdate(&patch); err != nil {
		return nil, err
	}
	p, err := s.profiles.UpdateProfile(ctx, caller.UserID, patch)
	if err != nil {
		return nil, storeErr("update profile", err)
	}
	publish(ctx, s.events, events.Event{Type: events.UserUpdated, UserID: caller.UserID})
	return p, nil
}

func avatarError(err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return invalid("avatar", "must be at most %d MiB", storage.MaxObjectBytes>>20)
	case errors.Is(err, storage.ErrUnsupportedType):
		return invalid("avatar", "must be a JPEG, PNG, GIF or WebP image")
	case errors.Is(err, storage.ErrInvalidPath):
		return invalid("avatar", "invalid avatar location")
	}
	return nil
}

// UploadAvatar stores a new avatar image for the caller and points the
// profile at it. It returns the public URL.
func (s *ProfileService) UploadAvatar(ctx context.Context, caller *models.Claims, contentType string, r io.Reader) (string, error) {
	if err := requireIdentity(caller); err != nil {
		return "", err
	}
	ext, err := storage.ImageExtension(strings.Split(contentType, ";")[0])
	if err != nil {
		return "", avatarError(err)
	}

	objectPath := fmt.Sprintf("%s/%s%s", caller.UserID, uuid.NewString(), ext)
	if _, err := s.avatars.Upload(ctx, objectPath, contentType, r); err != nil {
		if verr := avatarError(err); verr != nil {
			return "", verr
		}
		return "", storeErr("upload avatar", err)
	}

	url := s.avatars.PublicURL(objectPath)
	if _, err := s.profiles.UpdateProfile(ctx, caller.UserID, models.ProfileUpdate{AvatarURL: &url}); err != nil {
		return "", storeErr("update profile avatar", err)
	}
	log.WithFields(log.Fields{"user_id": caller.UserID, "path": objectPath}).Info("Avatar uploaded")
	publish(ctx, s.events, events.Event{Type: events.UserUpdated, UserID: caller.UserID})
	return url, nil
}

// AvatarURL returns the caller's avatar: the profile's avatar_url if set,
// otherwise the most recently uploaded object. Empty when there is none.
func (s *ProfileService) AvatarURL(ctx context.Context, caller *models.Claims) (string, error) {
	if err := requireIdentity(caller); err != nil {
		return "", err
	}
	p, err := s.profiles.FindProfile(ctx, caller.UserID)
	switch {
	case err == nil && p.AvatarURL != "":
		return p.AvatarURL, nil
	case err != nil && !errors.Is(err, db.ErrNotFound):
		return "", storeErr("fetch profile", err)
	}

	objs, err := s.avatars.List(ctx, caller.UserID+"/")
	if err != nil {
		return "", storeErr("list avatars", err)
	}
	if len(objs) == 0 {
		return "", nil
	}
	return s.avatars.PublicURL(objs[0].Path), nil
}

// DeleteAvatar removes the avatar at url. Callers may only delete objects
// under their own folder. The profile is cleared if it pointed there.
func (s *ProfileService) DeleteAvatar(ctx context.Context, caller *models.Claims, url string) error {
	if err := requireIdentity(caller); err != nil {
		return err
	}
	objectPath, err := storage.PathFromURL(url, AvatarBucket)
	if err != nil {
		return avatarError(err)
	}
	if !strings.HasPrefix(objectPath, caller.UserID+"/") {
		return ErrForbidden
	}
	if err := s.avatars.Remove(ctx, objectPath); err != nil {
		return storeErr("remove avatar", err)
	}

	p, err := s.profiles.FindProfile(ctx, caller.UserID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return storeErr("fetch profile", err)
	}
	if err == nil && p.AvatarURL == url {
		empty := ""
		if _, err := s.profiles.UpdateProfile(ctx, caller.UserID, models.ProfileUpdate{AvatarURL: &empty}); err != nil {
			return storeErr("clear profile avatar", err)
		}
	}
	publish(ctx, s.events, events.Event{Type: events.UserUpdated, UserID: caller.UserID})
	return nil
}
