package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/luxury-rentals/internal/config"
	"github.com/ukydev/luxury-rentals/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(config.Default().Auth)
	require.NoError(t, err)
	return service
}

func testUser() *models.User {
	return &models.User{
		ID:    "user-1",
		Email: "test@example.com",
		Role:  models.RoleCustomer,
	}
}

func TestNewService(t *testing.T) {
	service := newTestService(t)
	assert.NotNil(t, service)
	assert.NotEmpty(t, service.jwtSecret)
	assert.Equal(t, time.Hour, service.tokenExp)

	_, err := NewService(config.AuthConfig{})
	assert.Error(t, err)
}

func TestService_HashPassword(t *testing.T) {
	service := newTestService(t)

	password := "testpassword123"
	hash, err := service.HashPassword(password)

	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)
}

func TestService_CheckPassword(t *testing.T) {
	service := newTestService(t)

	password := "testpassword123"
	hash, _ := service.HashPassword(password)

	// Test correct password
	assert.True(t, service.CheckPassword(password, hash))

	// Test incorrect password
	assert.False(t, service.CheckPassword("wrongpassword", hash))

	// Accounts without a password never match
	assert.False(t, service.CheckPassword("", ""))
}

func TestService_ValidateToken(t *testing.T) {
	service := newTestService(t)
	user := testUser()

	token, expiresAt, err := service.GenerateToken(user, "session-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	// Test valid token
	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)
	assert.Equal(t, "session-1", claims.SessionID)

	// Test invalid token
	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	// Test token with Bearer prefix
	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)

	// Token signed with another secret
	other, err := NewService(config.AuthConfig{JWTSecret: "another-secret-of-some-length"})
	require.NoError(t, err)
	_, err = other.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_MissingSession(t *testing.T) {
	service := newTestService(t)

	claims := jwt.MapClaims{
		"user_id": "user-1",
		"role":    "customer",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.jwtSecret)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_UnknownRole(t *testing.T) {
	service := newTestService(t)
	user := testUser()
	user.Role = "superuser"

	token, _, err := service.GenerateToken(user, "session-1")
	require.NoError(t, err)
	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_TokenExpiration(t *testing.T) {
	service := newTestService(t)
	user := testUser()

	token, _, _ := service.GenerateToken(user, "session-1")

	// Token should be valid immediately
	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	require.NotNil(t, claims)

	// Check expiration time
	now := time.Now().Unix()
	assert.Greater(t, claims.Exp, now)
	assert.LessOrEqual(t, claims.Exp, now+int64(service.tokenExp.Seconds())+1)

	// Two hours later the token has expired
	service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := newTestService(t)

	// Test valid header
	token := "valid-token"
	header := "Bearer " + token
	extracted, err := service.ExtractTokenFromHeader(header)
	assert.NoError(t, err)
	assert.Equal(t, token, extracted)

	// Test empty header
	_, err = service.ExtractTokenFromHeader("")
	assert.Equal(t, ErrInvalidToken, err)

	// Test invalid format
	_, err = service.ExtractTokenFromHeader("InvalidFormat")
	assert.Equal(t, ErrInvalidToken, err)

	// Test missing token
	_, err = service.ExtractTokenFromHeader("Bearer ")
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidatePassword(t *testing.T) {
	service := newTestService(t)

	// Test valid password
	assert.NoError(t, service.ValidatePassword("validpassword123"))

	// Test too short password
	err := service.ValidatePassword("short")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "at least 8 characters")

	// bcrypt ignores everything past 72 bytes
	err = service.ValidatePassword(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_ValidateEmail(t *testing.T) {
	service := newTestService(t)

	tests := []struct {
		email string
		valid bool
	}{
		{"test@example.com", true},
		{"first.last+tag@sub.example.co.uk", true},
		{"testexample.com", false},
		{"test@", false},
		{"test", false},
		{"@example.com", false},
		{"test@example", false},
		{"te st@example.com", false},
		{"test@.example.com", false},
		{"test@example.com.", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := service.ValidateEmail(tt.email)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
				assert.Contains(t, err.Error(), "invalid email format")
			}
		})
	}
}

func TestService_ValidateFullName(t *testing.T) {
	service := newTestService(t)

	assert.NoError(t, service.ValidateFullName("Ada Lovelace"))
	assert.NoError(t, service.ValidateFullName("Zoë"))

	err := service.ValidateFullName(" a ")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "at least 2 characters")

	err = service.ValidateFullName(strings.Repeat("a", 101))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "less than 100 characters")
}

func TestService_GenerateRefreshToken(t *testing.T) {
	service := newTestService(t)

	token, err := service.GenerateRefreshToken()
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Len(t, token, 44) // base64 encoded 32 bytes

	other, _ := service.GenerateRefreshToken()
	assert.NotEqual(t, token, other)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
