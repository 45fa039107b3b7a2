package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestSignAndParseJWT(t *testing.T) {
	token, err := SignJWT("secret", "user-1", "employer", 60)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ParseJWT("secret", token)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "employer", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, _ := SignJWT("secret-a", "user-1", "employer", 60)

	_, err := ParseJWT("secret-b", token)
	assert.Error(t, err)
}

func TestParseJWTExpired(t *testing.T) {
	token, _ := SignJWT("secret", "user-1", "employer", -1)

	_, err := ParseJWT("secret", token)
	assert.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseJWTGarbage(t *testing.T) {
	_, err := ParseJWT("secret", "not.a.token")
	assert.Error(t, err)
}
