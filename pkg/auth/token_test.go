package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "peakrent", ExpirationMinutes: 30}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(testJWT, now, AccessTokenPayload{
		UserID: userID,
		Email:  "ana@example.com",
		Role:   enums.UserRoleStaff,
		JTI:    "access-1",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.UserRoleStaff, claims.Role)
	assert.Equal(t, "access-1", claims.ID)
	assert.Equal(t, "peakrent", claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	_, err := MintAccessToken(testJWT, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "owner"})
	assert.ErrorContains(t, err, "invalid user role")

	_, err = MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	assert.ErrorContains(t, err, "secret")

	_, err = MintAccessToken(testJWT, time.Now(), AccessTokenPayload{Role: enums.UserRoleCustomer})
	assert.ErrorContains(t, err, "user id")
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer, JTI: "old"})
	require.NoError(t, err)

	_, err = ParseAccessToken(testJWT, token)
	require.Error(t, err)

	claims, err := ParseAccessTokenAllowExpired(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, "old", claims.ID)
}

func TestParseAccessTokenRejectsWrongSecretOrIssuer(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	require.NoError(t, err)

	_, err = ParseAccessToken(config.JWTConfig{Secret: "other", Issuer: "peakrent"}, token)
	assert.Error(t, err)

	_, err = ParseAccessToken(config.JWTConfig{Secret: "secret", Issuer: "someone-else"}, token)
	assert.Error(t, err)

	_, err = ParseAccessTokenAllowExpired(config.JWTConfig{Secret: "secret", Issuer: "someone-else"}, token)
	assert.Error(t, err)

	tampered := token[:strings.LastIndex(token, ".")] + ".bogus"
	_, err = ParseAccessToken(testJWT, tampered)
	assert.Error(t, err)
}
