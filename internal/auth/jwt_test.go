package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("testsecret"),
		Issuer:   "portal",
		Audience: "groupchat",
		TTL:      time.Hour,
	}
}

func TestGenerateAndValidate(t *testing.T) {
	cfg := testConfig()

	token, err := GenerateToken(cfg, 42, "faculty", "Grace Hopper")
	require.NoError(t, err)

	claims, err := ValidateToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "faculty", claims.UserType)
	assert.Equal(t, "Grace Hopper", claims.UserName)
}

func TestValidateRejects(t *testing.T) {
	cfg := testConfig()

	expired := &JWTConfig{Secret: cfg.Secret, Issuer: cfg.Issuer, Audience: cfg.Audience, TTL: -time.Minute}
	wrongSecret := &JWTConfig{Secret: []byte("other"), Issuer: cfg.Issuer, Audience: cfg.Audience, TTL: time.Hour}
	wrongAudience := &JWTConfig{Secret: cfg.Secret, Issuer: cfg.Issuer, Audience: "elsewhere", TTL: time.Hour}
	wrongIssuer := &JWTConfig{Secret: cfg.Secret, Issuer: "mallory", Audience: cfg.Audience, TTL: time.Hour}

	tests := []struct {
		name   string
		signer *JWTConfig
		userID int64
	}{
		{name: "expired", signer: expired, userID: 1},
		{name: "wrong secret", signer: wrongSecret, userID: 1},
		{name: "wrong audience", signer: wrongAudience, userID: 1},
		{name: "wrong issuer", signer: wrongIssuer, userID: 1},
		{name: "missing user id", signer: cfg, userID: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.signer, tt.userID, "student", "Alice")
			require.NoError(t, err)

			_, err = ValidateToken(cfg, token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, UserType: "student"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(testConfig(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := GenerateToken(&JWTConfig{TTL: time.Hour}, 1, "student", "Alice")
	assert.Error(t, err)
}
