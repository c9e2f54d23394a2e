package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ana = Identity{ID: "kp_123", Email: "ana@example.com", GivenName: "Ana", FamilyName: "Souza", Picture: "https://img/ana.png"}

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("secret", "https://auth.example", "enem-practice")

	token, err := v.IssueToken(ana, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, ana, *id)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("secret", "", "")

	expired, err := v.IssueToken(ana, -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewVerifier("other", "", "").IssueToken(ana, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewVerifier("secret", "someone-else", "").IssueToken(ana, time.Hour)
	require.NoError(t, err)

	noSubject, err := v.IssueToken(Identity{Email: "x@y.z"}, time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	strict := NewVerifier("secret", "https://auth.example", "")

	tests := []struct {
		name     string
		verifier *Verifier
		token    string
	}{
		{"empty", v, ""},
		{"bearer only", v, "Bearer "},
		{"garbage", v, "not.a.token"},
		{"expired", v, expired},
		{"wrong key", v, otherKey},
		{"wrong issuer", strict, wrongIssuer},
		{"no subject", v, noSubject},
		{"no expiry", v, noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tt.verifier.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, id)
		})
	}
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Nil(t, FromContext(WithIdentity(context.Background(), &Identity{})))

	ctx := WithIdentity(context.Background(), &ana)
	require.NotNil(t, FromContext(ctx))
	assert.Equal(t, "kp_123", FromContext(ctx).ID)
}

func TestIdentityUser(t *testing.T) {
	u := ana.User()
	assert.Equal(t, "kp_123", u.ID)
	assert.Equal(t, ana.Email, u.Email)
	assert.Equal(t, ana.GivenName, u.GivenName)
}
