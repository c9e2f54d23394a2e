package auth

import (
	"context"

	"github.com/enem-practice/backend/internal/models"
)

// Identity is the caller as asserted by the identity provider. It is trusted
// once the token carrying it has been verified.
type Identity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// User converts the identity into the locally mirrored user row.
func (i Identity) User() models.User {
	return models.User{
		ID:         i.ID,
		Email:      i.Email,
		GivenName:  i.GivenName,
		FamilyName: i.FamilyName,
		Picture:    i.Picture,
	}
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller attached by the auth middleware, or nil for
// anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok || id == nil || id.ID == "" {
		return nil
	}
	return id
}
