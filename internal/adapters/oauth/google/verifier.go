// Package google verifies Google Sign-In ID tokens.
package google

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"google.golang.org/api/idtoken"
)

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

type GoogleVerifier struct {
	validate validateFunc
}

func NewVerifier() ports.TokenVerifier {
	return &GoogleVerifier{validate: idtoken.Validate}
}

// Verify checks the token signature and audience and returns the account's
// email. The display name is optional.
func (v *GoogleVerifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	if clientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	payload, err := v.validate(ctx, token, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate id token")
	}

	email, ok := payload.Claims["email"].(string)
	if !ok || email == "" {
		return nil, errors.New("email not found in claims")
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, errors.New("email is not verified")
	}
	name, _ := payload.Claims["name"].(string)

	return &ports.TokenPayload{Email: email, Name: name}, nil
}
