package session

import (
	"context"
	"fmt"

	"github.com/amoylab/atelier/internal/auth/jwt"
)

// JWTVerifier validates HS256 tokens locally.
type JWTVerifier struct {
	svc *jwt.Service
}

func NewJWTVerifier(svc *jwt.Service) *JWTVerifier {
	return &JWTVerifier{svc: svc}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	claims, err := v.svc.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
