package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reward-hub/reward_hub/internal/identity"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenInvalidated = errors.New("token invalidated")
)

// Claims carried by access tokens. Version must match the user's current
// token version for the token to be accepted.
type Claims struct {
	Version int `json:"ver"`
	jwt.RegisteredClaims
}

// Token is an issued access token.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Service struct {
	secret []byte
	ttl    time.Duration
	idRepo identity.Repository
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration, idRepo identity.Repository) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, idRepo: idRepo, now: time.Now}
}

// Issue signs an HS256 access token for user.
func (s *Service) Issue(user identity.User) (Token, error) {
	now := s.now()
	claims := Claims{
		Version: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, ExpiresIn: int64(s.ttl.Seconds())}, nil
}

// Verify checks the signature, expiry and token version and returns the user id.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", ErrInvalidToken
	}

	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return "", ErrTokenInvalidated
		}
		return "", err
	}
	if user.TokenVersion != claims.Version {
		return "", ErrTokenInvalidated
	}
	return user.ID, nil
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}
