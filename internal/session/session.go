// Package session reads and writes the shopper's bearer token and cached user.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/port"
)

var ErrNotAuthenticated = errors.New("you are not authenticated")

// tokenKeys are checked in order; the first non-empty one wins.
var tokenKeys = []string{port.KeyToken, port.KeyUserToken, port.KeyDistributorToken}

type Session struct {
	storage port.Storage
	now     func() time.Time
}

func New(storage port.Storage) *Session {
	return &Session{storage: storage, now: time.Now}
}

// claims are read without verification: the signing key lives on the backend.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthToken returns the stored bearer token, or ErrNotAuthenticated when
// there is none or it is a JWT whose exp claim has passed. Opaque tokens
// are returned as is.
func (s *Session) AuthToken(ctx context.Context) (string, error) {
	token, err := s.storedToken(ctx)
	if err != nil {
		return "", err
	}
	if s.expired(token) {
		return "", fmt.Errorf("token expired: %w", ErrNotAuthenticated)
	}
	return token, nil
}

// IsAuthenticated reports whether AuthToken would return a token.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	_, err := s.AuthToken(ctx)
	return err == nil
}

func (s *Session) storedToken(ctx context.Context) (string, error) {
	for _, key := range tokenKeys {
		token, ok, err := s.storage.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("storage.Get[%s]: %w", key, err)
		}
		if ok && token != "" {
			return token, nil
		}
	}
	return "", ErrNotAuthenticated
}

func (s *Session) expired(token string) bool {
	c, ok := parseClaims(token)
	if !ok || c.ExpiresAt == nil {
		return false
	}
	return !s.now().Before(c.ExpiresAt.Time)
}

func (s *Session) User(ctx context.Context) (domain.User, bool, error) {
	raw, ok, err := s.storage.Get(ctx, port.KeyUser)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("storage.Get[%s]: %w", port.KeyUser, err)
	}
	if !ok || raw == "" {
		return domain.User{}, false, nil
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return domain.User{}, false, fmt.Errorf("cached user is not valid JSON: %w", err)
	}
	return user, true, nil
}

func (s *Session) IsDistributor(ctx context.Context) bool {
	if user, ok, err := s.User(ctx); err == nil && ok && user.IsDistributor() {
		return true
	}

	if token, ok, err := s.storage.Get(ctx, port.KeyDistributorToken); err == nil && ok && token != "" {
		return true
	}

	token, err := s.AuthToken(ctx)
	if err != nil {
		return false
	}
	c, ok := parseClaims(token)
	return ok && domain.Role(c.Role) == domain.RoleDistributor
}

// SignIn stores token under the key the role uses and caches the user.
func (s *Session) SignIn(ctx context.Context, token string, user domain.User) error {
	if token == "" {
		return fmt.Errorf("token is empty")
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	// drop tokens of a previous role before writing the new one
	if err := s.storage.Remove(ctx, tokenKeys...); err != nil {
		return fmt.Errorf("storage.Remove: %w", err)
	}

	if err := s.storage.Set(ctx, tokenKeyFor(user.Role), token); err != nil {
		return fmt.Errorf("storage.Set: %w", err)
	}
	if err := s.storage.Set(ctx, port.KeyUser, string(data)); err != nil {
		return fmt.Errorf("storage.Set: %w", err)
	}

	return nil
}

func (s *Session) SignOut(ctx context.Context) error {
	if err := s.storage.Remove(ctx, append(slices.Clone(tokenKeys), port.KeyUser)...); err != nil {
		return fmt.Errorf("storage.Remove: %w", err)
	}
	return nil
}

func tokenKeyFor(role domain.Role) string {
	if role == domain.RoleDistributor {
		return port.KeyDistributorToken
	}
	return port.KeyToken
}

func parseClaims(token string) (claims, bool) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return claims{}, false
	}
	return c, true
}
