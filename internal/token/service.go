package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"workclock/internal/location"
	dErrors "workclock/pkg/domain-errors"
	"workclock/pkg/platform/sentinel"
)

// tokenBytes gives 256 bits of entropy, encoded URL-safe.
const tokenBytes = 32

// Service issues and validates location-bound clock tokens.
type Service struct {
	store     Store
	directory location.Directory
	ttl       time.Duration
	qrBaseURL string
	now       func() time.Time
}

func NewService(store Store, directory location.Directory, ttl time.Duration, qrBaseURL string) *Service {
	return &Service{
		store:     store,
		directory: directory,
		ttl:       ttl,
		qrBaseURL: qrBaseURL,
		now:       time.Now,
	}
}

// Issue mints a new token for the location. Re-issuing does not revoke
// earlier tokens; several valid tokens may coexist for one location.
func (s *Service) Issue(ctx context.Context, locationID string) (ClockToken, error) {
	loc, err := s.directory.FindByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ClockToken{}, dErrors.New(dErrors.CodeNotFound, "location not found")
		}
		return ClockToken{}, dErrors.Wrap(dErrors.CodeUnavailable, "location lookup failed", err)
	}
	if !loc.RCPEnabled {
		return ClockToken{}, dErrors.New(dErrors.CodeLocationDisabled, "time clock is not enabled for this location")
	}

	value, err := generateTokenValue()
	if err != nil {
		return ClockToken{}, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	token := ClockToken{
		Token:      value,
		LocationID: locationID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, token); err != nil {
		return ClockToken{}, dErrors.Wrap(dErrors.CodeUnavailable, "token store unavailable", err)
	}
	return token, nil
}

// Validate resolves a presented token value. Read-only: tokens stay valid for
// further use until expiry.
func (s *Service) Validate(ctx context.Context, value string) (ClockToken, error) {
	if value == "" {
		return ClockToken{}, dErrors.New(dErrors.CodeTokenInvalid, "token is required")
	}

	token, err := s.store.Find(ctx, value)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ClockToken{}, dErrors.New(dErrors.CodeTokenInvalid, "unknown token")
		}
		return ClockToken{}, dErrors.Wrap(dErrors.CodeUnavailable, "token store unavailable", err)
	}
	if token.Expired(s.now()) {
		return ClockToken{}, dErrors.New(dErrors.CodeTokenExpired, "token has expired")
	}
	return token, nil
}

// QRURL renders the externally shareable representation of a token. The token
// value itself is the authorization; the URL carries nothing else.
func (s *Service) QRURL(token ClockToken) string {
	return fmt.Sprintf("%s?token=%s", s.qrBaseURL, url.QueryEscape(token.Token))
}

func generateTokenValue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
