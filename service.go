// Package identity implements the authentication and authorization core:
// registration with email verification, Argon2id password handling, TOTP
// second factor with backup codes, intent-typed JWTs, Redis-backed sessions
// and rate limits, and role-based permissions.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/osintdesk/identity/audit"
	"github.com/osintdesk/identity/password"
	"github.com/osintdesk/identity/rate"
	"github.com/osintdesk/identity/session"
	"github.com/osintdesk/identity/token"
	"github.com/osintdesk/identity/totp"
)

// Service orchestrates the authentication flows. Construct it with a
// Builder; all methods are safe for concurrent use.
type Service struct {
	config   Config
	users    UserStore
	notifier Notifier
	hasher   *password.Hasher
	tokens   *token.Manager
	totp     *totp.Manager
	sessions *session.Store
	limiter  *rate.Limiter
	audit    *audit.Dispatcher
	logger   *slog.Logger
	metrics  *Metrics
}

// Close flushes the audit dispatcher. Call it on shutdown.
func (s *Service) Close() {
	s.audit.Close()
}

// Authenticate validates an access token and returns its claims. Hosts
// call this from their request middleware.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*token.SessionClaims, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, mapTokenErr(err)
	}
	return claims, nil
}

// Sessions exposes the session store for host-side inspection.
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.Timestamp = time.Now().UTC()
	s.audit.Emit(ctx, event)
}

func (s *Service) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

// checkRate consults the limiter and maps its failure modes.
func (s *Service) checkRate(ctx context.Context, identity, action string) error {
	err := s.limiter.Allow(ctx, identity, action)
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		s.metrics.rateLimited()
		return ErrRateLimited
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// storeErr passes through domain sentinels and wraps everything else as
// an infrastructure failure.
func storeErr(err error) error {
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func mapTokenErr(err error) error {
	if errors.Is(err, token.ErrExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

func sessionErr(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return ErrSessionNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
