package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/osintdesk/identity/audit"
	"github.com/osintdesk/identity/password"
	"github.com/osintdesk/identity/rate"
	"github.com/osintdesk/identity/rbac"
)

// Register creates a new account in pending_verification state and sends
// the verification email. The password hash is computed before the insert,
// so the insert is the single commit point and no duplicate-check race can
// leave a half-written account behind.
func (s *Service) Register(ctx context.Context, in RegisterInput, rc RequestContext) (user *User, err error) {
	email := normalizeEmail(in.Email)

	defer func() {
		s.metrics.observe(audit.ActionRegister, err)
	}()

	if err = s.checkRate(ctx, email, rate.ActionRegister); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = s.config.Policy.DefaultRole
	}
	if !rbac.ValidRole(role) {
		return nil, errors.New("unknown role: " + role)
	}

	strength := password.ValidateStrength(in.Password, s.config.Policy.MinPasswordLength)
	if !strength.Valid {
		err = &WeakPasswordError{Score: strength.Score, Failed: strength.Failed}
		return nil, err
	}

	if _, findErr := s.users.FindByEmail(ctx, email); findErr == nil {
		s.emit(ctx, audit.Event{
			Action: audit.ActionRegister,
			Email:  email,
			IP:     rc.IP,
			Error:  "duplicate email",
		})
		return nil, ErrDuplicateEmail
	} else if !errors.Is(findErr, ErrUserNotFound) {
		return nil, storeErr(findErr)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	verifyToken, err := s.tokens.IssueEmailVerification(email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user = &User{
		ID:                uuid.NewString(),
		Email:             email,
		FullName:          in.FullName,
		Department:        in.Department,
		JobTitle:          in.JobTitle,
		PasswordHash:      hash,
		Role:              role,
		Status:            StatusPendingVerification,
		VerificationToken: verifyToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err = s.users.Insert(ctx, user); err != nil {
		err = storeErr(err)
		return nil, err
	}

	s.notifyVerification(user.Email, verifyToken)

	s.emit(ctx, audit.Event{
		Action:  audit.ActionRegister,
		UserID:  user.ID,
		Email:   user.Email,
		IP:      rc.IP,
		Success: true,
	})
	s.logInfo("account registered", "user_id", user.ID, "role", role)

	return user, nil
}

// VerifyEmail consumes an email verification token and activates the
// account. Verifying an already-active account is a no-op.
func (s *Service) VerifyEmail(ctx context.Context, tokenStr string, rc RequestContext) (err error) {
	defer func() {
		s.metrics.observe(audit.ActionVerifyEmail, err)
	}()

	email, err := s.tokens.ParseEmailVerification(tokenStr)
	if err != nil {
		err = mapTokenErr(err)
		return err
	}

	if err = s.checkRate(ctx, email, rate.ActionVerifyEmail); err != nil {
		return err
	}

	user, findErr := s.users.FindByEmail(ctx, email)
	if findErr != nil {
		if errors.Is(findErr, ErrUserNotFound) {
			err = ErrTokenInvalid
			return err
		}
		err = storeErr(findErr)
		return err
	}

	if user.EmailVerified {
		return nil
	}

	user.EmailVerified = true
	user.VerificationToken = ""
	if user.Status == StatusPendingVerification {
		user.Status = StatusActive
	}
	user.UpdatedAt = time.Now().UTC()

	if err = s.users.Save(ctx, user); err != nil {
		err = storeErr(err)
		return err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionVerifyEmail,
		UserID:  user.ID,
		Email:   user.Email,
		IP:      rc.IP,
		Success: true,
	})

	return nil
}

func (s *Service) notifyVerification(email, token string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.SendVerificationEmail(ctx, email, token); err != nil {
			s.logWarn("verification email delivery failed", "error", err)
		}
	}()
}

func (s *Service) notifyReset(email, token string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.SendPasswordResetEmail(ctx, email, token); err != nil {
			s.logWarn("reset email delivery failed", "error", err)
		}
	}()
}
