package identity

import (
	"context"
	"errors"
	"time"

	"github.com/osintdesk/identity/audit"
	"github.com/osintdesk/identity/password"
	"github.com/osintdesk/identity/rate"
)

// RequestPasswordReset issues a reset token and mails it to the account.
// The return value is identical whether or not the email exists, so the
// endpoint cannot be used to enumerate accounts; the audit trail records
// what actually happened.
func (s *Service) RequestPasswordReset(ctx context.Context, email string, rc RequestContext) (err error) {
	email = normalizeEmail(email)

	defer func() {
		s.metrics.observe(audit.ActionPasswordResetRequest, err)
	}()

	if err = s.checkRate(ctx, email, rate.ActionPasswordReset); err != nil {
		return err
	}

	user, findErr := s.users.FindByEmail(ctx, email)
	if findErr != nil {
		if errors.Is(findErr, ErrUserNotFound) {
			s.emit(ctx, audit.Event{
				Action: audit.ActionPasswordResetRequest,
				Email:  email,
				IP:     rc.IP,
				Error:  "unknown account",
			})
			return nil
		}
		err = storeErr(findErr)
		return err
	}

	resetToken, issueErr := s.tokens.IssuePasswordReset(user.Email)
	if issueErr != nil {
		err = issueErr
		return err
	}

	user.ResetToken = resetToken
	user.ResetExpires = time.Now().UTC().Add(s.config.Token.PasswordResetTTL)
	user.UpdatedAt = time.Now().UTC()

	if err = s.users.Save(ctx, user); err != nil {
		err = storeErr(err)
		return err
	}

	s.notifyReset(user.Email, resetToken)

	s.emit(ctx, audit.Event{
		Action:  audit.ActionPasswordResetRequest,
		UserID:  user.ID,
		Email:   user.Email,
		IP:      rc.IP,
		Success: true,
	})

	return nil
}

// ConfirmPasswordReset consumes a reset token and installs the new
// password. The token must match the one stored on the account, which
// makes it single-use: a successful reset clears it. Every session of the
// user is destroyed; a failure to do so is surfaced, never swallowed.
func (s *Service) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string, rc RequestContext) (err error) {
	defer func() {
		s.metrics.observe(audit.ActionPasswordResetConfirm, err)
	}()

	email, parseErr := s.tokens.ParsePasswordReset(tokenStr)
	if parseErr != nil {
		err = mapTokenErr(parseErr)
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

	if user.ResetToken == "" || user.ResetToken != tokenStr {
		s.emit(ctx, audit.Event{
			Action: audit.ActionPasswordResetConfirm,
			UserID: user.ID,
			Email:  user.Email,
			IP:     rc.IP,
			Error:  "token not current",
		})
		err = ErrTokenInvalid
		return err
	}
	if time.Now().UTC().After(user.ResetExpires) {
		err = ErrTokenExpired
		return err
	}

	strength := password.ValidateStrength(newPassword, s.config.Policy.MinPasswordLength)
	if !strength.Valid {
		err = &WeakPasswordError{Score: strength.Score, Failed: strength.Failed}
		return err
	}

	hash, hashErr := s.hasher.Hash(newPassword)
	if hashErr != nil {
		err = hashErr
		return err
	}

	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetExpires = time.Time{}
	user.Activity.FailedLoginAttempts = 0
	user.UpdatedAt = time.Now().UTC()

	if err = s.users.Save(ctx, user); err != nil {
		err = storeErr(err)
		return err
	}

	revoked, delErr := s.sessions.DeleteAllForUser(ctx, user.ID)
	if delErr != nil {
		err = sessionErr(delErr)
		return err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionPasswordResetConfirm,
		UserID:  user.ID,
		Email:   user.Email,
		IP:      rc.IP,
		Success: true,
	})
	s.logInfo("password reset", "user_id", user.ID, "revoked_sessions", revoked)

	return nil
}
