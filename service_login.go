package identity

import (
	"context"
	"errors"
	"time"

	"github.com/osintdesk/identity/audit"
	"github.com/osintdesk/identity/rate"
	"github.com/osintdesk/identity/rbac"
	"github.com/osintdesk/identity/session"
	"github.com/osintdesk/identity/totp"
)

// Login authenticates an email and password. Accounts with MFA enabled
// get a short-lived challenge token back instead of a session; everyone
// else gets an access and refresh token pair plus a server-side session.
//
// The rate limit is checked before the account lookup, so a limited
// identity costs no store read and no hash computation.
func (s *Service) Login(ctx context.Context, in LoginInput, rc RequestContext) (result *LoginResult, err error) {
	email := normalizeEmail(in.Email)

	defer func() {
		s.metrics.observe(audit.ActionLogin, err)
	}()

	if err = s.checkRate(ctx, email, rate.ActionLogin); err != nil {
		s.emit(ctx, audit.Event{
			Action: audit.ActionLogin,
			Email:  email,
			IP:     rc.IP,
			Error:  "rate limited",
		})
		return nil, err
	}

	user, findErr := s.users.FindByEmail(ctx, email)
	if findErr != nil {
		if errors.Is(findErr, ErrUserNotFound) {
			s.emit(ctx, audit.Event{
				Action: audit.ActionLogin,
				Email:  email,
				IP:     rc.IP,
				Error:  "unknown account",
			})
			err = ErrInvalidCredentials
			return nil, err
		}
		err = storeErr(findErr)
		return nil, err
	}

	ok, verifyErr := s.hasher.Verify(in.Password, user.PasswordHash)
	if verifyErr != nil || !ok {
		if incErr := s.users.IncrementFailedAttempts(ctx, user.ID, time.Now().UTC()); incErr != nil {
			s.logWarn("failed-attempt counter update failed", "user_id", user.ID, "error", incErr)
		}
		s.emit(ctx, audit.Event{
			Action: audit.ActionLogin,
			UserID: user.ID,
			Email:  email,
			IP:     rc.IP,
			Error:  "password mismatch",
		})
		err = ErrInvalidCredentials
		return nil, err
	}

	if err = statusGate(user.Status); err != nil {
		s.emit(ctx, audit.Event{
			Action: audit.ActionLogin,
			UserID: user.ID,
			Email:  email,
			IP:     rc.IP,
			Error:  "status " + string(user.Status),
		})
		return nil, err
	}

	s.maybeUpgradeHash(ctx, user, in.Password)

	if user.MFA.Enabled {
		challenge, challengeErr := s.tokens.IssueMFAPending(user.ID, user.Email)
		if challengeErr != nil {
			err = challengeErr
			return nil, err
		}

		s.emit(ctx, audit.Event{
			Action:  audit.ActionMFAChallenge,
			UserID:  user.ID,
			Email:   email,
			IP:      rc.IP,
			Success: true,
		})

		return &LoginResult{
			MFAPending:     true,
			ChallengeToken: challenge,
			UserID:         user.ID,
			Email:          user.Email,
		}, nil
	}

	result, err = s.completeLogin(ctx, user, in.RememberMe, rc)
	return result, err
}

// VerifyMFA consumes an MFA challenge token plus a TOTP or backup code and
// finishes the login that produced the challenge.
func (s *Service) VerifyMFA(ctx context.Context, challengeToken, code string, rc RequestContext) (result *LoginResult, err error) {
	defer func() {
		s.metrics.observe(audit.ActionMFAVerify, err)
	}()

	claims, parseErr := s.tokens.ParseMFAPending(challengeToken)
	if parseErr != nil {
		err = mapTokenErr(parseErr)
		return nil, err
	}

	if err = s.checkRate(ctx, claims.Email, rate.ActionMFAVerify); err != nil {
		return nil, err
	}

	user, findErr := s.users.FindByID(ctx, claims.Subject)
	if findErr != nil {
		if errors.Is(findErr, ErrUserNotFound) {
			err = ErrTokenInvalid
			return nil, err
		}
		err = storeErr(findErr)
		return nil, err
	}

	if !user.MFA.Enabled {
		err = ErrMFANotEnrolled
		return nil, err
	}

	if err = statusGate(user.Status); err != nil {
		return nil, err
	}

	matched, matchErr := s.matchSecondFactor(user, code)
	if matchErr != nil {
		err = matchErr
		return nil, err
	}
	if !matched {
		s.emit(ctx, audit.Event{
			Action: audit.ActionMFAVerify,
			UserID: user.ID,
			Email:  user.Email,
			IP:     rc.IP,
			Error:  "code rejected",
		})
		err = ErrMFACodeInvalid
		return nil, err
	}

	user.MFA.LastUsedAt = time.Now().UTC()

	s.emit(ctx, audit.Event{
		Action:  audit.ActionMFAVerify,
		UserID:  user.ID,
		Email:   user.Email,
		IP:      rc.IP,
		Success: true,
	})

	result, err = s.completeLogin(ctx, user, false, rc)
	return result, err
}

// matchSecondFactor tries the TOTP secret first, then the backup codes.
// A TOTP match at or before the last accepted step is a replay and does
// not count. Matching mutates user (replay step or consumed backup code)
// but does not save it; completeLogin persists.
func (s *Service) matchSecondFactor(user *User, code string) (bool, error) {
	if user.MFA.Secret != "" {
		secret, err := totp.DecodeSecret(user.MFA.Secret)
		if err != nil {
			return false, err
		}
		ok, step, err := s.totp.VerifyCode(secret, code, time.Now())
		if err != nil {
			return false, err
		}
		if ok {
			if step <= user.MFA.LastUsedStep {
				return false, nil
			}
			user.MFA.LastUsedStep = step
			return true, nil
		}
	}

	if remaining, ok := totp.ConsumeBackupCode(user.MFA.BackupCodes, code); ok {
		user.MFA.BackupCodes = remaining
		return true, nil
	}

	return false, nil
}

func (s *Service) completeLogin(ctx context.Context, user *User, remember bool, rc RequestContext) (*LoginResult, error) {
	permissions := rbac.EffectivePermissions(user.Role, user.CustomPermissions)

	sess, err := s.sessions.Create(ctx, user.ID, session.Context{
		Email:     user.Email,
		Role:      user.Role,
		IP:        rc.IP,
		UserAgent: rc.UserAgent,
	})
	if err != nil {
		return nil, sessionErr(err)
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email, user.Role, permissions, sess.ID, remember)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user.Activity.LastLogin = now
	user.Activity.LastActive = now
	user.Activity.LoginCount++
	user.Activity.FailedLoginAttempts = 0
	user.UpdatedAt = now

	if err := s.users.Save(ctx, user); err != nil {
		return nil, storeErr(err)
	}

	if err := s.limiter.Reset(ctx, user.Email, rate.ActionLogin); err != nil {
		s.logWarn("login limiter reset failed", "user_id", user.ID, "error", err)
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionLogin,
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: sess.ID,
		IP:        rc.IP,
		Success:   true,
	})
	s.logInfo("login succeeded", "user_id", user.ID, "session_id", sess.ID)

	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		SessionID:    sess.ID,
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		Permissions:  permissions,
	}, nil
}

// maybeUpgradeHash re-hashes the password when the stored hash uses weaker
// parameters than the current configuration. Best effort; login proceeds
// either way.
func (s *Service) maybeUpgradeHash(ctx context.Context, user *User, plaintext string) {
	if !s.config.Policy.UpgradeHashOnLogin {
		return
	}

	needs, err := s.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		s.logWarn("hash upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}

func statusGate(status Status) error {
	switch status {
	case StatusActive:
		return nil
	case StatusSuspended:
		return ErrAccountSuspended
	case StatusPendingVerification:
		return ErrAccountNotVerified
	default:
		return ErrAccountInactive
	}
}
