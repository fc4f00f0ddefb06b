package identity

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/osintdesk/identity/audit"
	"github.com/osintdesk/identity/rbac"
)

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated and stays valid until expiry.
// Permissions are re-resolved from the current account state, so a role
// change takes effect at the next refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string, rc RequestContext) (result *LoginResult, err error) {
	defer func() {
		s.metrics.observe(audit.ActionRefresh, err)
	}()

	claims, parseErr := s.tokens.ParseRefresh(refreshToken)
	if parseErr != nil {
		err = mapTokenErr(parseErr)
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

	if err = statusGate(user.Status); err != nil {
		s.emit(ctx, audit.Event{
			Action: audit.ActionRefresh,
			UserID: user.ID,
			IP:     rc.IP,
			Error:  "status " + string(user.Status),
		})
		return nil, err
	}

	permissions := rbac.EffectivePermissions(user.Role, user.CustomPermissions)

	access, expiresIn, issueErr := s.tokens.IssueAccess(user.ID, user.Email, user.Role, permissions, claims.SessionID)
	if issueErr != nil {
		err = issueErr
		return nil, err
	}

	user.Activity.LastActive = time.Now().UTC()
	if saveErr := s.users.Save(ctx, user); saveErr != nil {
		s.logWarn("activity update failed", "user_id", user.ID, "error", saveErr)
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionRefresh,
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: claims.SessionID,
		IP:        rc.IP,
		Success:   true,
	})

	return &LoginResult{
		AccessToken: access,
		ExpiresIn:   expiresIn,
		SessionID:   claims.SessionID,
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: permissions,
	}, nil
}

// Logout revokes every session of the user and returns how many were
// destroyed. Outstanding access and refresh tokens stay valid until their
// natural expiry; only server-side session state is removed.
func (s *Service) Logout(ctx context.Context, userID string, rc RequestContext) (revoked int, err error) {
	defer func() {
		s.metrics.observe(audit.ActionLogout, err)
	}()

	revoked, delErr := s.sessions.DeleteAllForUser(ctx, userID)
	if delErr != nil {
		err = sessionErr(delErr)
		return 0, err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionLogout,
		UserID:  userID,
		IP:      rc.IP,
		Success: true,
		Metadata: map[string]string{
			"revoked_sessions": strconv.Itoa(revoked),
		},
	})
	s.logInfo("logout", "user_id", userID, "revoked_sessions", revoked)

	return revoked, nil
}
