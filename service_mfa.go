package identity

import (
	"context"
	"time"

	"github.com/osintdesk/identity/audit"
	"github.com/osintdesk/identity/totp"
)

// BeginMFAEnrollment generates a fresh TOTP secret for the account and
// returns it with its provisioning URI. MFA stays disabled until
// ActivateMFA proves the user's authenticator produces valid codes.
func (s *Service) BeginMFAEnrollment(ctx context.Context, userID string) (enrollment *MFAEnrollment, err error) {
	defer func() {
		s.metrics.observe(audit.ActionMFAEnroll, err)
	}()

	user, findErr := s.users.FindByID(ctx, userID)
	if findErr != nil {
		err = storeErr(findErr)
		return nil, err
	}
	if user.MFA.Enabled {
		err = ErrMFAAlreadyEnabled
		return nil, err
	}

	_, encoded, genErr := s.totp.GenerateSecret()
	if genErr != nil {
		err = genErr
		return nil, err
	}

	user.MFA.PendingSecret = encoded
	user.MFA.PendingIssuedAt = time.Now().UTC()
	user.UpdatedAt = time.Now().UTC()

	if err = s.users.Save(ctx, user); err != nil {
		err = storeErr(err)
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionMFAEnroll,
		UserID:  user.ID,
		Email:   user.Email,
		Success: true,
	})

	return &MFAEnrollment{
		Secret:       encoded,
		ProvisionURI: s.totp.ProvisionURI(encoded, user.Email),
	}, nil
}

// ActivateMFA turns the pending enrollment on after the user proves they
// hold the secret by submitting a current code. Backup codes are generated
// here and returned in plaintext exactly once.
func (s *Service) ActivateMFA(ctx context.Context, userID, code string) (activation *MFAActivation, err error) {
	defer func() {
		s.metrics.observe(audit.ActionMFAActivate, err)
	}()

	user, findErr := s.users.FindByID(ctx, userID)
	if findErr != nil {
		err = storeErr(findErr)
		return nil, err
	}
	if user.MFA.Enabled {
		err = ErrMFAAlreadyEnabled
		return nil, err
	}
	if user.MFA.PendingSecret == "" {
		err = ErrMFANotEnrolled
		return nil, err
	}

	secret, decErr := totp.DecodeSecret(user.MFA.PendingSecret)
	if decErr != nil {
		err = decErr
		return nil, err
	}

	ok, step, verifyErr := s.totp.VerifyCode(secret, code, time.Now())
	if verifyErr != nil {
		err = verifyErr
		return nil, err
	}
	if !ok {
		s.emit(ctx, audit.Event{
			Action: audit.ActionMFAActivate,
			UserID: user.ID,
			Email:  user.Email,
			Error:  "code rejected",
		})
		err = ErrMFACodeInvalid
		return nil, err
	}

	codes, genErr := totp.GenerateBackupCodes(s.config.Policy.BackupCodeCount, s.config.Policy.BackupCodeLength)
	if genErr != nil {
		err = genErr
		return nil, err
	}

	now := time.Now().UTC()
	user.MFA = MFASettings{
		Enabled:      true,
		Method:       "totp",
		Secret:       user.MFA.PendingSecret,
		BackupCodes:  codes.Hashes,
		LastUsedAt:   now,
		LastUsedStep: step,
	}
	user.UpdatedAt = now

	if err = s.users.Save(ctx, user); err != nil {
		err = storeErr(err)
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionMFAActivate,
		UserID:  user.ID,
		Email:   user.Email,
		Success: true,
	})
	s.logInfo("mfa activated", "user_id", user.ID)

	return &MFAActivation{BackupCodes: codes.Plain}, nil
}

// DisableMFA turns the second factor off. It requires a valid TOTP or
// backup code so a hijacked session cannot silently weaken the account.
func (s *Service) DisableMFA(ctx context.Context, userID, code string) (err error) {
	defer func() {
		s.metrics.observe(audit.ActionMFADisable, err)
	}()

	user, findErr := s.users.FindByID(ctx, userID)
	if findErr != nil {
		err = storeErr(findErr)
		return err
	}
	if !user.MFA.Enabled {
		err = ErrMFANotEnrolled
		return err
	}

	matched, matchErr := s.matchSecondFactor(user, code)
	if matchErr != nil {
		err = matchErr
		return err
	}
	if !matched {
		s.emit(ctx, audit.Event{
			Action: audit.ActionMFADisable,
			UserID: user.ID,
			Email:  user.Email,
			Error:  "code rejected",
		})
		err = ErrMFACodeInvalid
		return err
	}

	user.MFA = MFASettings{}
	user.UpdatedAt = time.Now().UTC()

	if err = s.users.Save(ctx, user); err != nil {
		err = storeErr(err)
		return err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionMFADisable,
		UserID:  user.ID,
		Email:   user.Email,
		Success: true,
	})
	s.logInfo("mfa disabled", "user_id", user.ID)

	return nil
}
