package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/osintdesk/identity/rbac"
	"github.com/osintdesk/identity/totp"
)

// memStore is an in-memory UserStore that counts calls so tests can assert
// which store operations a flow performed.
type memStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string

	findByEmailCalls int
	insertCalls      int
}

func newMemStore() *memStore {
	return &memStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (m *memStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByEmailCalls++

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *m.byID[id]
	return &clone, nil
}

func (m *memStore) FindByID(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memStore) Insert(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++

	if _, ok := m.byEmail[user.Email]; ok {
		return ErrDuplicateEmail
	}
	clone := *user
	m.byID[user.ID] = &clone
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *memStore) Save(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[user.ID]; !ok {
		return ErrUserNotFound
	}
	clone := *user
	m.byID[user.ID] = &clone
	return nil
}

func (m *memStore) IncrementFailedAttempts(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Activity.FailedLoginAttempts++
	user.Activity.LastFailedLogin = at
	return nil
}

func (m *memStore) get(t *testing.T, email string) *User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	require.True(t, ok, "user %s not found", email)
	clone := *m.byID[id]
	return &clone
}

type memNotifier struct {
	mu            sync.Mutex
	verifyTokens map[string]string
	resetTokens  map[string]string
	verifyEmails int
	resetEmails  int
}

func newMemNotifier() *memNotifier {
	return &memNotifier{
		verifyTokens: make(map[string]string),
		resetTokens:  make(map[string]string),
	}
}

func (n *memNotifier) SendVerificationEmail(ctx context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifyTokens[email] = token
	n.verifyEmails++
	return nil
}

func (n *memNotifier) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetTokens[email] = token
	n.resetEmails++
	return nil
}

type fixture struct {
	svc      *Service
	store    *memStore
	notifier *memNotifier
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	// Cheap hashing keeps the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	if mutate != nil {
		mutate(&cfg)
	}

	store := newMemStore()
	notifier := newMemNotifier()

	svc, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithNotifier(notifier).
		Build()
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	return &fixture{svc: svc, store: store, notifier: notifier, redis: mr}
}

const testPassword = "Sup3r$trongPW"

func (f *fixture) registerActive(t *testing.T, email string) *User {
	t.Helper()
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{
		Email:    email,
		Password: testPassword,
		FullName: "Test User",
		Role:     rbac.RoleAnalyst,
	}, RequestContext{})
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyEmail(ctx, user.VerificationToken, RequestContext{}))
	return f.store.get(t, email)
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{
		Email:    "New.User@Example.COM",
		Password: testPassword,
		FullName: "New User",
	}, RequestContext{})
	require.NoError(t, err)

	require.Equal(t, "new.user@example.com", user.Email)
	require.Equal(t, StatusPendingVerification, user.Status)
	require.False(t, user.EmailVerified)
	require.Equal(t, "viewer", user.Role)
	require.NotEmpty(t, user.VerificationToken)
	require.NotEqual(t, testPassword, user.PasswordHash)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "weak@example.com",
		Password: "alllowercase",
	}, RequestContext{})

	var weak *WeakPasswordError
	require.ErrorAs(t, err, &weak)
	require.Contains(t, weak.Failed, "has_upper")
	require.Zero(t, f.store.insertCalls)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "DUP@example.com", Password: testPassword}, RequestContext{})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLoginBlockedBeforeVerification(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Email: "pending@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Email: "pending@example.com", Password: testPassword}, RequestContext{})
	require.ErrorIs(t, err, ErrAccountNotVerified)
}

func TestVerifyEmailActivatesAndIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{Email: "v@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyEmail(ctx, user.VerificationToken, RequestContext{}))

	stored := f.store.get(t, "v@example.com")
	require.Equal(t, StatusActive, stored.Status)
	require.True(t, stored.EmailVerified)
	require.Empty(t, stored.VerificationToken)

	// Second verification is a no-op, not an error.
	require.NoError(t, f.svc.VerifyEmail(ctx, user.VerificationToken, RequestContext{}))
}

func TestVerifyEmailRejectsGarbage(t *testing.T) {
	f := newFixture(t, nil)

	err := f.svc.VerifyEmail(context.Background(), "not-a-token", RequestContext{})
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestLoginHappyPath(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "login@example.com")

	result, err := f.svc.Login(ctx, LoginInput{Email: "login@example.com", Password: testPassword}, RequestContext{IP: "10.0.0.9"})
	require.NoError(t, err)

	require.False(t, result.MFAPending)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.NotEmpty(t, result.SessionID)
	require.ElementsMatch(t, rbac.RolePermissions(rbac.RoleAnalyst), result.Permissions)

	claims, err := f.svc.Authenticate(ctx, result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.UserID, claims.Subject)
	require.Equal(t, result.SessionID, claims.SessionID)

	sess, err := f.svc.Sessions().Get(ctx, result.SessionID)
	require.NoError(t, err)
	require.Equal(t, result.UserID, sess.UserID)
	require.Equal(t, "10.0.0.9", sess.IP)

	stored := f.store.get(t, "login@example.com")
	require.Equal(t, int64(1), stored.Activity.LoginCount)
	require.Zero(t, stored.Activity.FailedLoginAttempts)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "wrong@example.com")

	_, err := f.svc.Login(ctx, LoginInput{Email: "wrong@example.com", Password: "Wr0ng&Password"}, RequestContext{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	stored := f.store.get(t, "wrong@example.com")
	require.Equal(t, 1, stored.Activity.FailedLoginAttempts)
}

func TestLoginUnknownAccountSameError(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: testPassword}, RequestContext{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRateLimitShortCircuits(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "limited@example.com")

	before := f.store.findByEmailCalls
	for i := 0; i < 10; i++ {
		_, err := f.svc.Login(ctx, LoginInput{Email: "limited@example.com", Password: "Wr0ng&Password"}, RequestContext{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	lookupsAfterTen := f.store.findByEmailCalls

	_, err := f.svc.Login(ctx, LoginInput{Email: "limited@example.com", Password: testPassword}, RequestContext{})
	require.ErrorIs(t, err, ErrRateLimited)

	// The 11th attempt was denied before any store access.
	require.Equal(t, before+10, lookupsAfterTen)
	require.Equal(t, lookupsAfterTen, f.store.findByEmailCalls)
}

func TestLoginSuccessResetsLimiter(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "resetme@example.com")

	for i := 0; i < 9; i++ {
		_, err := f.svc.Login(ctx, LoginInput{Email: "resetme@example.com", Password: "Wr0ng&Password"}, RequestContext{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := f.svc.Login(ctx, LoginInput{Email: "resetme@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	// The successful login cleared the window; more attempts fit again.
	_, err = f.svc.Login(ctx, LoginInput{Email: "resetme@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)
}

func TestLoginStatusGates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, tc := range []struct {
		status Status
		want   error
	}{
		{StatusSuspended, ErrAccountSuspended},
		{StatusInactive, ErrAccountInactive},
	} {
		email := "status-" + string(tc.status) + "@example.com"
		user := f.registerActive(t, email)
		user.Status = tc.status
		require.NoError(t, f.store.Save(ctx, user))

		_, err := f.svc.Login(ctx, LoginInput{Email: email, Password: testPassword}, RequestContext{})
		require.ErrorIs(t, err, tc.want)
	}
}

func TestRememberMeStretchesAccessExpiry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "remember@example.com")

	result, err := f.svc.Login(ctx, LoginInput{Email: "remember@example.com", Password: testPassword, RememberMe: true}, RequestContext{})
	require.NoError(t, err)
	require.Equal(t, int64(7*3600), result.ExpiresIn)
}

func TestMFAFullFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.registerActive(t, "mfa@example.com")

	enrollment, err := f.svc.BeginMFAEnrollment(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.ProvisionURI, "otpauth://totp/")

	secret, err := totp.DecodeSecret(enrollment.Secret)
	require.NoError(t, err)

	mgr := totp.NewManager(totp.DefaultConfig())
	code, err := mgr.CodeAt(secret, time.Now())
	require.NoError(t, err)

	activation, err := f.svc.ActivateMFA(ctx, user.ID, code)
	require.NoError(t, err)
	require.Len(t, activation.BackupCodes, 10)

	// Stored record holds hashes only.
	stored := f.store.get(t, "mfa@example.com")
	require.True(t, stored.MFA.Enabled)
	require.NotContains(t, stored.MFA.BackupCodes, activation.BackupCodes[0])

	// Login now yields a challenge, not a session.
	login, err := f.svc.Login(ctx, LoginInput{Email: "mfa@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)
	require.True(t, login.MFAPending)
	require.NotEmpty(t, login.ChallengeToken)
	require.Empty(t, login.AccessToken)

	count, err := f.svc.Sessions().CountForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	// The activation step consumed the current TOTP step; use the next one.
	next, err := mgr.CodeAt(secret, time.Now().Add(30*time.Second))
	require.NoError(t, err)

	result, err := f.svc.VerifyMFA(ctx, login.ChallengeToken, next, RequestContext{})
	require.NoError(t, err)
	require.False(t, result.MFAPending)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.SessionID)
}

func TestMFACodeReplayRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.registerActive(t, "replay@example.com")

	enrollment, err := f.svc.BeginMFAEnrollment(ctx, user.ID)
	require.NoError(t, err)
	secret, err := totp.DecodeSecret(enrollment.Secret)
	require.NoError(t, err)

	mgr := totp.NewManager(totp.DefaultConfig())
	code, err := mgr.CodeAt(secret, time.Now())
	require.NoError(t, err)
	_, err = f.svc.ActivateMFA(ctx, user.ID, code)
	require.NoError(t, err)

	login, err := f.svc.Login(ctx, LoginInput{Email: "replay@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	next, err := mgr.CodeAt(secret, time.Now().Add(30*time.Second))
	require.NoError(t, err)

	_, err = f.svc.VerifyMFA(ctx, login.ChallengeToken, next, RequestContext{})
	require.NoError(t, err)

	// Same code again: replay.
	login2, err := f.svc.Login(ctx, LoginInput{Email: "replay@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)
	_, err = f.svc.VerifyMFA(ctx, login2.ChallengeToken, next, RequestContext{})
	require.ErrorIs(t, err, ErrMFACodeInvalid)
}

func TestMFABackupCodeSingleUse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.registerActive(t, "backup@example.com")

	enrollment, err := f.svc.BeginMFAEnrollment(ctx, user.ID)
	require.NoError(t, err)
	secret, err := totp.DecodeSecret(enrollment.Secret)
	require.NoError(t, err)

	mgr := totp.NewManager(totp.DefaultConfig())
	code, err := mgr.CodeAt(secret, time.Now())
	require.NoError(t, err)
	activation, err := f.svc.ActivateMFA(ctx, user.ID, code)
	require.NoError(t, err)

	backup := activation.BackupCodes[0]

	login, err := f.svc.Login(ctx, LoginInput{Email: "backup@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)
	_, err = f.svc.VerifyMFA(ctx, login.ChallengeToken, backup, RequestContext{})
	require.NoError(t, err)

	login2, err := f.svc.Login(ctx, LoginInput{Email: "backup@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)
	_, err = f.svc.VerifyMFA(ctx, login2.ChallengeToken, backup, RequestContext{})
	require.ErrorIs(t, err, ErrMFACodeInvalid)

	stored := f.store.get(t, "backup@example.com")
	require.Len(t, stored.MFA.BackupCodes, 9)
}

func TestVerifyMFARejectsNonChallengeToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "cross@example.com")

	result, err := f.svc.Login(ctx, LoginInput{Email: "cross@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	_, err = f.svc.VerifyMFA(ctx, result.AccessToken, "123456", RequestContext{})
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshMintsNewAccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "refresh@example.com")

	login, err := f.svc.Login(ctx, LoginInput{Email: "refresh@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	result, err := f.svc.Refresh(ctx, login.RefreshToken, RequestContext{})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Empty(t, result.RefreshToken)
	require.Equal(t, login.SessionID, result.SessionID)

	claims, err := f.svc.Authenticate(ctx, result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, login.UserID, claims.Subject)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "swap@example.com")

	login, err := f.svc.Login(ctx, LoginInput{Email: "swap@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, login.AccessToken, RequestContext{})
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "promote@example.com")

	login, err := f.svc.Login(ctx, LoginInput{Email: "promote@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	user := f.store.get(t, "promote@example.com")
	user.Role = rbac.RoleManager
	require.NoError(t, f.store.Save(ctx, user))

	result, err := f.svc.Refresh(ctx, login.RefreshToken, RequestContext{})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleManager, result.Role)
	require.ElementsMatch(t, rbac.RolePermissions(rbac.RoleManager), result.Permissions)
}

func TestRefreshBlockedForSuspendedAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "suspend@example.com")

	login, err := f.svc.Login(ctx, LoginInput{Email: "suspend@example.com", Password: testPassword}, RequestContext{})
	require.NoError(t, err)

	user := f.store.get(t, "suspend@example.com")
	user.Status = StatusSuspended
	require.NoError(t, f.store.Save(ctx, user))

	_, err = f.svc.Refresh(ctx, login.RefreshToken, RequestContext{})
	require.ErrorIs(t, err, ErrAccountSuspended)
}

func TestLogoutRevokesAllSessions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "logout@example.com")

	var sessionIDs []string
	var userID string
	for i := 0; i < 3; i++ {
		login, err := f.svc.Login(ctx, LoginInput{Email: "logout@example.com", Password: testPassword}, RequestContext{})
		require.NoError(t, err)
		sessionIDs = append(sessionIDs, login.SessionID)
		userID = login.UserID
	}

	revoked, err := f.svc.Logout(ctx, userID, RequestContext{})
	require.NoError(t, err)
	require.Equal(t, 3, revoked)

	for _, id := range sessionIDs {
		_, err := f.svc.Sessions().Get(ctx, id)
		require.Error(t, err)
	}
}

func TestPasswordResetFullFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "reset@example.com")

	// Two live sessions from different contexts.
	login1, err := f.svc.Login(ctx, LoginInput{Email: "reset@example.com", Password: testPassword}, RequestContext{IP: "10.0.0.1"})
	require.NoError(t, err)
	login2, err := f.svc.Login(ctx, LoginInput{Email: "reset@example.com", Password: testPassword}, RequestContext{IP: "10.0.0.2"})
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "reset@example.com", RequestContext{}))

	stored := f.store.get(t, "reset@example.com")
	require.NotEmpty(t, stored.ResetToken)

	const newPassword = "N3w&Secret-PW"
	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, stored.ResetToken, newPassword, RequestContext{}))

	// Both sessions destroyed.
	for _, id := range []string{login1.SessionID, login2.SessionID} {
		_, err := f.svc.Sessions().Get(ctx, id)
		require.Error(t, err)
	}

	// Old password dead, new password works.
	_, err = f.svc.Login(ctx, LoginInput{Email: "reset@example.com", Password: testPassword}, RequestContext{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginInput{Email: "reset@example.com", Password: newPassword}, RequestContext{})
	require.NoError(t, err)

	// The token is single-use.
	err = f.svc.ConfirmPasswordReset(ctx, stored.ResetToken, "An0ther&Fresh1", RequestContext{})
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordResetUnknownEmailSilent(t *testing.T) {
	f := newFixture(t, nil)

	err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com", RequestContext{})
	require.NoError(t, err)
	require.Zero(t, f.notifier.resetEmails)
}

func TestExpiredResetTokenLeavesHashUntouched(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "expired@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "expired@example.com", RequestContext{}))

	user := f.store.get(t, "expired@example.com")
	originalHash := user.PasswordHash
	user.ResetExpires = time.Now().Add(-time.Minute)
	require.NoError(t, f.store.Save(ctx, user))

	err := f.svc.ConfirmPasswordReset(ctx, user.ResetToken, "N3w&Secret-PW", RequestContext{})
	require.ErrorIs(t, err, ErrTokenExpired)

	require.Equal(t, originalHash, f.store.get(t, "expired@example.com").PasswordHash)
}

func TestConfirmResetRejectsWeakPassword(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerActive(t, "weakreset@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "weakreset@example.com", RequestContext{}))
	user := f.store.get(t, "weakreset@example.com")

	err := f.svc.ConfirmPasswordReset(ctx, user.ResetToken, "weak", RequestContext{})
	var weakErr *WeakPasswordError
	require.ErrorAs(t, err, &weakErr)
}

func TestDisableMFARequiresProof(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.registerActive(t, "disable@example.com")

	enrollment, err := f.svc.BeginMFAEnrollment(ctx, user.ID)
	require.NoError(t, err)
	secret, err := totp.DecodeSecret(enrollment.Secret)
	require.NoError(t, err)

	mgr := totp.NewManager(totp.DefaultConfig())
	code, err := mgr.CodeAt(secret, time.Now())
	require.NoError(t, err)
	_, err = f.svc.ActivateMFA(ctx, user.ID, code)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.DisableMFA(ctx, user.ID, "000000"), ErrMFACodeInvalid)

	next, err := mgr.CodeAt(secret, time.Now().Add(30*time.Second))
	require.NoError(t, err)
	require.NoError(t, f.svc.DisableMFA(ctx, user.ID, next))

	stored := f.store.get(t, "disable@example.com")
	require.False(t, stored.MFA.Enabled)
	require.Empty(t, stored.MFA.Secret)
}
