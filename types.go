package identity

import (
	"context"
	"time"
)

// Status is the account lifecycle state.
type Status string

const (
	StatusActive              Status = "active"
	StatusInactive            Status = "inactive"
	StatusSuspended           Status = "suspended"
	StatusPendingVerification Status = "pending_verification"
)

// MFASettings holds an account's second-factor state. The TOTP secret is
// stored base32-encoded; backup codes are stored only as hex SHA-256
// digests.
type MFASettings struct {
	Enabled         bool
	Method          string
	Secret          string
	BackupCodes     []string
	LastUsedAt      time.Time
	LastUsedStep    int64
	PendingSecret   string
	PendingIssuedAt time.Time
}

// Activity tracks login bookkeeping on the account.
type Activity struct {
	LastLogin           time.Time
	LastActive          time.Time
	LoginCount          int64
	FailedLoginAttempts int
	LastFailedLogin     time.Time
}

// User is the account record the Service reads and writes through a
// UserStore. Email is stored lowercase.
type User struct {
	ID                string
	Email             string
	FullName          string
	Department        string
	JobTitle          string
	PasswordHash      string
	Role              string
	CustomPermissions []string

	Status        Status
	EmailVerified bool

	VerificationToken string
	ResetToken        string
	ResetExpires      time.Time

	MFA      MFASettings
	Activity Activity

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserStore is the durable account storage the host application provides.
// Lookups return ErrUserNotFound for misses; Insert returns
// ErrDuplicateEmail when the email is already taken. Any other failure
// should wrap ErrStoreUnavailable.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	// Insert persists a new account. It is the registration commit point
	// and must enforce email uniqueness.
	Insert(ctx context.Context, user *User) error
	// Save overwrites an existing account record.
	Save(ctx context.Context, user *User) error
	// IncrementFailedAttempts bumps the failed-login counter without
	// racing a concurrent Save of unrelated fields.
	IncrementFailedAttempts(ctx context.Context, id string, at time.Time) error
}

// Notifier delivers account emails. Implementations are called
// fire-and-forget; a delivery failure never fails the triggering flow.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// RequestContext carries per-request attributes into the flows for
// sessions, rate limiting, and audit records.
type RequestContext struct {
	IP        string
	UserAgent string
}

// RegisterInput is the payload for Service.Register.
type RegisterInput struct {
	Email      string
	Password   string
	FullName   string
	Department string
	JobTitle   string
	Role       string
}

// LoginInput is the payload for Service.Login.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// LoginResult is returned by Login, VerifyMFA, and Refresh. When
// MFAPending is set only ChallengeToken is populated; no session or token
// pair exists yet.
type LoginResult struct {
	MFAPending     bool
	ChallengeToken string

	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	SessionID    string

	UserID      string
	Email       string
	Role        string
	Permissions []string
}

// MFAEnrollment is returned by BeginMFAEnrollment. The secret is shown to
// the user once for authenticator setup.
type MFAEnrollment struct {
	Secret       string
	ProvisionURI string
}

// MFAActivation is returned by ActivateMFA. Backup codes appear here in
// plaintext exactly once.
type MFAActivation struct {
	BackupCodes []string
}
