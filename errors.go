package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for unknown accounts and wrong
	// passwords alike, so responses never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotVerified is returned when a pending-verification
	// account attempts to log in.
	ErrAccountNotVerified = errors.New("account not verified")
	// ErrAccountSuspended is returned for suspended accounts.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrAccountInactive is returned for deactivated accounts.
	ErrAccountInactive = errors.New("account inactive")
	// ErrTokenExpired is returned for structurally valid but expired tokens.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other token failure: bad signature,
	// wrong intent, malformed claims.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrMFARequired signals that the password checked out but a second
	// factor is still needed.
	ErrMFARequired = errors.New("mfa required")
	// ErrMFACodeInvalid is returned for wrong, replayed, or malformed
	// MFA codes.
	ErrMFACodeInvalid = errors.New("invalid mfa code")
	// ErrMFANotEnrolled is returned when an MFA operation targets an
	// account without an enrolled factor.
	ErrMFANotEnrolled = errors.New("mfa not enrolled")
	// ErrMFAAlreadyEnabled is returned when enrollment is begun on an
	// account that already has an active factor.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	// ErrRateLimited is returned when a request exceeds its window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrDuplicateEmail is returned when registration hits an existing
	// account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUserNotFound is the store-level miss sentinel. Login paths map
	// it to ErrInvalidCredentials before it reaches a caller.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when a session lookup misses.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreUnavailable wraps infrastructure failures from the user
	// store or Redis.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// WeakPasswordError reports which policy requirements a candidate password
// failed. It unwraps to nothing; match it with errors.As.
type WeakPasswordError struct {
	Score  int
	Failed []string
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("password too weak (score %d): missing %s", e.Score, strings.Join(e.Failed, ", "))
}
