// Package token issues and parses the JWTs used across the authentication
// flows. Every token carries an intent claim and a parser only accepts its
// own intent, so an email verification token can never pass as an access
// token regardless of signature validity.
package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Intent discriminates what a token is allowed to be used for.
type Intent string

const (
	IntentAccess            Intent = "access"
	IntentRefresh           Intent = "refresh"
	IntentEmailVerification Intent = "email_verification"
	IntentPasswordReset     Intent = "password_reset"
	IntentMFAPending        Intent = "mfa_pending"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrExpired is returned when a structurally valid token is past its
	// expiry. Checked before any claim inspection beyond the standard set.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers every other parse failure: bad signature, wrong
	// intent, malformed claims, unexpected algorithm.
	ErrInvalid = errors.New("token invalid")
)

// Config holds signing material and per-intent lifetimes.
type Config struct {
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for hs256 or the ed25519 private key
	// (raw or PEM) for ed25519.
	PrivateKey []byte
	// PublicKey is required for ed25519 verification. Ignored for hs256.
	PublicKey []byte
	Issuer    string
	Leeway    time.Duration

	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration
	MFAPendingTTL        time.Duration

	// Remember-me issuance stretches the access and refresh lifetimes.
	RememberAccessFactor  int
	RememberRefreshFactor int
}

// DefaultConfig returns the standard lifetimes: 60 minute access tokens,
// 30 day refresh tokens, 24 hour email verification, 1 hour password reset,
// 5 minute MFA challenges. Remember-me multiplies access by 7 and refresh
// by 2.
func DefaultConfig() Config {
	return Config{
		SigningMethod:         MethodHS256,
		AccessTTL:             60 * time.Minute,
		RefreshTTL:            30 * 24 * time.Hour,
		EmailVerificationTTL:  24 * time.Hour,
		PasswordResetTTL:      time.Hour,
		MFAPendingTTL:         5 * time.Minute,
		RememberAccessFactor:  7,
		RememberRefreshFactor: 2,
	}
}

// SessionClaims is the payload of access and refresh tokens.
type SessionClaims struct {
	Intent      Intent   `json:"intent"`
	Email       string   `json:"email"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	SessionID   string   `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// PurposeClaims is the payload of single-purpose tokens: email
// verification, password reset, and the MFA pending challenge. They carry
// the minimum needed to resume the flow.
type PurposeClaims struct {
	Intent Intent `json:"intent"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a fixed algorithm.
type Manager struct {
	config Config
}

// NewManager validates the signing configuration.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid token TTL configuration")
	}
	if cfg.EmailVerificationTTL <= 0 || cfg.PasswordResetTTL <= 0 || cfg.MFAPendingTTL <= 0 {
		return nil, errors.New("invalid token TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.RememberAccessFactor < 1 {
		cfg.RememberAccessFactor = 1
	}
	if cfg.RememberRefreshFactor < 1 {
		cfg.RememberRefreshFactor = 1
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// Pair bundles the access and refresh tokens minted at login.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// IssuePair mints an access and refresh token for the subject. remember
// stretches both lifetimes by the configured factors.
func (m *Manager) IssuePair(userID, email, role string, permissions []string, sessionID string, remember bool) (*Pair, error) {
	accessTTL := m.config.AccessTTL
	refreshTTL := m.config.RefreshTTL
	if remember {
		accessTTL *= time.Duration(m.config.RememberAccessFactor)
		refreshTTL *= time.Duration(m.config.RememberRefreshFactor)
	}

	access, err := m.signSession(IntentAccess, userID, email, role, permissions, sessionID, accessTTL)
	if err != nil {
		return nil, err
	}

	// Refresh tokens carry no permissions; they are re-resolved at refresh.
	refresh, err := m.signSession(IntentRefresh, userID, email, role, nil, sessionID, refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessTTL.Seconds()),
	}, nil
}

// IssueAccess mints a standalone access token, used by the refresh flow.
func (m *Manager) IssueAccess(userID, email, role string, permissions []string, sessionID string) (string, int64, error) {
	tok, err := m.signSession(IntentAccess, userID, email, role, permissions, sessionID, m.config.AccessTTL)
	if err != nil {
		return "", 0, err
	}
	return tok, int64(m.config.AccessTTL.Seconds()), nil
}

// IssueEmailVerification mints the token mailed to a new account.
func (m *Manager) IssueEmailVerification(email string) (string, error) {
	return m.signPurpose(IntentEmailVerification, email, m.config.EmailVerificationTTL)
}

// IssuePasswordReset mints the token mailed on a reset request.
func (m *Manager) IssuePasswordReset(email string) (string, error) {
	return m.signPurpose(IntentPasswordReset, email, m.config.PasswordResetTTL)
}

// IssueMFAPending mints the short-lived challenge handed back when a
// password checks out but a second factor is still required.
func (m *Manager) IssueMFAPending(userID, email string) (string, error) {
	claims := PurposeClaims{
		Intent: IntentMFAPending,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.config.MFAPendingTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    m.config.Issuer,
		},
	}
	return m.sign(claims)
}

// ParseAccess validates an access token and returns its claims.
func (m *Manager) ParseAccess(tokenStr string) (*SessionClaims, error) {
	return m.parseSession(tokenStr, IntentAccess)
}

// ParseRefresh validates a refresh token and returns its claims.
func (m *Manager) ParseRefresh(tokenStr string) (*SessionClaims, error) {
	return m.parseSession(tokenStr, IntentRefresh)
}

// ParseEmailVerification validates an email verification token and returns
// the subject email.
func (m *Manager) ParseEmailVerification(tokenStr string) (string, error) {
	claims, err := m.parsePurpose(tokenStr, IntentEmailVerification)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// ParsePasswordReset validates a password reset token and returns the
// subject email.
func (m *Manager) ParsePasswordReset(tokenStr string) (string, error) {
	claims, err := m.parsePurpose(tokenStr, IntentPasswordReset)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// ParseMFAPending validates an MFA challenge token and returns its claims.
func (m *Manager) ParseMFAPending(tokenStr string) (*PurposeClaims, error) {
	return m.parsePurpose(tokenStr, IntentMFAPending)
}

func (m *Manager) signSession(intent Intent, userID, email, role string, permissions []string, sessionID string, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		Intent:      intent,
		Email:       email,
		Role:        role,
		Permissions: permissions,
		SessionID:   sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    m.config.Issuer,
		},
	}
	return m.sign(claims)
}

func (m *Manager) signPurpose(intent Intent, email string, ttl time.Duration) (string, error) {
	claims := PurposeClaims{
		Intent: intent,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    m.config.Issuer,
		},
	}
	return m.sign(claims)
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	tok := jwt.NewWithClaims(m.method(), claims)

	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

func (m *Manager) parseSession(tokenStr string, want Intent) (*SessionClaims, error) {
	var claims SessionClaims
	if err := m.parseInto(tokenStr, &claims); err != nil {
		return nil, err
	}
	if claims.Intent != want || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}

func (m *Manager) parsePurpose(tokenStr string, want Intent) (*PurposeClaims, error) {
	var claims PurposeClaims
	if err := m.parseInto(tokenStr, &claims); err != nil {
		return nil, err
	}
	if claims.Intent != want || claims.Email == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}

func (m *Manager) parseInto(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !tok.Valid {
		return ErrInvalid
	}
	return nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPrivateKey(m.config.PrivateKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(m.config.PublicKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
