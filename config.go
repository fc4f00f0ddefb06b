package identity

import (
	"errors"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/osintdesk/identity/audit"
	"github.com/osintdesk/identity/password"
	"github.com/osintdesk/identity/rate"
	"github.com/osintdesk/identity/token"
	"github.com/osintdesk/identity/totp"
)

// SessionConfig controls the Redis session store.
type SessionConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

// PolicyConfig holds account policy knobs enforced by the Service.
type PolicyConfig struct {
	MinPasswordLength  int
	UpgradeHashOnLogin bool
	DefaultRole        string
	BackupCodeCount    int
	BackupCodeLength   int
}

// Config aggregates all component configuration. Zero values are filled in
// by DefaultConfig; Validate runs at Build time.
type Config struct {
	Token    token.Config
	Password password.Config
	TOTP     totp.Config
	Session  SessionConfig
	Rate     rate.Config
	Audit    audit.Config
	Policy   PolicyConfig
}

// DefaultConfig returns the standard configuration. The token signing key
// must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Token:    token.DefaultConfig(),
		Password: password.DefaultConfig(),
		TOTP:     totp.DefaultConfig(),
		Session: SessionConfig{
			RedisPrefix: "session",
			TTL:         24 * time.Hour,
		},
		Rate: rate.DefaultConfig(),
		Audit: audit.Config{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Policy: PolicyConfig{
			MinPasswordLength:  8,
			UpgradeHashOnLogin: true,
			DefaultRole:        "viewer",
			BackupCodeCount:    10,
			BackupCodeLength:   10,
		},
	}
}

// Validate checks the parts of the configuration the Service depends on.
// Component constructors validate their own sections further.
func (c Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix required")
	}
	if c.Policy.MinPasswordLength < 8 {
		return errors.New("minimum password length must be >= 8")
	}
	if c.Policy.DefaultRole == "" {
		return errors.New("default role required")
	}
	if c.Policy.BackupCodeCount <= 0 || c.Policy.BackupCodeLength < 8 {
		return errors.New("invalid backup code policy")
	}
	return nil
}

type envConfig struct {
	SecretKey     string        `env:"IDENTITY_SECRET_KEY,notEmpty"`
	SigningMethod string        `env:"IDENTITY_SIGNING_METHOD" envDefault:"hs256"`
	Issuer        string        `env:"IDENTITY_TOKEN_ISSUER" envDefault:""`
	AccessTTL     time.Duration `env:"IDENTITY_ACCESS_TTL" envDefault:"60m"`
	RefreshTTL    time.Duration `env:"IDENTITY_REFRESH_TTL" envDefault:"720h"`
	VerifyTTL     time.Duration `env:"IDENTITY_EMAIL_VERIFICATION_TTL" envDefault:"24h"`
	ResetTTL      time.Duration `env:"IDENTITY_PASSWORD_RESET_TTL" envDefault:"1h"`
	MFAPendingTTL time.Duration `env:"IDENTITY_MFA_PENDING_TTL" envDefault:"5m"`

	SessionPrefix string        `env:"IDENTITY_SESSION_PREFIX" envDefault:"session"`
	SessionTTL    time.Duration `env:"IDENTITY_SESSION_TTL" envDefault:"24h"`

	RateWindow   time.Duration `env:"IDENTITY_RATE_WINDOW" envDefault:"1m"`
	RateStandard int           `env:"IDENTITY_RATE_STANDARD_LIMIT" envDefault:"60"`
	RateStrict   int           `env:"IDENTITY_RATE_STRICT_LIMIT" envDefault:"10"`

	MinPasswordLength int    `env:"IDENTITY_MIN_PASSWORD_LENGTH" envDefault:"8"`
	DefaultRole       string `env:"IDENTITY_DEFAULT_ROLE" envDefault:"viewer"`
	TOTPIssuer        string `env:"IDENTITY_TOTP_ISSUER" envDefault:"identity"`
}

// ConfigFromEnv builds a Config from IDENTITY_* environment variables on
// top of DefaultConfig. IDENTITY_SECRET_KEY is required.
func ConfigFromEnv() (Config, error) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte(ec.SecretKey)
	cfg.Token.SigningMethod = token.SigningMethod(ec.SigningMethod)
	cfg.Token.Issuer = ec.Issuer
	cfg.Token.AccessTTL = ec.AccessTTL
	cfg.Token.RefreshTTL = ec.RefreshTTL
	cfg.Token.EmailVerificationTTL = ec.VerifyTTL
	cfg.Token.PasswordResetTTL = ec.ResetTTL
	cfg.Token.MFAPendingTTL = ec.MFAPendingTTL

	cfg.Session.RedisPrefix = ec.SessionPrefix
	cfg.Session.TTL = ec.SessionTTL

	cfg.Rate.Window = ec.RateWindow
	cfg.Rate.StandardLimit = ec.RateStandard
	cfg.Rate.StrictLimit = ec.RateStrict

	cfg.Policy.MinPasswordLength = ec.MinPasswordLength
	cfg.Policy.DefaultRole = ec.DefaultRole
	cfg.TOTP.Issuer = ec.TOTPIssuer

	return cfg, nil
}
