package identity

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/osintdesk/identity/audit"
	"github.com/osintdesk/identity/password"
	"github.com/osintdesk/identity/rate"
	"github.com/osintdesk/identity/session"
	"github.com/osintdesk/identity/token"
	"github.com/osintdesk/identity/totp"
)

// Builder wires a Service from its configuration and collaborators.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	userStore UserStore
	notifier  Notifier
	auditSink audit.Sink
	logger    *slog.Logger
	registry  prometheus.Registerer

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing sessions and rate limits.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the durable account store.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithNotifier sets the email delivery collaborator.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit event receiver.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Absent a logger the Service
// stays silent.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsRegistry enables Prometheus metrics on the given registerer.
func (b *Builder) WithMetricsRegistry(reg prometheus.Registerer) *Builder {
	b.registry = reg
	return b
}

// Build validates configuration and collaborators and assembles the
// Service. A Builder can build at most once.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userStore == nil {
		return nil, errors.New("user store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(cfg.Token)
	if err != nil {
		return nil, err
	}

	var metrics *Metrics
	if b.registry != nil {
		metrics, err = NewMetrics(b.registry)
		if err != nil {
			return nil, err
		}
	}

	svc := &Service{
		config:   cfg,
		users:    b.userStore,
		notifier: b.notifier,
		hasher:   hasher,
		tokens:   tokens,
		totp:     totp.NewManager(cfg.TOTP),
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.TTL),
		limiter:  rate.New(b.redis, cfg.Rate),
		audit:    audit.NewDispatcher(cfg.Audit, b.auditSink),
		logger:   b.logger,
		metrics:  metrics,
	}

	b.built = true

	return svc, nil
}
