package redisstore

import (
	"context"
	"fmt"

	"github.com/authweave/idkit/component"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/observability"
	"github.com/authweave/idkit/persistence"
	"github.com/authweave/idkit/redis"
)

const backendName = "redis"

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "oidc:"

// Store is the networked persistence backend. Expiry is delegated to
// Redis TTLs.
type Store struct {
	client  *redis.Client
	log     *logger.Logger
	metrics *observability.StoreMetrics
	prefix  string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithMetrics attaches store instruments.
func WithMetrics(m *observability.StoreMetrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewStore creates a Redis persistence store over a connected client.
func NewStore(client *redis.Client, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		client:  client,
		log:     log.WithComponent("persistence-redis"),
		metrics: &observability.StoreMetrics{},
		prefix:  DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Adapter returns the adapter scoped to a logical collection.
func (s *Store) Adapter(collection string) persistence.Adapter {
	return &adapter{store: s, collection: collection}
}

var (
	_ persistence.Provider = (*Store)(nil)
	_ component.Component  = (*Store)(nil)
)

// Name returns the component name.
func (s *Store) Name() string { return "persistence-redis" }

// Start verifies the Redis connection.
func (s *Store) Start(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		return fmt.Errorf("persistence redis start: %w", err)
	}
	s.log.Info("Persistence store started", map[string]interface{}{
		"backend": backendName,
		"prefix":  s.prefix,
	})
	return nil
}

// Stop is a no-op; the Redis client is owned by the caller.
func (s *Store) Stop(_ context.Context) error { return nil }

// Health reports whether Redis is reachable.
func (s *Store) Health(ctx context.Context) component.Health {
	if err := s.client.Ping(ctx); err != nil {
		return component.Health{
			Name:    s.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

func (s *Store) recordKey(collection, id string) string {
	return s.prefix + collection + ":" + id
}

func (s *Store) userCodeKey(code string) string {
	return s.prefix + "userCode:" + code
}

func (s *Store) uidKey(uid string) string {
	return s.prefix + "uid:" + uid
}

func (s *Store) grantKey(grantID string) string {
	return s.prefix + "grantId:" + grantID
}
