package sqlstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/authweave/idkit/component"
	"github.com/authweave/idkit/database"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/observability"
	"github.com/authweave/idkit/persistence"
)

const backendName = "sql"

// DefaultSweepInterval is how often the background sweep removes expired
// rows when not overridden.
const DefaultSweepInterval = 5 * time.Minute

// Store is the relational persistence backend. It hands out
// collection-scoped adapters over a single shared table and runs a
// background sweep for expired rows.
type Store struct {
	db            *database.DB
	log           *logger.Logger
	metrics       *observability.StoreMetrics
	sweepInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithSweepInterval overrides the background sweep interval.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Store) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithMetrics attaches store instruments.
func WithMetrics(m *observability.StoreMetrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewStore creates a relational persistence store over an open database.
func NewStore(db *database.DB, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		db:            db,
		log:           log.WithComponent("persistence-sql"),
		metrics:       &observability.StoreMetrics{},
		sweepInterval: DefaultSweepInterval,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the storage table.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Record{})
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
func (s *Store) Name() string { return "persistence-sql" }

// Start migrates the schema and launches the background sweep.
func (s *Store) Start(_ context.Context) error {
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("persistence migrate: %w", err)
	}
	go s.sweepLoop()
	s.log.Info("Persistence store started", map[string]interface{}{
		"backend":        backendName,
		"sweep_interval": s.sweepInterval.String(),
	})
	return nil
}

// Stop terminates the background sweep. The database connection is owned
// by the caller and stays open.
func (s *Store) Stop(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

// Health reports whether the underlying database is reachable.
func (s *Store) Health(ctx context.Context) component.Health {
	if err := s.db.PingContext(ctx); err != nil {
		return component.Health{
			Name:    s.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			removed, err := s.Sweep(context.Background())
			if err != nil {
				s.log.Error("Expiry sweep failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if removed > 0 {
				s.log.Debug("Expiry sweep completed", map[string]interface{}{"removed": removed})
			}
		}
	}
}

// Sweep deletes every row whose expiry has passed and returns the number
// of rows removed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", time.Now()).
		Delete(&Record{})
	if res.Error != nil {
		return 0, database.FromDatabase(res.Error, "record")
	}
	s.metrics.Add(ctx, s.metrics.SweptKeys, res.RowsAffected, backendName)
	return res.RowsAffected, nil
}

// jsonExpr builds the dialect-specific expression extracting a secondary
// key from the payload column. The field name is always one of the fixed
// key constants, never caller input.
func (s *Store) jsonExpr(field string) string {
	switch s.db.GormDB.Dialector.Name() {
	case "postgres":
		return fmt.Sprintf("payload::jsonb ->> '%s'", field)
	default:
		return fmt.Sprintf("json_extract(payload, '$.%s')", field)
	}
}
