// Package backend opens an event store described by configuration.
//
//	store:
//	  driver: sqlite          # memory | sqlite | postgres | redis
//	  path: ./events.db      # sqlite
//	  dsn: ${PG_DSN}         # postgres
//	  addr: localhost:6379   # redis
//	  password: ""           # redis
//	  db: 0                  # redis
//	  prefix: eventcentric   # redis
//	  connect_timeout: 5s    # postgres, redis
//	observability:
//	  metrics: true          # OpenTelemetry metrics
//	  tracing: true          # OpenTelemetry spans
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/config"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore/postgres"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore/redis"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/observability"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/unitofwork"
)

// Drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// DefaultConnectTimeout bounds connection setup for network stores.
const DefaultConnectTimeout = 5 * time.Second

// Open creates the store configured in the "store" section of cfg.
// A missing section opens a memory store.
func Open(ctx context.Context, cfg config.Config) (eventstore.Store, error) {
	sc := cfg.Sub("store")
	driver := strings.ToLower(strings.TrimSpace(sc.String("driver", DriverMemory)))
	timeout := sc.Duration("connect_timeout", DefaultConnectTimeout)

	switch driver {
	case DriverMemory:
		return eventstore.NewMemoryStore(), nil

	case DriverSQLite:
		path := sc.String("path", "")
		if path == "" {
			return nil, fmt.Errorf("open sqlite store: store.path is required")
		}
		store, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil

	case DriverPostgres:
		dsn := sc.String("dsn", "")
		if dsn == "" {
			return nil, fmt.Errorf("open postgres store: store.dsn is required")
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		store, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return store, nil

	case DriverRedis:
		store, err := redis.New(ctx, redis.Options{
			Addr:        sc.String("addr", ""),
			Password:    sc.String("password", ""),
			DB:          sc.Int("db", 0),
			Prefix:      sc.String("prefix", redis.DefaultPrefix),
			DialTimeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("open store: unknown driver %q", driver)
	}
}

// UnitOfWorkOptions returns the unit of work options enabled in the
// "observability" section of cfg. Both are off by default.
func UnitOfWorkOptions(cfg config.Config) []unitofwork.Option {
	if !cfg.Has("observability") {
		return nil
	}
	oc := cfg.Sub("observability")
	var opts []unitofwork.Option
	if oc.Bool("metrics", false) {
		opts = append(opts, unitofwork.WithMetrics(observability.NewMetricsRecorder()))
	}
	if oc.Bool("tracing", false) {
		opts = append(opts, unitofwork.WithSpanManager(observability.NewSpanManager()))
	}
	return opts
}
