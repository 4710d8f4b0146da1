package graphlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/graphlab/internal/logging"
	graphhttp "github.com/aretw0/graphlab/pkg/adapters/http"
	redisstore "github.com/aretw0/graphlab/pkg/adapters/redis"
	"github.com/aretw0/graphlab/pkg/observability"
	"github.com/aretw0/graphlab/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

// Version is overridden at build time with -ldflags "-X github.com/aretw0/graphlab.Version=...".
var Version = "0.1.0-dev"

// sweepTimeout bounds a single idle-session sweep.
const sweepTimeout = 30 * time.Second

// Options selects the services behind a Server. The zero value runs
// in memory only.
type Options struct {
	// RedisAddr enables the redis checkpoint store and step lock.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// SessionTTL is how long an idle session is kept. Zero keeps sessions forever.
	SessionTTL time.Duration
	LockTTL    time.Duration

	Logger *slog.Logger
	// Registry receives the metrics. A fresh registry is created when nil.
	Registry *prometheus.Registry
}

// Server bundles a session manager with its HTTP transport.
type Server struct {
	Manager *session.Manager
	Metrics *observability.Metrics
	Handler http.Handler

	store      *redisstore.Store
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewServer wires the manager, persistence, metrics and transport.
// When a redis address is set, the connection is checked before returning.
func NewServer(ctx context.Context, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	metrics := observability.NewMetrics(reg)
	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithHooks(observability.Hooks(logger, metrics)),
	}

	s := &Server{Metrics: metrics, sessionTTL: opts.SessionTTL, logger: logger}
	if opts.RedisAddr != "" {
		storeOpts := []redisstore.Option{redisstore.WithTTL(opts.SessionTTL)}
		if opts.RedisPrefix != "" {
			storeOpts = append(storeOpts, redisstore.WithPrefix(opts.RedisPrefix))
		}
		s.store = redisstore.New(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, storeOpts...)
		if err := s.store.Ping(ctx); err != nil {
			_ = s.store.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.RedisAddr, err)
		}
		locker := redisstore.NewLocker(s.store.Client(), s.store.Prefix())
		managerOpts = append(managerOpts,
			session.WithStore(s.store),
			session.WithLocker(locker, opts.LockTTL),
		)
		logger.Info("using redis session store", "addr", opts.RedisAddr, "prefix", s.store.Prefix())
	}

	s.Manager = session.NewManager(managerOpts...)
	s.Handler = graphhttp.NewHandler(s.Manager,
		graphhttp.WithLogger(logger),
		graphhttp.WithVersion(Version),
		graphhttp.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	return s, nil
}

// Sweep removes sessions idle for longer than the session TTL.
func (s *Server) Sweep(ctx context.Context) (int, error) {
	return s.Manager.Sweep(ctx, s.sessionTTL)
}

// Sweeper returns a stopped scheduler that runs Sweep on schedule, a
// standard cron spec or a descriptor such as "@every 1m".
func (s *Server) Sweeper(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Warn("sweeping idle sessions", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return c, nil
}

// Close releases the store connection, if any.
func (s *Server) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
