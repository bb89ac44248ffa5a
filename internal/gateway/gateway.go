// ABOUTME: Gateway orchestrator that coordinates the bridge gRPC and host HTTP servers
// ABOUTME: Wires config into the shell host, ledger, metrics and dedupe cache

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/2389/shell-bridge/internal/auth"
	"github.com/2389/shell-bridge/internal/builtins"
	"github.com/2389/shell-bridge/internal/config"
	"github.com/2389/shell-bridge/internal/dedupe"
	"github.com/2389/shell-bridge/internal/metrics"
	"github.com/2389/shell-bridge/internal/relay"
	"github.com/2389/shell-bridge/internal/shell"
	"github.com/2389/shell-bridge/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Options override the gateway's defaults. The zero value is the production setup.
type Options struct {
	// Host holds the coordinator; shell.Process() when nil.
	Host *shell.Host

	// Clock drives the coordinator, the clock service and the dedupe cache.
	Clock clock.Clock
}

// Gateway orchestrates the shell-bridge server components.
type Gateway struct {
	config *config.Config
	host   *shell.Host
	relay  *relay.Relay
	hub    *relay.Hub
	clock  clock.Clock
	logger *slog.Logger

	// ledger is nil when database.path is empty
	ledger store.Store

	// metrics is nil when metrics are disabled
	metrics *metrics.Metrics

	dedupe     *dedupe.Cache
	grpcServer *grpc.Server
	httpServer *http.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// initStore opens the lifecycle ledger when a database path is configured.
func initStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.Path == "" {
		return nil, nil
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

func grpcServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
}

// createGRPCServer creates a gRPC server with or without auth based on config.
func createGRPCServer(cfg *config.Config, logger *slog.Logger) (*grpc.Server, error) {
	opts := grpcServerOptions()

	if cfg.Auth.JWTSecret == "" {
		opts = append(opts,
			grpc.ChainUnaryInterceptor(auth.NoAuthUnaryInterceptor()),
			grpc.ChainStreamInterceptor(auth.NoAuthStreamInterceptor()),
		)
		logger.Warn("auth disabled - no jwt_secret configured")
		return grpc.NewServer(opts...), nil
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("creating JWT verifier: %w", err)
	}
	authLogger := logger.With("component", "auth")
	opts = append(opts,
		grpc.ChainUnaryInterceptor(auth.UnaryInterceptor(verifier, authLogger)),
		grpc.ChainStreamInterceptor(auth.StreamInterceptor(verifier, authLogger)),
	)
	logger.Info("auth interceptors enabled (JWT)")
	return grpc.NewServer(opts...), nil
}

// New creates a Gateway on the process-wide shell host.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	return NewWithOptions(cfg, logger, Options{})
}

// NewWithOptions creates a Gateway with explicit dependencies.
func NewWithOptions(cfg *config.Config, logger *slog.Logger, opts Options) (*Gateway, error) {
	if opts.Host == nil {
		opts.Host = shell.Process()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	ledger, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	grpcServer, err := createGRPCServer(cfg, logger)
	if err != nil {
		if ledger != nil {
			ledger.Close()
		}
		return nil, err
	}

	gw := &Gateway{
		config:     cfg,
		host:       opts.Host,
		relay:      relay.New(logger),
		hub:        relay.NewHub(logger),
		clock:      opts.Clock,
		logger:     logger.With("component", "gateway"),
		ledger:     ledger,
		dedupe:     dedupe.NewWithClock(opts.Clock, cfg.HostAPI.DedupeTTL, cfg.HostAPI.DedupeMax),
		grpcServer: grpcServer,
	}

	if cfg.Metrics.Enabled {
		gw.metrics = metrics.New(metrics.Sources{
			Relay:    gw.relay,
			Registry: liveCountFunc(gw.liveInstances),
			Hub:      gw.hub,
		})
	}

	gw.host.Configure(gw.shellOptions(logger))

	RegisterBridgeServer(grpcServer, &bridgeServer{
		gw:     gw,
		logger: logger.With("component", "bridge"),
	})

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// shellOptions builds the coordinator at cold start: built-in services, the
// gateway's relay, and the ledger and metrics observers.
func (g *Gateway) shellOptions(logger *slog.Logger) shell.OptionsFunc {
	return func(args []string, deepLink string) shell.Options {
		if len(args) == 0 {
			args = g.config.Shell.Args
		}
		if deepLink == "" {
			deepLink = g.config.Shell.DeepLink
		}

		var observers []shell.Observer
		if g.ledger != nil {
			observers = append(observers, store.NewRecorder(g.ledger, logger))
		}
		if g.metrics != nil {
			observers = append(observers, g.metrics)
		}

		svc := g.config.Services
		return shell.Options{
			Args:     args,
			DeepLink: deepLink,
			Services: builtins.Factories(builtins.Options{
				Echo:          svc.Echo.Enabled,
				Clock:         svc.Clock.Enabled,
				ClockInterval: svc.Clock.Interval,
				Time:          g.clock,
				Logger:        logger,
			}),
			Observers: observers,
			Relay:     g.relay,
			Clock:     g.clock,
			Logger:    logger,
		}
	}
}

type liveCountFunc func() int

func (f liveCountFunc) LiveCount() int { return f() }

func (g *Gateway) liveInstances() int {
	if coord := g.host.Current(); coord != nil {
		return coord.Registry().LiveCount()
	}
	return 0
}

// Host returns the shell host the gateway drives.
func (g *Gateway) Host() *shell.Host { return g.host }

// Handler returns the HTTP handler for the host API.
func (g *Gateway) Handler() http.Handler { return g.httpServer.Handler }

// setupListeners creates TCP listeners for gRPC and HTTP.
func (g *Gateway) setupListeners() (grpcLn, httpLn net.Listener, err error) {
	g.logger.Info("starting gateway",
		"grpc_addr", g.config.Server.GRPCAddr,
		"http_addr", g.config.Server.HTTPAddr,
	)

	grpcLn, err = net.Listen("tcp", g.config.Server.GRPCAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
	}

	httpLn, err = net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		_ = grpcLn.Close()
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	return grpcLn, httpLn, nil
}

// Run starts the gateway servers and blocks until the context is canceled.
// Returns nil on graceful shutdown, or the first server error.
func (g *Gateway) Run(ctx context.Context) error {
	grpcLn, httpLn, err := g.setupListeners()
	if err != nil {
		return err
	}
	return g.Serve(ctx, grpcLn, httpLn)
}

// Serve runs both servers on the given listeners until ctx is canceled or a
// server fails, then shuts everything down.
func (g *Gateway) Serve(ctx context.Context, grpcLn, httpLn net.Listener) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		g.logger.Info("gRPC server listening", "addr", grpcLn.Addr().String())
		if err := g.grpcServer.Serve(grpcLn); err != nil {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		g.logger.Info("context canceled, initiating shutdown")
		return g.gracefulShutdown()
	})

	return eg.Wait()
}

// gracefulShutdown uses a fresh context since the serving context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// shutdownGRPCServer gracefully stops the gRPC server or force-stops on context cancel.
func (g *Gateway) shutdownGRPCServer(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		g.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		g.grpcServer.Stop()
		<-stopped
	}
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops both servers, shuts the coordinator down and releases the
// ledger. Later calls return the first result.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.shutdownOnce.Do(func() {
		g.logger.Info("shutting down gateway")

		// Ending subscriber streams lets GracefulStop finish.
		g.hub.Close()

		var errs []error
		errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
		g.shutdownGRPCServer(ctx)

		if coord := g.host.Current(); coord != nil {
			coord.Shutdown()
		}

		g.dedupe.Close()
		if g.ledger != nil {
			errs = appendCloseError(errs, "store close", g.ledger.Close())
		}

		g.shutdownErr = errors.Join(errs...)
	})
	return g.shutdownErr
}
