// Package server initializes and runs the filevault server.
// It selects the metadata and object stores, wires the services and serves
// the HTTP API alongside the gRPC health endpoint until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/archive"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/coordinator"
	"github.com/dmitrijs2005/filevault/internal/server/events"
	"github.com/dmitrijs2005/filevault/internal/server/health"
	"github.com/dmitrijs2005/filevault/internal/server/httpapi"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore/memstore"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore/s3store"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/memory"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/filevault/internal/server/grpc"
)

// eventBuffer is the per-subscriber queue length of the change broker.
const eventBuffer = 64

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	checker *health.Checker
	broker  *events.Broker
	handler http.Handler
}

// NewApp builds every component named by c. The returned App owns the
// database pool, if any, and releases it when Run returns.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewJSONLogger(os.Stdout, c.LogLevel)
	}

	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if c.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		gatherer = reg
	}

	mgr, runner, db, err := openMetadata(ctx, c)
	if err != nil {
		return nil, err
	}

	store, err := openObjects(ctx, c)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	objects := objectstore.NewInstrumented(store, m)

	broker := events.NewBroker(eventBuffer)
	conn := runner.Conn()
	coord := coordinator.New(coordinator.Deps{
		Folders:       mgr.Folders(conn),
		Files:         mgr.Files(conn),
		Users:         mgr.Users(conn),
		RefreshTokens: mgr.RefreshTokens(conn),
		Objects:       objects,
		Events:        broker,
		Metrics:       m,
		Log:           logger,
	})

	probes := []health.Probe{{Name: "objects", Check: objects.HealthCheck}}
	if db != nil {
		probes = append(probes, health.Probe{Name: "metadata", Check: db.PingContext})
	}
	checker := health.NewChecker(2*time.Second, probes...)

	handler := httpapi.NewRouter(httpapi.Deps{
		Users:          services.NewUserService(runner, mgr, coord, c, logger),
		Folders:        services.NewFolderService(coord, mgr.Folders(conn), archive.NewAssembler(objects, c.ScratchDir, logger), broker, logger),
		Files:          services.NewFileService(coord, mgr.Files(conn), objects, c.PresignTTL, logger),
		Events:         broker,
		Health:         checker,
		Metrics:        m,
		Gatherer:       gatherer,
		Log:            logger,
		SecretKey:      c.SecretKey,
		MaxUploadBytes: c.MaxUploadBytes,
	})

	logger.Info(ctx, "app initialized",
		"metadata_store", c.MetadataStore, "object_store", c.ObjectStore, "metrics", c.MetricsEnabled)

	return &App{config: c, logger: logger, db: db, checker: checker, broker: broker, handler: handler}, nil
}

func openMetadata(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, dbx.Runner, *sql.DB, error) {
	switch c.MetadataStore {
	case config.StoreMemory:
		return memory.NewManager(memory.NewStore()), dbx.NoTxRunner{}, nil, nil
	case config.StorePostgres:
		db, err := sql.Open("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db init error: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			closeDB(db)
			return nil, nil, nil, fmt.Errorf("db ping error: %w", err)
		}
		mgr := repomanager.NewPostgresRepositoryManager()
		if err := mgr.RunMigrations(ctx, db); err != nil {
			closeDB(db)
			return nil, nil, nil, fmt.Errorf("db migrations error: %w", err)
		}
		return mgr, dbx.NewSQLRunner(db), db, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown metadata store %q", c.MetadataStore)
	}
}

func openObjects(ctx context.Context, c *config.Config) (objectstore.Store, error) {
	switch c.ObjectStore {
	case config.StoreMemory:
		return memstore.New(), nil
	case config.StoreS3:
		s, err := s3store.New(ctx, s3store.Config{
			Bucket:         c.S3Bucket,
			Region:         c.S3Region,
			Endpoint:       c.S3BaseEndpoint,
			AccessKey:      c.S3RootUser,
			SecretKey:      c.S3RootPassword,
			ForcePathStyle: c.S3ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("object store init error: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown object store %q", c.ObjectStore)
	}
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

// Handler exposes the HTTP routes, mainly for tests.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case s := <-sigs:
			app.logger.Info(context.Background(), "signal received", "signal", s.String())
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// startHTTPServer serves on lis until ctx is done, then drains in-flight
// requests for up to ShutdownTimeout. Request contexts do not inherit the
// cancellation of ctx; event streams are ended through the broker instead.
func (app *App) startHTTPServer(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	if app.broker != nil {
		srv.RegisterOnShutdown(app.broker.Close)
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "HTTP server started", "address", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info(context.Background(), "stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn(shutdownCtx, "HTTP shutdown incomplete, closing", "error", err)
		_ = srv.Close()
	}
	app.logger.Info(context.Background(), "HTTP server stopped")
	return nil
}

// Run serves until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer closeDB(app.db)

	app.logger.Info(ctx, "Starting app...")

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	lis, err := net.Listen("tcp", app.config.EndpointAddrHTTP)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.EndpointAddrHTTP, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.startHTTPServer(gctx, lis)
	})

	if app.config.EndpointAddrGRPC != "" {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.checker, 0)
		g.Go(func() error {
			return s.Run(gctx)
		})
	}

	err = g.Wait()
	app.logger.Info(context.Background(), "app stopped")
	return err
}
