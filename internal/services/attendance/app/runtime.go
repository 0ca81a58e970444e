// Package app assembles the attendance process: store, lateness reporter,
// service, HTTP surface, health endpoint and the optional sweep ticker.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	platformgrpc "github.com/ignitehq/attendance/internal/platform/grpc"
	"github.com/ignitehq/attendance/internal/platform/timeouts"
	"github.com/ignitehq/attendance/internal/services/attendance/adminauth"
	"github.com/ignitehq/attendance/internal/services/attendance/api/httpapi"
	"github.com/ignitehq/attendance/internal/services/attendance/domain"
	"github.com/ignitehq/attendance/internal/services/attendance/lateness"
	"github.com/ignitehq/attendance/internal/services/attendance/lateness/sheets"
	"github.com/ignitehq/attendance/internal/services/attendance/observability"
	"github.com/ignitehq/attendance/internal/services/attendance/service"
	"github.com/ignitehq/attendance/internal/services/attendance/storage/sqlite"
)

// HealthService is the gRPC health service name reported while serving.
const HealthService = "attendance.http"

const (
	defaultHTTPAddr        = ":8080"
	defaultDBPath          = "data/attendance.db"
	limiterCleanupInterval = 10 * time.Minute
)

// RuntimeConfig controls attendance startup and its dependencies.
type RuntimeConfig struct {
	HTTPAddr string
	// HealthAddr enables the gRPC health server when set.
	HealthAddr string
	DBPath     string

	AdminToken      string
	TokenSigningKey string

	Timezone       string
	SessionWeekday string
	// SweepInterval runs the sweep in-process. Zero leaves it to /clean.
	SweepInterval time.Duration
	CleanToken    string

	GoogleCreds string
	SheetID     string
	SheetName   string

	SecureCookies bool
	LoginRate     float64
	LoginBurst    int

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

func (c RuntimeConfig) normalized() RuntimeConfig {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		c.HTTPAddr = defaultHTTPAddr
	}
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = defaultDBPath
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = timeouts.Shutdown
	}
	return c
}

// Runtime is a fully wired attendance process.
type Runtime struct {
	config   RuntimeConfig
	store    *sqlite.Store
	service  *service.Service
	api      *httpapi.Server
	listener net.Listener
	server   *http.Server
	health   *platformgrpc.HealthServer

	closeOnce sync.Once
}

// Core holds the pieces shared by the server and the one-shot sweep.
type Core struct {
	Store    *sqlite.Store
	Service  *service.Service
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
}

// Close releases the store.
func (c *Core) Close() {
	if c == nil || c.Store == nil {
		return
	}
	if err := c.Store.Close(); err != nil {
		log.Printf("close attendance sqlite store: %v", err)
	}
}

// OpenCore opens the store and builds the service with its lateness reporter.
func OpenCore(ctx context.Context, cfg RuntimeConfig) (*Core, error) {
	cfg = cfg.normalized()
	zone, err := domain.LoadZone(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	weekday, err := domain.ParseWeekday(cfg.SessionWeekday)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create attendance storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open attendance sqlite store: %w", err)
	}

	reporter, err := newReporter(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	svc, err := service.New(store, reporter, service.Config{
		Zone:          zone,
		Weekday:       weekday,
		SweepLeaseTTL: timeouts.SweepLease,
	}, service.WithMetrics(metrics))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &Core{Store: store, Service: svc, Registry: registry, Metrics: metrics}, nil
}

// newReporter picks the spreadsheet when it is configured and the local
// ledger otherwise. Either way it sits behind a circuit breaker.
func newReporter(ctx context.Context, cfg RuntimeConfig, store *sqlite.Store) (lateness.Reporter, error) {
	creds := strings.TrimSpace(cfg.GoogleCreds)
	sheetID := strings.TrimSpace(cfg.SheetID)
	switch {
	case creds != "" && sheetID != "":
		reporter, err := sheets.New(ctx, sheets.Config{
			CredentialsJSON: []byte(creds),
			SpreadsheetID:   sheetID,
			SheetName:       cfg.SheetName,
		})
		if err != nil {
			return nil, fmt.Errorf("init spreadsheet reporter: %w", err)
		}
		log.Printf("lateness reported to spreadsheet %s", sheetID)
		return lateness.NewBreaker(reporter, lateness.BreakerConfig{Name: "sheets"}), nil
	case creds != "" || sheetID != "":
		return nil, errors.New("spreadsheet reporting needs both credentials and a sheet id")
	default:
		log.Printf("no spreadsheet configured, lateness recorded in the local ledger")
		return lateness.NewBreaker(lateness.NewLedger(store, nil), lateness.BreakerConfig{Name: "ledger"}), nil
	}
}

// New wires every dependency and binds the listeners without serving.
func New(ctx context.Context, cfg RuntimeConfig) (*Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.normalized()
	if strings.TrimSpace(cfg.AdminToken) == "" {
		return nil, errors.New("admin token is required")
	}

	auth, err := adminauth.New(adminauth.Config{
		Password:   cfg.AdminToken,
		SigningKey: []byte(strings.TrimSpace(cfg.TokenSigningKey)),
	})
	if err != nil {
		return nil, fmt.Errorf("init admin auth: %w", err)
	}

	core, err := OpenCore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	api := httpapi.NewServer(core.Service, auth, core.Metrics, httpapi.Config{
		SecureCookies: cfg.SecureCookies,
		CleanToken:    cfg.CleanToken,
		LoginRate:     cfg.LoginRate,
		LoginBurst:    cfg.LoginBurst,
		Gatherer:      core.Registry,
	})

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}

	var health *platformgrpc.HealthServer
	if addr := strings.TrimSpace(cfg.HealthAddr); addr != "" {
		health, err = platformgrpc.ListenHealth(addr, "", HealthService)
		if err != nil {
			_ = listener.Close()
			core.Close()
			return nil, err
		}
	}

	return &Runtime{
		config:   cfg,
		store:    core.Store,
		service:  core.Service,
		api:      api,
		listener: listener,
		health:   health,
		server: &http.Server{
			Handler:           api.Handler(),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      timeouts.Request,
		},
	}, nil
}

// Addr returns the bound HTTP address.
func (r *Runtime) Addr() string {
	return r.listener.Addr().String()
}

// HealthAddr returns the bound gRPC health address, empty when disabled.
func (r *Runtime) HealthAddr() string {
	return r.health.Addr()
}

// Serve runs the HTTP server, health server and sweep ticker until ctx ends.
func (r *Runtime) Serve(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.api.StartCleanup(runCtx, limiterCleanupInterval)

	var workers sync.WaitGroup
	if r.config.SweepInterval > 0 {
		workers.Add(1)
		go func() {
			defer workers.Done()
			r.runSweeps(runCtx, r.config.SweepInterval)
		}()
	}

	if r.health != nil {
		r.health.Start()
		r.health.SetServing("", true)
		r.health.SetServing(HealthService, true)
		log.Printf("attendance health listening at %s", r.health.Addr())
	}

	serveErr := make(chan error, 1)
	log.Printf("attendance server listening at %s", r.Addr())
	go func() {
		serveErr <- r.server.Serve(r.listener)
	}()

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
		if shutdownErr := r.server.Shutdown(shutdownCtx); shutdownErr != nil {
			err = fmt.Errorf("shutdown http server: %w", shutdownErr)
		}
		shutdownCancel()
		<-serveErr
	case serveFailure := <-serveErr:
		if !errors.Is(serveFailure, http.ErrServerClosed) {
			err = fmt.Errorf("serve http: %w", serveFailure)
		}
	}

	cancel()
	workers.Wait()
	r.health.SetServing("", false)
	return err
}

// runSweeps sweeps every interval until ctx ends. Conflicts mean another
// process is sweeping and are not errors.
func (r *Runtime) runSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := r.service.Sweep(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("scheduled sweep: %v", err)
				}
				continue
			}
			if result.Deleted > 0 || result.Created > 0 {
				log.Printf("scheduled sweep: %d deleted, %d created, %d late", result.Deleted, result.Created, result.LateReported)
			}
		}
	}
}

// Close stops the health server and releases the listener and the store.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		if err := r.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("close http listener: %v", err)
		}
		if r.health != nil {
			if err := r.health.Stop(); err != nil {
				log.Printf("stop health server: %v", err)
			}
		}
		if err := r.store.Close(); err != nil {
			log.Printf("close attendance sqlite store: %v", err)
		}
	})
}

// Run builds a runtime and serves until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	runtime, err := New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init attendance: %w", err)
	}
	defer runtime.Close()
	return runtime.Serve(ctx)
}

// SweepOnce runs a single sweep against the configured store and reporter.
func SweepOnce(ctx context.Context, cfg RuntimeConfig) (service.SweepResult, error) {
	core, err := OpenCore(ctx, cfg)
	if err != nil {
		return service.SweepResult{}, fmt.Errorf("init attendance: %w", err)
	}
	defer core.Close()
	return core.Service.Sweep(ctx)
}
