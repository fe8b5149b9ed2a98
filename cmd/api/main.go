// Command api runs the HTTP server: lead intake, operator endpoints, and
// event-driven lifecycle orchestration.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadlift_backend/internal/analytics"
	"leadlift_backend/internal/crm"
	"leadlift_backend/internal/crmsync"
	"leadlift_backend/internal/email"
	"leadlift_backend/internal/events"
	apphttp "leadlift_backend/internal/http"
	"leadlift_backend/internal/http/router"
	"leadlift_backend/internal/leads"
	"leadlift_backend/internal/orchestrator"
	"leadlift_backend/internal/scheduler"
	"leadlift_backend/internal/sequences"
	"leadlift_backend/platform/config"
	"leadlift_backend/platform/db"
	"leadlift_backend/platform/logger"
	"leadlift_backend/platform/validator"
)

const (
	startupRetries    = 5
	startupRetryDelay = 3 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	if err := withRetry(log, "migrations", func() error {
		return db.RunMigrations(context.Background(), cfg, "migrations")
	}); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	var pool *pgxpool.Pool
	if err := withRetry(log, "database", func() error {
		var poolErr error
		pool, poolErr = db.NewPool(context.Background(), cfg)
		return poolErr
	}); err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("scheduler client failed", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	bus := events.NewInMemoryBus(log)
	val := validator.New()
	recorder := analytics.New(pool)
	sender := email.NewSender(cfg, log)
	adapters := crm.NewRegistry(cfg, log)

	leadsModule := leads.NewModule(pool, bus, recorder, val, log)
	syncModule := crmsync.NewModule(pool, leadsModule.Service, adapters, queue, log)
	seqModule := sequences.NewModule(pool, leadsModule.Service, sender, recorder, queue, val, log)

	orch := orchestrator.New(leadsModule.Service, seqModule.Service, syncModule.Service, sender, log)
	orch.Register(bus)

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.New(cfg, log, []apphttp.Module{leadsModule, syncModule, seqModule}...)

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.GetHTTPAddr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// withRetry runs fn up to startupRetries times with a fixed delay. Startup
// dependencies (database, migrations) often race the infrastructure coming
// up in containerized deploys.
func withRetry(log *logger.Logger, name string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= startupRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Warn("startup step failed, retrying",
			"step", name, "attempt", attempt, "max_attempts", startupRetries, "error", err)
		time.Sleep(startupRetryDelay)
	}
	return err
}
