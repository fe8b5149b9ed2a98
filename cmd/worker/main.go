// Command worker consumes lifecycle jobs: CRM syncs and sequence steps. It
// also runs the resync sweeper that recovers lost or stale work.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadlift_backend/internal/analytics"
	"leadlift_backend/internal/crm"
	"leadlift_backend/internal/crmsync"
	"leadlift_backend/internal/email"
	"leadlift_backend/internal/events"
	"leadlift_backend/internal/leads"
	"leadlift_backend/internal/scheduler"
	"leadlift_backend/internal/sequences"
	"leadlift_backend/platform/config"
	"leadlift_backend/platform/db"
	"leadlift_backend/platform/logger"
	"leadlift_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	pool, err := db.NewPool(context.Background(), cfg)
	if err != nil {
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

	worker, err := scheduler.NewWorker(cfg, syncModule.Service, seqModule.Service, log)
	if err != nil {
		log.Error("worker setup failed", "error", err)
		os.Exit(1)
	}

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	sweeper := scheduler.NewSweeper(syncModule.Service, seqModule.Service, cfg.GetResyncInterval(), log)
	go sweeper.Run(sweepCtx)

	if err := worker.Start(); err != nil {
		cancelSweep()
		log.Error("worker failed to start", "error", err)
		os.Exit(1)
	}
	log.Info("worker started", "queue", cfg.GetAsynqQueueName(), "concurrency", cfg.GetAsynqConcurrency())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down worker")
	cancelSweep()
	worker.Shutdown()
}
