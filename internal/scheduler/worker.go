package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	crmsyncservice "leadlift_backend/internal/crmsync/service"
	seqservice "leadlift_backend/internal/sequences/service"
	"leadlift_backend/platform/apperr"
	"leadlift_backend/platform/config"
	"leadlift_backend/platform/logger"
)

// Worker consumes lifecycle jobs from the queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, syncSvc *crmsyncservice.Service, seqSvc *seqservice.Service, log *logger.Logger) (*Worker, error) {
	connOpt, err := redisConnOpt(cfg)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(connOpt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.Error("task failed", "type", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	w := &Worker{server: server, mux: mux, log: log}
	mux.HandleFunc(TaskCrmSync, w.handleCrmSync(syncSvc))
	mux.HandleFunc(TaskSequenceStep, w.handleSequenceStep(seqSvc))
	return w, nil
}

// handleCrmSync runs one sync attempt. A missing record or lead means the
// work can never succeed, so the retry is skipped; transient failures
// propagate and let the queue back off.
func (w *Worker) handleCrmSync(svc *crmsyncservice.Service) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		recordID, err := ParseCrmSyncTask(task)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		if err := svc.RunSync(ctx, recordID); err != nil {
			if apperr.GetKind(err) == apperr.KindNotFound {
				w.log.Warn("crm sync target gone, dropping job", "sync_record_id", recordID, "error", err)
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}
		return nil
	}
}

// handleSequenceStep runs one sequence step. The service pauses the sequence
// on internal failures, so only a missing sequence/lead reaches here as an
// error.
func (w *Worker) handleSequenceStep(svc *seqservice.Service) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		sequenceID, err := ParseSequenceStepTask(task)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		if err := svc.RunStep(ctx, sequenceID); err != nil {
			if apperr.GetKind(err) == apperr.KindNotFound {
				w.log.Warn("sequence step target gone, dropping job", "sequence_id", sequenceID, "error", err)
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}
		return nil
	}
}

// Start begins consuming jobs. Non-blocking; pair with Shutdown.
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

// Shutdown waits for in-flight jobs and stops the server.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
