package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"leadlift_backend/platform/config"
)

// redisConnOpt translates a redis:// or rediss:// URL into an asynq
// connection option, honoring the TLS-insecure escape hatch for managed
// Redis with self-signed certs.
func redisConnOpt(cfg config.SchedulerConfig) (asynq.RedisConnOpt, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	connOpt := asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}
	if connOpt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		connOpt.TLSConfig.InsecureSkipVerify = true
	}
	return connOpt, nil
}

// Client enqueues lifecycle jobs. It implements the Enqueuer/Scheduler
// interfaces the crmsync and sequences services depend on.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	connOpt, err := redisConnOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(connOpt),
		queue:  cfg.GetAsynqQueueName(),
	}, nil
}

// EnqueueCrmSync places a sync job for immediate processing.
func (c *Client) EnqueueCrmSync(ctx context.Context, recordID uuid.UUID) error {
	task, err := NewCrmSyncTask(recordID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(maxQueueRetries),
	)
	if err != nil {
		return fmt.Errorf("enqueue crm sync: %w", err)
	}
	return nil
}

// ScheduleSequenceStep places a step job to run at the sequence's persisted
// wake time.
func (c *Client) ScheduleSequenceStep(ctx context.Context, sequenceID uuid.UUID, at time.Time) error {
	task, err := NewSequenceStepTask(sequenceID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(maxQueueRetries),
		asynq.ProcessAt(at),
	)
	if err != nil {
		return fmt.Errorf("schedule sequence step: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
