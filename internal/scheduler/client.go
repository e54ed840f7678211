package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"inspection_portal_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Enqueuer is the part of asynq.Client the scheduler uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues reminder and email tasks for the worker.
type Client struct {
	client *asynq.Client
	queue  string
	enq    Enqueuer
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(opt)
	return &Client{
		client: client,
		queue:  queueName(cfg),
		enq:    client,
	}, nil
}

// NewClientWithEnqueuer builds a client over any enqueuer.
func NewClientWithEnqueuer(enq Enqueuer, queue string) *Client {
	if queue == "" {
		queue = "default"
	}
	return &Client{enq: enq, queue: queue}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleAppointmentReminder queues the reminder for runAt. A rescheduled
// appointment gets a new task; the worker drops the stale one.
func (c *Client) ScheduleAppointmentReminder(ctx context.Context, appointmentID string, runAt time.Time) error {
	if c == nil || c.enq == nil {
		return nil
	}

	task, err := NewAppointmentReminderTask(AppointmentReminderPayload{AppointmentID: appointmentID, RemindAt: runAt.UTC()})
	if err != nil {
		return err
	}

	_, err = c.enq.EnqueueContext(ctx, task,
		asynq.ProcessAt(runAt),
		asynq.Queue(c.queue),
		asynq.TaskID(fmt.Sprintf("reminder:%s:%d", appointmentID, runAt.Unix())),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// SendTemplatedEmail queues an email for immediate delivery by the worker.
// Used when no outbox database is configured.
func (c *Client) SendTemplatedEmail(ctx context.Context, to, template string, data map[string]any) error {
	if c == nil || c.enq == nil {
		return fmt.Errorf("scheduler client not configured")
	}

	task, err := NewSendEmailTask(SendEmailPayload{To: to, Template: template, Data: data})
	if err != nil {
		return err
	}
	_, err = c.enq.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(5))
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
