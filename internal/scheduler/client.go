package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/platform/config"
	"sales_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	scoreTaskMaxRetry     = 3
	defaultEnqueueTimeout = 2 * time.Second
	clientBuffer          = 1024
	clientSenders         = 4
)

// Client enqueues score recalculation jobs on the asynq queue. Request-path
// triggers are handed to background senders so a slow or unreachable Redis
// never holds up the caller.
type Client struct {
	client    *asynq.Client
	rdb       *redis.Client
	coalescer *Coalescer
	queue     string
	log       *logger.Logger

	timeout   time.Duration
	intake    chan ports.ScoreJob
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	dropped   atomic.Int64
}

func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	return newClient(cfg, log, defaultEnqueueTimeout, clientBuffer)
}

func newClient(cfg config.SchedulerConfig, log *logger.Logger, timeout time.Duration, buffer int) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	})

	c := &Client{
		client:    asynq.NewClient(opt),
		rdb:       rdb,
		coalescer: NewCoalescer(rdb, 0),
		queue:     queueName(cfg),
		log:       log,
		timeout:   timeout,
		intake:    make(chan ports.ScoreJob, buffer),
		done:      make(chan struct{}),
	}
	for i := 0; i < clientSenders; i++ {
		c.wg.Add(1)
		go c.send()
	}
	return c, nil
}

var _ ports.ScoreQueue = (*Client)(nil)

// Close stops the senders after they flush what is already buffered.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	return c.client.Close()
}

// Dropped reports how many triggers were discarded because the buffer was full.
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

// EnqueueScoreRecalculation schedules a job to run after delay. It only hands
// the job to a background sender and returns at once; failures are logged.
func (c *Client) EnqueueScoreRecalculation(ctx context.Context, leadID, organizationID uuid.UUID, delay time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	job := ports.ScoreJob{
		LeadID:         leadID,
		OrganizationID: organizationID,
		EnqueuedAt:     time.Now().UTC(),
		Delay:          delay,
	}

	select {
	case <-c.done:
		c.log.WithContext(ctx).WithLead(leadID.String(), organizationID.String()).Warn("score client closed, job dropped")
		return
	default:
	}

	select {
	case c.intake <- job:
	default:
		c.dropped.Add(1)
		c.log.WithContext(ctx).WithLead(leadID.String(), organizationID.String()).Warn("score client buffer full, job dropped")
	}
}

// Enqueue writes the job to Redis synchronously. A job already pending for the
// lead absorbs it. Used directly by tools that want to observe failures.
func (c *Client) Enqueue(ctx context.Context, job ports.ScoreJob) error {
	log := c.log.WithLead(job.LeadID.String(), job.OrganizationID.String())

	reserved, err := c.coalescer.Reserve(ctx, job.LeadID, job.Delay)
	if err != nil {
		log.Warn("score job coalescing unavailable", "error", err)
	}
	if !reserved {
		log.Debug("score job already pending")
		return nil
	}

	task, err := NewLeadScoreTask(LeadScorePayload{
		LeadID:         job.LeadID.String(),
		OrganizationID: job.OrganizationID.String(),
		EnqueuedAt:     job.EnqueuedAt,
	})
	if err != nil {
		return fmt.Errorf("encode score task: %w", err)
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(job.Delay),
		asynq.Queue(c.queue),
		asynq.MaxRetry(scoreTaskMaxRetry),
	)
	if err != nil {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		_ = c.coalescer.Release(releaseCtx, job.LeadID)
		return fmt.Errorf("enqueue score task: %w", err)
	}
	return nil
}

func (c *Client) send() {
	defer c.wg.Done()
	for {
		select {
		case job := <-c.intake:
			c.sendOne(job)
		case <-c.done:
			for {
				select {
				case job := <-c.intake:
					c.sendOne(job)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) sendOne(job ports.ScoreJob) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.Enqueue(ctx, job); err != nil {
		c.log.WithLead(job.LeadID.String(), job.OrganizationID.String()).Error("score job enqueue failed", "error", err)
	}
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
