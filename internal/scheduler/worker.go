package scheduler

import (
	"context"
	"fmt"

	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/platform/config"
	"sales_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Worker drains score jobs from the asynq queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	rdb       *redis.Client
	coalescer *Coalescer
	processor ports.ScoreJobProcessor
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor ports.ScoreJobProcessor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	rdb := redis.NewClient(&redis.Options{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	})

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		rdb:       rdb,
		coalescer: NewCoalescer(rdb, 0),
		processor: processor,
		log:       log,
	}
	w.mux.HandleFunc(TaskLeadScoreRecalculate, w.handleLeadScore)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
		_ = w.rdb.Close()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadScore(ctx context.Context, task *asynq.Task) error {
	return handleScoreTask(ctx, task, w.coalescer, w.processor, w.log)
}

// handleScoreTask releases the pending marker before any read so a mutation
// that lands while the job runs schedules a follow-up job.
func handleScoreTask(ctx context.Context, task *asynq.Task, coalescer *Coalescer, processor ports.ScoreJobProcessor, log *logger.Logger) error {
	payload, err := ParseLeadScorePayload(task)
	if err != nil {
		log.Error("score task payload invalid", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	job, err := payload.Job()
	if err != nil {
		log.Error("score task payload invalid", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if err := coalescer.Release(ctx, job.LeadID); err != nil {
		log.Warn("score job marker release failed", "lead_id", job.LeadID, "error", err)
	}

	return processor.Process(ctx, job)
}
