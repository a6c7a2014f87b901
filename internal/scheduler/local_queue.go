package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultLocalBuffer  = 1024
	defaultLocalWorkers = 4
)

type LocalQueueOptions struct {
	Buffer  int
	Workers int
}

type scheduledJob struct {
	job        ports.ScoreJob
	eligibleAt time.Time
	seq        uint64
}

type jobHeap []scheduledJob

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].eligibleAt.Equal(h[j].eligibleAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].eligibleAt.Before(h[j].eligibleAt)
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)   { *h = append(*h, x.(scheduledJob)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// LocalQueue runs score jobs inside the API process. One dispatcher goroutine
// owns the delay heap and the pending set; workers receive ready jobs over a
// channel. Jobs are lost on restart.
type LocalQueue struct {
	processor ports.ScoreJobProcessor
	log       *logger.Logger
	intake    chan scheduledJob
	ready     chan ports.ScoreJob
	done      chan struct{}
	workers   int

	seq     atomic.Uint64
	dropped atomic.Int64

	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewLocalQueue(processor ports.ScoreJobProcessor, log *logger.Logger, opts LocalQueueOptions) *LocalQueue {
	if opts.Buffer < 1 {
		opts.Buffer = defaultLocalBuffer
	}
	if opts.Workers < 1 {
		opts.Workers = defaultLocalWorkers
	}
	return &LocalQueue{
		processor: processor,
		log:       log,
		intake:    make(chan scheduledJob, opts.Buffer),
		ready:     make(chan ports.ScoreJob),
		done:      make(chan struct{}),
		workers:   opts.Workers,
	}
}

var _ ports.ScoreQueue = (*LocalQueue)(nil)

// EnqueueScoreRecalculation never blocks; a full intake buffer drops the job.
func (q *LocalQueue) EnqueueScoreRecalculation(ctx context.Context, leadID, organizationID uuid.UUID, delay time.Duration) {
	now := time.Now()
	item := scheduledJob{
		job:        ports.ScoreJob{LeadID: leadID, OrganizationID: organizationID, EnqueuedAt: now.UTC()},
		eligibleAt: now.Add(delay),
		seq:        q.seq.Add(1),
	}

	select {
	case q.intake <- item:
	default:
		q.dropped.Add(1)
		q.log.WithContext(ctx).Warn("score job dropped, local queue full", "lead_id", leadID)
	}
}

// Dropped reports how many jobs were refused because the buffer was full.
func (q *LocalQueue) Dropped() int64 {
	return q.dropped.Load()
}

func (q *LocalQueue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		q.runCtx, q.cancelRun = context.WithCancel(context.WithoutCancel(ctx))
		q.wg.Add(1 + q.workers)
		go q.dispatch()
		for i := 0; i < q.workers; i++ {
			go q.work()
		}
	})
}

// Stop lets in-flight jobs finish until ctx expires, then cancels them.
func (q *LocalQueue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() { close(q.done) })
	if q.cancelRun == nil {
		return nil
	}

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		q.cancelRun()
		return nil
	case <-ctx.Done():
		q.cancelRun()
		<-finished
		return ctx.Err()
	}
}

func (q *LocalQueue) dispatch() {
	defer q.wg.Done()

	pending := make(map[uuid.UUID]struct{})
	h := &jobHeap{}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		var (
			timerC <-chan time.Time
			readyC chan<- ports.ScoreJob
			next   ports.ScoreJob
		)
		if h.Len() > 0 {
			head := (*h)[0]
			if wait := time.Until(head.eligibleAt); wait <= 0 {
				readyC = q.ready
				next = head.job
			} else {
				timer.Reset(wait)
				timerC = timer.C
			}
		}

		select {
		case <-q.done:
			return
		case item := <-q.intake:
			if _, ok := pending[item.job.LeadID]; ok {
				continue
			}
			pending[item.job.LeadID] = struct{}{}
			heap.Push(h, item)
		case <-timerC:
		case readyC <- next:
			heap.Pop(h)
			delete(pending, next.LeadID)
		}
		timer.Stop()
	}
}

func (q *LocalQueue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case job := <-q.ready:
			if err := q.processor.Process(q.runCtx, job); err != nil {
				q.log.Warn("score job aborted", "lead_id", job.LeadID, "error", err)
			}
		}
	}
}
