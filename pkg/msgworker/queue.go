package msgworker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Job es una unidad de trabajo en la cola de envío
type Job struct {
	// Key identifies the job in logs, usually the event id.
	Key     string
	Handler func(ctx context.Context) error
}

// QueueStats contiene métricas en tiempo real de la cola
type QueueStats struct {
	Workers        int   `json:"workers"`
	Capacity       int   `json:"capacity"`
	Depth          int   `json:"depth"`
	ActiveWorkers  int   `json:"active_workers"`
	TotalEnqueued  int64 `json:"total_enqueued"`
	TotalProcessed int64 `json:"total_processed"`
	TotalDropped   int64 `json:"total_dropped"`
	TotalErrors    int64 `json:"total_errors"`
}

// Queue is a bounded FIFO drained by background workers. When it is full the
// oldest pending job is dropped to make room, so TryEnqueue never blocks.
type Queue struct {
	capacity   int
	numWorkers int

	mu     sync.Mutex
	jobs   []Job
	notify chan struct{}

	stopCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	stopped  atomic.Bool
	wg       sync.WaitGroup

	active         int32
	totalEnqueued  int64
	totalProcessed int64
	totalDropped   int64
	totalErrors    int64

	// OnDrop is called for every job discarded because of backpressure or shutdown.
	OnDrop func(job Job)
}

func NewQueue(capacity, workers int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		capacity:   capacity,
		numWorkers: workers,
		jobs:       make([]Job, 0, capacity),
		notify:     make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the workers. Jobs handed to workers run with a context that is
// not cancelled by Stop, so an in-flight job finishes on its own deadline.
func (q *Queue) Start(ctx context.Context) {
	if q.stopped.Load() || !q.started.CompareAndSwap(false, true) {
		return
	}
	jobCtx := context.WithoutCancel(ctx)

	for i := 0; i < q.numWorkers; i++ {
		q.wg.Add(1)
		go q.run(ctx, jobCtx, i)
	}
	logrus.Infof("[SEND_QUEUE] Started with %d workers, capacity: %d", q.numWorkers, q.capacity)
}

// TryEnqueue appends job, dropping the oldest pending job when the queue is full.
// It returns false only when the queue has been stopped.
func (q *Queue) TryEnqueue(job Job) bool {
	if q.stopped.Load() {
		atomic.AddInt64(&q.totalDropped, 1)
		q.dropped(job)
		return false
	}

	var evicted *Job
	q.mu.Lock()
	if len(q.jobs) >= q.capacity {
		oldest := q.jobs[0]
		evicted = &oldest
		q.jobs[0] = Job{}
		q.jobs = q.jobs[1:]
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	atomic.AddInt64(&q.totalEnqueued, 1)
	if evicted != nil {
		atomic.AddInt64(&q.totalDropped, 1)
		logrus.Warnf("[SEND_QUEUE] queue full, dropping oldest job %s", evicted.Key)
		q.dropped(*evicted)
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Stop stops the workers and discards pending jobs, counting them as dropped.
// It waits for jobs already running.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.stopped.Store(true)
		close(q.stopCh)
		logrus.Info("[SEND_QUEUE] Stopping workers...")

		q.wg.Wait()

		q.mu.Lock()
		pending := q.jobs
		q.jobs = nil
		q.mu.Unlock()

		for _, job := range pending {
			atomic.AddInt64(&q.totalDropped, 1)
			q.dropped(job)
		}
		if len(pending) > 0 {
			logrus.Warnf("[SEND_QUEUE] Discarded %d pending jobs", len(pending))
		}
		logrus.Info("[SEND_QUEUE] All workers stopped")
	})
}

func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	depth := len(q.jobs)
	q.mu.Unlock()

	return QueueStats{
		Workers:        q.numWorkers,
		Capacity:       q.capacity,
		Depth:          depth,
		ActiveWorkers:  int(atomic.LoadInt32(&q.active)),
		TotalEnqueued:  atomic.LoadInt64(&q.totalEnqueued),
		TotalProcessed: atomic.LoadInt64(&q.totalProcessed),
		TotalDropped:   atomic.LoadInt64(&q.totalDropped),
		TotalErrors:    atomic.LoadInt64(&q.totalErrors),
	}
}

func (q *Queue) dropped(job Job) {
	if q.OnDrop != nil {
		q.OnDrop(job)
	}
}

func (q *Queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	job := q.jobs[0]
	q.jobs[0] = Job{}
	q.jobs = q.jobs[1:]
	return job, true
}

// run ejecuta el loop principal del worker
func (q *Queue) run(ctx, jobCtx context.Context, id int) {
	defer q.wg.Done()
	logrus.Debugf("[SEND_QUEUE] Worker %d started", id)

	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, ok := q.pop()
		if !ok {
			select {
			case <-q.notify:
			case <-q.stopCh:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		// Other workers may be waiting on the same notification.
		if q.hasPending() {
			select {
			case q.notify <- struct{}{}:
			default:
			}
		}
		q.process(jobCtx, id, job)
	}
}

func (q *Queue) hasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) > 0
}

func (q *Queue) process(ctx context.Context, id int, job Job) {
	atomic.AddInt32(&q.active, 1)
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&q.totalErrors, 1)
			logrus.Errorf("[SEND_QUEUE] Worker %d panic for %s: %v", id, job.Key, r)
		}
		atomic.AddInt32(&q.active, -1)
		atomic.AddInt64(&q.totalProcessed, 1)
	}()

	if err := job.Handler(ctx); err != nil {
		atomic.AddInt64(&q.totalErrors, 1)
		logrus.WithError(err).Warnf("[SEND_QUEUE] Worker %d job %s failed", id, job.Key)
	}
}
