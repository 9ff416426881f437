package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueCorte = "jobs:corte"

	JobCorte = "corte"

	defaultMaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. A returned error schedules a retry
// until the attempts are exhausted, then the job goes to the DLQ.
type Handler func(ctx context.Context, payload json.RawMessage) error

// ── Dispatcher ───────────────────────────────────────────────────────────────

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	push func(ctx context.Context, queue string, data []byte) error
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{push: lpush(rdb)}
}

func lpush(rdb *redis.Client) func(ctx context.Context, queue string, data []byte) error {
	return func(ctx context.Context, queue string, data []byte) error {
		return rdb.LPush(ctx, queue, data).Err()
	}
}

// CorteJobPayload is the job sent to QueueCorte after a drawer closes.
type CorteJobPayload struct {
	SesionID int64 `json:"session_id"`
}

// EnqueueCorte schedules the closing report (PDF + email) of a session.
func (d *Dispatcher) EnqueueCorte(ctx context.Context, sesionID int64) error {
	return d.enqueue(ctx, QueueCorte, JobCorte, CorteJobPayload{SesionID: sesionID})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{ID: uuid.NewString(), Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := d.push(ctx, queue, encoded); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	log.Debug().Str("job_id", job.ID).Str("type", jobType).Str("queue", queue).Msg("job enqueued")
	return nil
}

// ── Pool ─────────────────────────────────────────────────────────────────────

// Pool runs workers that consume the registered queues.
type Pool struct {
	rdb         *redis.Client
	handlers    map[string]Handler
	queues      map[string]string // job type -> queue
	maxAttempts int
	backoff     func(attempt int) time.Duration

	push func(ctx context.Context, queue string, data []byte) error
	dead func(ctx context.Context, queue string, job Job, reason string)

	wg sync.WaitGroup
}

func NewPool(rdb *redis.Client) *Pool {
	p := &Pool{
		rdb:         rdb,
		handlers:    make(map[string]Handler),
		queues:      make(map[string]string),
		maxAttempts: defaultMaxAttempts,
		backoff:     func(attempt int) time.Duration { return time.Duration(1<<attempt) * time.Second },
	}
	if rdb != nil {
		p.push = lpush(rdb)
		p.dead = func(ctx context.Context, queue string, job Job, reason string) {
			SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, reason, job.Attempts)
		}
	}
	return p
}

// Register binds a job type to its queue and handler. Call before Start.
func (p *Pool) Register(queue, jobType string, h Handler) {
	p.handlers[jobType] = h
	p.queues[jobType] = queue
}

func (p *Pool) queueList() []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range p.queues {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, so idle
// workers cost nothing.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	queues := p.queueList()
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id, queues)
		}(i)
	}
	log.Info().Int("workers", numWorkers).Strs("queues", queues).Msg("worker pool started")
}

// Wait blocks until every worker returned after ctx was cancelled.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int, queues []string) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
		}
		// Blocking pop; waits up to 5s then loops to check ctx.
		result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("brpop failed")
				sleep(ctx, time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		p.process(ctx, result[0], result[1])
	}
}

// process runs one raw job. Failures are re-queued with backoff until
// maxAttempts, then dead-lettered.
func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		p.dead(ctx, queue, Job{Type: "unknown", Payload: json.RawMessage(`null`)}, "payload ilegible: "+err.Error())
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		p.dead(ctx, queue, job, "tipo de trabajo desconocido")
		return
	}

	job.Attempts++
	logger := log.With().Str("job_id", job.ID).Str("type", job.Type).Int("attempt", job.Attempts).Logger()
	err := runHandler(ctx, h, job.Payload)
	if err == nil {
		logger.Info().Msg("job done")
		return
	}
	if job.Attempts >= p.maxAttempts {
		logger.Error().Err(err).Msg("job failed, giving up")
		p.dead(ctx, queue, job, err.Error())
		return
	}

	logger.Warn().Err(err).Msg("job failed, retrying")
	pushCtx := ctx
	if !sleep(ctx, p.backoff(job.Attempts)) {
		// Shutting down: hand the job back instead of dropping it.
		pushCtx = context.WithoutCancel(ctx)
	}
	data, _ := json.Marshal(job)
	if err := p.push(pushCtx, queue, data); err != nil {
		logger.Error().Err(err).Msg("requeue failed")
		p.dead(ctx, queue, job, "requeue: "+err.Error())
	}
}

func runHandler(ctx context.Context, h Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, payload)
}

// sleep waits d or until ctx is done; false means ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
