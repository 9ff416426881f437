package worker

// dlq.go: jobs that exhaust their attempts are moved to dlq:{original_queue}
// for manual inspection and replay.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // RFC 3339
	Attempts      int             `json:"attempts"`
}

// SendToDLQ pushes a failed job to the dead letter queue.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + queue
	if err := rdb.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: failed to push to DLQ")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job moved to dead letter queue")
}

// DLQLength returns the number of entries in a DLQ for monitoring.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// ReplayDLQ moves up to max dead entries back to their queue with a fresh
// attempt count, oldest first. It returns how many were moved.
func ReplayDLQ(ctx context.Context, rdb *redis.Client, queue string, max int) (int, error) {
	moved := 0
	for moved < max {
		raw, err := rdb.RPop(ctx, DLQPrefix+queue).Bytes()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return moved, err
		}
		var entry DLQEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq: dropping unreadable entry")
			continue
		}
		data, _ := json.Marshal(Job{ID: uuid.NewString(), Type: entry.JobType, Payload: entry.Payload})
		if err := rdb.LPush(ctx, queue, data).Err(); err != nil {
			// Put it back so nothing is lost.
			_ = rdb.RPush(ctx, DLQPrefix+queue, raw).Err()
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		log.Info().Str("queue", queue).Int("replayed", moved).Msg("dlq: entries replayed")
	}
	return moved, nil
}

// StartDLQMonitor logs the size of each DLQ every interval until ctx ends.
func StartDLQMonitor(ctx context.Context, rdb *redis.Client, interval time.Duration, queues ...string) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, q := range queues {
					n, err := DLQLength(ctx, rdb, q)
					if err != nil {
						log.Debug().Err(err).Str("queue", q).Msg("dlq: length check failed")
						continue
					}
					if n > 0 {
						log.Warn().Str("queue", q).Int64("pending", n).Msg("dlq: entries waiting for replay")
					}
				}
			}
		}
	}()
}
