package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/config"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/repository"
	"github.com/thiexam/thiexam-backend/internal/service"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // BLPop requires >= 1s
)

// ProctorWorker drains the proctoring event queue into PostgreSQL in batches.
// Bulk COPY first, row-by-row on failure, requeue what still will not land.
type ProctorWorker struct {
	proctorRepo *repository.ProctoringRepository
	svc         *service.ProctorService
	rdb         *redis.Client
	log         zerolog.Logger
}

func NewProctorWorker(proctorRepo *repository.ProctoringRepository, svc *service.ProctorService, rdb *redis.Client, log zerolog.Logger) *ProctorWorker {
	return &ProctorWorker{
		proctorRepo: proctorRepo,
		svc:         svc,
		rdb:         rdb,
		log:         log.With().Str("component", "proctor_worker").Logger(),
	}
}

func (w *ProctorWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctorWorker started")

	buffer := make([]model.ProctoringLog, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlush = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistProctorQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var event model.ProctoringLog
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed event")
			continue
		}

		buffer = append(buffer, event)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ProctorWorker) flushSafe(ctx context.Context, batch []model.ProctoringLog) {
	if err := w.proctorRepo.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ProctorWorker) fallbackInsert(ctx context.Context, batch []model.ProctoringLog) {
	requeueList := make([]model.ProctoringLog, 0)

	for i := range batch {
		if err := w.proctorRepo.Insert(ctx, &batch[i]); err != nil {
			w.log.Error().Err(err).Str("attempt_id", batch[i].AttemptID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, batch[i])
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ProctorWorker) requeue(ctx context.Context, items []model.ProctoringLog) {
	pipe := w.rdb.Pipeline()
	for i := range items {
		data, _ := json.Marshal(items[i])
		pipe.RPush(ctx, config.WorkerKey.PersistProctorQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue events to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed events back to Redis")
		// Avoid thrashing while the DB is down hard.
		time.Sleep(2 * time.Second)
	}
}

func (w *ProctorWorker) shutdown(buffer []model.ProctoringLog) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}

	// Events still sitting in Redis would be stranded until the next start.
	for {
		drained, err := w.svc.DrainQueue(shutdownCtx, BatchSize)
		if len(drained) > 0 {
			w.flushSafe(shutdownCtx, drained)
		}
		if err != nil {
			w.log.Error().Err(err).Msg("Queue drain aborted")
			return
		}
		if len(drained) < BatchSize {
			return
		}
	}
}
