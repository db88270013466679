package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/submux/internal/model"
)

// Config holds recorder configuration.
type Config struct {
	BatchSize     int           // rows per insert batch
	FlushInterval time.Duration // max age of a partial batch
	BufferSize    int           // initial ring buffer capacity
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:     1000,
		FlushInterval: 1 * time.Second,
		BufferSize:    10000,
	}
}

// Metrics contains writer counters.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Skipped   int64
}

// messageRow is the relational shape of one recorded data message.
type messageRow struct {
	RowID           string
	Type            string
	TxID            int64
	OriginalTxID    int64
	SubscriptionID  int64
	SubscriptionIDs []int64
	LocalTime       int64 // µs since epoch
	RecordedAt      int64 // µs since epoch
	Payload         []byte
}

// Recorder consumes tagged data messages from the buffer and writes
// them to the messages table in batches.
type Recorder struct {
	cfg    Config
	logger *slog.Logger

	// Input fed by the adapter's upstream port
	input *GrowableBuffer[*model.Message]

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []messageRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewRecorder creates a recorder draining input into db.
func NewRecorder(cfg Config, input *GrowableBuffer[*model.Message], db *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]messageRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming messages and writing to the database.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the recorder and flushes the final batch.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("recorder stopped")
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	r.flush()
	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
			msg, ok := r.input.TryReceive()
			if !ok {
				select {
				case <-r.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}
			r.handleMessage(msg)
		}
	}
}

// flushLoop periodically flushes the batch.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush()
		}
	}
}

// Recordable reports whether a message belongs in the recorded data
// stream. Control traffic and acks are not recorded.
func Recordable(t model.MessageType) bool {
	switch t {
	case model.TypeCandleTimeFrame, model.TypeCandleTick, model.TypeCandleVolume, model.TypeCandleRange,
		model.TypeExecution, model.TypeNews, model.TypeBoardState,
		model.TypePortfolioChange, model.TypePositionChange:
		return true
	}
	return false
}

// handleMessage transforms and batches one message.
func (r *Recorder) handleMessage(msg *model.Message) {
	if !Recordable(msg.Type) {
		r.batchMu.Lock()
		r.metrics.Skipped++
		r.batchMu.Unlock()
		return
	}

	row := transform(msg)

	r.batchMu.Lock()
	r.batch = append(r.batch, row)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush()
	}
}

// transform converts a message to its row.
func transform(msg *model.Message) messageRow {
	var payload []byte
	if msg.Payload != nil {
		payload, _ = json.Marshal(msg.Payload)
	}

	ids := make([]int64, len(msg.SubscriptionIDs))
	for i, id := range msg.SubscriptionIDs {
		ids[i] = int64(id)
	}

	return messageRow{
		RowID:           uuid.NewString(),
		Type:            string(msg.Type),
		TxID:            int64(msg.TxID),
		OriginalTxID:    int64(msg.OriginalTxID),
		SubscriptionID:  int64(msg.SubscriptionID),
		SubscriptionIDs: ids,
		LocalTime:       msg.LocalTime.UnixMicro(),
		RecordedAt:      time.Now().UnixMicro(),
		Payload:         payload,
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush() {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}
	batch := r.batch
	r.batch = make([]messageRow, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	conflicts, err := r.batchInsert(batch)
	if err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch) - conflicts)
	r.metrics.Conflicts += int64(conflicts)
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed messages",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (r *Recorder) batchInsert(rows []messageRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO messages (row_id, type, tx_id, original_tx_id, subscription_id, subscription_ids, local_time, recorded_at, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (row_id) DO NOTHING
		`, row.RowID, row.Type, row.TxID, row.OriginalTxID, row.SubscriptionID, row.SubscriptionIDs, row.LocalTime, row.RecordedAt, row.Payload)
	}

	results := r.db.SendBatch(r.ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
