package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vectorflow/embedbatch/batch"
)

// Recorder persists batch.FlightRecord values. It matches batch.Recorder
// structurally so any implementation here can be passed to
// batch.WithRecorder without an adapter.
type Recorder interface {
	Record(ctx context.Context, rec batch.FlightRecord)
	Close() error
}

// flightRow is the GORM model backing the flight_records table.
type flightRow struct {
	ID            uint      `gorm:"primaryKey"`
	ItemCount     int       `gorm:"column:item_count"`
	TotalInputs   int       `gorm:"column:total_inputs"`
	TriggerReason string    `gorm:"column:trigger_reason;index"`
	DispatchedAt  time.Time `gorm:"column:dispatched_at;index"`
	Duration      time.Duration `gorm:"column:duration_ns"`
	Outcome       string    `gorm:"column:outcome;index"`
	Err           string    `gorm:"column:error"`
}

func (flightRow) TableName() string { return "flight_records" }

// DBRecorder writes flight records to Postgres through GORM. Writes run on
// a bounded async queue with background workers so the Coordinator's
// Flight goroutines never block on storage latency; a full queue drops the record and logs
// a warning rather than applying backpressure to the batching hot path.
type DBRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
	queue  chan batch.FlightRecord
	wg     sync.WaitGroup

	closeMu sync.Mutex
	closed  bool
}

// DBRecorderConfig configures a DBRecorder.
type DBRecorderConfig struct {
	QueueSize int
	Workers   int
}

// DefaultDBRecorderConfig returns sane defaults for a DBRecorder.
func DefaultDBRecorderConfig() DBRecorderConfig {
	return DBRecorderConfig{QueueSize: 1000, Workers: 2}
}

// NewDBRecorder migrates the flight_records schema and starts the async
// writer workers.
func NewDBRecorder(db *gorm.DB, cfg DBRecorderConfig, logger *zap.Logger) (*DBRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}

	if err := db.AutoMigrate(&flightRow{}); err != nil {
		return nil, fmt.Errorf("migrate flight_records schema: %w", err)
	}

	r := &DBRecorder{
		db:     db,
		logger: logger.With(zap.String("component", "audit_recorder")),
		queue:  make(chan batch.FlightRecord, cfg.QueueSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	return r, nil
}

func (r *DBRecorder) worker() {
	defer r.wg.Done()
	for rec := range r.queue {
		if err := r.write(rec); err != nil {
			r.logger.Error("failed to persist flight record", zap.Error(err))
		}
	}
}

func (r *DBRecorder) write(rec batch.FlightRecord) error {
	row := flightRow{
		ItemCount:     rec.ItemCount,
		TotalInputs:   rec.TotalInputs,
		TriggerReason: string(rec.TriggerReason),
		DispatchedAt:  rec.DispatchedAt,
		Duration:      rec.Duration,
		Outcome:       rec.Outcome,
	}
	row.Err = rec.Err

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.db.WithContext(ctx).Create(&row).Error
}

// Record enqueues rec for asynchronous persistence. It never blocks the
// caller beyond a channel send; a full queue drops rec.
func (r *DBRecorder) Record(_ context.Context, rec batch.FlightRecord) {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		r.logger.Warn("recorder closed, dropping flight record")
		return
	}
	r.closeMu.Unlock()

	select {
	case r.queue <- rec:
	default:
		r.logger.Warn("audit queue full, dropping flight record")
	}
}

// Close stops accepting new records and waits for queued ones to flush.
func (r *DBRecorder) Close() error {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return nil
	}
	r.closed = true
	r.closeMu.Unlock()

	close(r.queue)
	r.wg.Wait()
	return nil
}

// NoOp is a Recorder that discards every record. It is used when no
// database is configured, so the Coordinator's WithRecorder option is
// never wired conditionally.
type NoOp struct{}

func (NoOp) Record(context.Context, batch.FlightRecord) {}
func (NoOp) Close() error                                { return nil }
