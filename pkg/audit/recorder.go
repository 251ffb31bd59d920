package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig controls the async recorder.
type RecorderConfig struct {
	// Buffer is the size of the async write channel. Default 1000.
	Buffer int

	// WriteTimeout bounds each storage write. Default 5 seconds.
	WriteTimeout time.Duration
}

// Recorder writes turn records to storage asynchronously so persistence
// never sits on the conversation path. A full buffer drops the record
// rather than blocking the turn.
type Recorder struct {
	storage Storage
	config  RecorderConfig

	recordChan chan *TurnRecord
	done       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once

	logger *slog.Logger
}

// NewRecorder starts the background writer over the given storage.
func NewRecorder(storage Storage, config RecorderConfig) *Recorder {
	if config.Buffer <= 0 {
		config.Buffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *TurnRecord, config.Buffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized", "buffer", config.Buffer)
	return r
}

// Record enqueues a turn record. It stamps the ID and creation time and
// returns immediately; a full buffer drops the record with a log line.
func (r *Recorder) Record(record *TurnRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	select {
	case r.recordChan <- record:
	default:
		r.logger.Error("audit buffer full, dropping record",
			"record_id", record.ID,
			"session_id", record.SessionID,
		)
	}
}

// Close drains pending records and stops the writer.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.write(record)

		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *TurnRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store turn record",
			"record_id", record.ID,
			"session_id", record.SessionID,
			"error", err,
		)
		return
	}

	r.logger.Debug("turn recorded",
		"record_id", record.ID,
		"session_id", record.SessionID,
		"status", record.Status,
	)
}
