// Package sync drains the outbox queue: it reads pending sync records,
// applies them through a Pusher and either removes them or records the
// failure for retry.
package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// State is the coordinator's lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// Pusher applies one outbox record to the remote side. The default
// LocalPusher has no remote and marks the source row synced; a real network
// implementation can be substituted without touching the drain logic.
type Pusher interface {
	Push(ctx context.Context, record *entities.SyncRecord) error
}

// Progress describes how far a running sync has gotten
type Progress struct {
	Percent   int    `json:"percent"`
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// ProgressListener receives progress broadcasts during a sync
type ProgressListener func(Progress)

// Result summarizes a completed sync run
type Result struct {
	Success     bool     `json:"success"`
	SyncedCount int      `json:"synced_count"`
	FailedCount int      `json:"failed_count"`
	Errors      []string `json:"errors,omitempty"`
}

// Coordinator owns the SyncRecord lifecycle. Only one sync may be in flight;
// a second PerformSync fails immediately instead of queueing.
type Coordinator struct {
	records ports.SyncRecordRepository
	pusher  Pusher
	logger  *logger.Logger

	mu         sync.Mutex
	inProgress bool
	state      State
	listeners  []ProgressListener
}

// NewCoordinator creates a sync coordinator
func NewCoordinator(records ports.SyncRecordRepository, pusher Pusher, log *logger.Logger) *Coordinator {
	return &Coordinator{
		records: records,
		pusher:  pusher,
		logger:  log.WithComponent("sync"),
		state:   StateIdle,
	}
}

// State returns the coordinator's current state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a progress listener. Listener panics are caught and
// logged; they never abort a sync.
func (c *Coordinator) Subscribe(listener ProgressListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// PerformSync drains the whole outbox, oldest record first. It refuses to run
// concurrently with itself: the guard is taken before any I/O.
func (c *Coordinator) PerformSync(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	if c.inProgress {
		c.mu.Unlock()
		return nil, entities.ErrSyncInProgress
	}
	c.inProgress = true
	c.state = StateSyncing
	c.mu.Unlock()

	result := &Result{}
	defer func() {
		c.mu.Lock()
		c.inProgress = false
		if result.FailedCount == 0 {
			c.state = StateIdle
		} else {
			c.state = StateError
		}
		c.mu.Unlock()

		outcome := "success"
		if result.FailedCount > 0 {
			outcome = "failure"
		}
		syncRunsTotal.WithLabelValues(outcome).Inc()
	}()

	c.emit(Progress{Percent: 0, Message: "Starting..."})

	records, err := c.records.GetPending(ctx)
	if err != nil {
		result.FailedCount = 1
		return nil, fmt.Errorf("failed to load pending sync records: %w", err)
	}

	if len(records) == 0 {
		c.emit(Progress{Percent: 100, Message: "No items to sync"})
		result.Success = true
		return result, nil
	}

	for i, record := range records {
		c.processRecord(ctx, record, result)
		processed := i + 1
		c.emit(Progress{
			Percent:   processed * 100 / len(records),
			Message:   fmt.Sprintf("Synced %d of %d items", processed, len(records)),
			Processed: processed,
			Total:     len(records),
		})
	}

	result.Success = result.FailedCount == 0
	c.logger.Infow("Sync finished",
		"synced", result.SyncedCount,
		"failed", result.FailedCount,
	)

	return result, nil
}

// ForceSyncRecord processes only the outbox records for one (table, record)
// pair, outside the normal full-drain path.
func (c *Coordinator) ForceSyncRecord(ctx context.Context, tableName, recordID string) (*Result, error) {
	records, err := c.records.GetByRecord(ctx, tableName, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync records for %s/%s: %w", tableName, recordID, err)
	}

	result := &Result{}
	for _, record := range records {
		c.processRecord(ctx, record, result)
	}

	result.Success = result.FailedCount == 0
	return result, nil
}

// processRecord applies one record with per-item failure capture: a failing
// item stays in the queue with an incremented retry count and never aborts
// the batch.
func (c *Coordinator) processRecord(ctx context.Context, record *entities.SyncRecord, result *Result) {
	pushErr := c.pusher.Push(ctx, record)
	c.logger.LogSyncItem(record.TableName, record.RecordID, string(record.Operation), pushErr)

	if pushErr != nil {
		if err := c.records.MarkFailed(ctx, record.ID, pushErr.Error()); err != nil {
			c.logger.WithError(err).Warnw("Failed to record sync failure", "record_id", record.ID)
		}
		result.FailedCount++
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s/%s: %s", record.TableName, record.RecordID, pushErr.Error()))
		syncItemsTotal.WithLabelValues("failed").Inc()
		return
	}

	if err := c.records.Delete(ctx, record.ID); err != nil {
		result.FailedCount++
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s/%s: %s", record.TableName, record.RecordID, err.Error()))
		syncItemsTotal.WithLabelValues("failed").Inc()
		return
	}

	result.SyncedCount++
	syncItemsTotal.WithLabelValues("synced").Inc()
}

func (c *Coordinator) emit(p Progress) {
	c.mu.Lock()
	listeners := make([]ProgressListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Warnw("Progress listener panicked", "panic", r)
				}
			}()
			listener(p)
		}()
	}
}
