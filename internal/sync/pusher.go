package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// LocalPusher is the stand-in for a remote backend that never materialized:
// "pushing" a record degenerates to marking the source row synced. Delete
// records have no row left to mark and succeed trivially.
type LocalPusher struct {
	writers map[string]ports.SyncStatusWriter
}

// NewLocalPusher wires one sync-status writer per entity table
func NewLocalPusher(tasks, categories, subtasks, sessions ports.SyncStatusWriter) *LocalPusher {
	return &LocalPusher{
		writers: map[string]ports.SyncStatusWriter{
			entities.TableTasks:        tasks,
			entities.TableCategories:   categories,
			entities.TableSubtasks:     subtasks,
			entities.TableTimeSessions: sessions,
		},
	}
}

// Push implements Pusher
func (p *LocalPusher) Push(ctx context.Context, record *entities.SyncRecord) error {
	writer, ok := p.writers[record.TableName]
	if !ok {
		return fmt.Errorf("unknown table %q", record.TableName)
	}

	if record.Operation == entities.SyncOpDelete {
		return nil
	}

	now := time.Now().UTC()
	err := writer.UpdateSyncStatus(ctx, record.RecordID, entities.SyncStatusSynced, &now)
	if errors.Is(err, entities.ErrNotFound) {
		// The row was deleted after this record was queued; the delete
		// record that follows will account for it.
		return nil
	}
	return err
}
