package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

// runKeyPrefix namespaces run records inside the badger keyspace. Keys are
// prefix + zero-padded unix-nano timestamp + run ID, so lexicographic
// order is chronological order.
const runKeyPrefix = "run:"

// BadgerStore is a Store backed by an embedded BadgerDB under a local
// directory. It is safe for concurrent use; badger provides its own
// transaction isolation.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) the history database at dir.
func NewBadgerStore(dir string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	// Modest sizing: the history is small and append-mostly.
	opts.ValueLogFileSize = 16 << 20
	opts.MemTableSize = 4 << 20
	opts.NumMemtables = 2
	opts.Logger = nil // badger's own logger is noisy at defaults

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store at %s: %w", dir, err)
	}

	return &BadgerStore{
		db:     db,
		logger: logger.With("component", "history_store"),
	}, nil
}

// Add appends a run record.
func (s *BadgerStore) Add(ctx context.Context, record *RunRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	key := runKey(record.CreatedAt, record.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save run record %s: %w", record.ID, err)
	}

	s.logger.Debug("run record added", "run_id", record.ID, "status", record.Status)
	return nil
}

// Recent returns up to limit records, newest first. limit <= 0 returns
// everything.
func (s *BadgerStore) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	var records []RunRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode the iterator must be seeked past the last
		// possible key of the prefix range.
		seek := append([]byte(runKeyPrefix), 0xFF)
		for it.Seek(seek); it.Valid(); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}

			var record RunRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				s.logger.Warn("skipping unreadable run record",
					"key", string(it.Item().Key()), "error", err)
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list run records: %w", err)
	}

	return records, nil
}

// Last returns the newest record, or nil if the history is empty.
func (s *BadgerStore) Last(ctx context.Context) (*RunRecord, error) {
	records, err := s.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Stats aggregates counts over the whole history.
func (s *BadgerStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(runKeyPrefix)); it.Valid(); it.Next() {
			var record RunRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				continue
			}

			stats.TotalRuns++
			switch record.Status {
			case RunStatusSuccess:
				stats.Successful++
			case RunStatusFailed:
				stats.Failed++
			}
			if stats.LastRunAt == nil || record.CreatedAt.After(*stats.LastRunAt) {
				t := record.CreatedAt
				stats.LastRunAt = &t
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate run stats: %w", err)
	}

	return stats, nil
}

// Clear removes all run records.
func (s *BadgerStore) Clear(ctx context.Context) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek([]byte(runKeyPrefix)); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func runKey(t time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", runKeyPrefix, t.UnixNano(), id))
}
