// Package registry keeps a persistent history of training runs. It
// uses BoltDB as the storage engine: one record per trained head per
// run, keyed for efficient per-head range scans, so operators can
// compare metrics across retrains and locate the bundle a given
// version was exported to.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"textheads/internal/trainer"
)

const runsBucket = "runs"

// RunRecord describes one trained head from one training run.
type RunRecord struct {
	Head         string          `json:"head"`
	Version      string          `json:"version"`
	TrainedAt    time.Time       `json:"trained_at"`
	BundlePath   string          `json:"bundle_path"`
	Metrics      trainer.Metrics `json:"metrics"`
	Calibrated   bool            `json:"calibrated"`
	TrainingRows int             `json:"training_rows"`
}

// Registry provides persistent storage for training-run history.
type Registry struct {
	db *bbolt.DB
}

// Open opens (or creates) the registry database at path.
func Open(path string) (*Registry, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record stores one run record. Records are keyed "head_timestamp" so
// a cursor scan over a head prefix returns its runs in time order.
func (r *Registry) Record(rec RunRecord) error {
	if rec.Version == "" {
		rec.Version = rec.TrainedAt.Format("20060102-150405")
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal run record: %w", err)
		}

		key := fmt.Sprintf("%s_%d", rec.Head, rec.TrainedAt.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// Runs returns all recorded runs for a head, oldest first.
func (r *Registry) Runs(head string) ([]RunRecord, error) {
	var records []RunRecord

	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		prefix := []byte(head + "_")

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal run record %s: %w", k, err)
			}
			// "spam_" also prefixes keys of a head named "spam_extra"
			if rec.Head != head {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Latest returns the most recent run for a head, or nil when the head
// has never been trained.
func (r *Registry) Latest(head string) (*RunRecord, error) {
	runs, err := r.Runs(head)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[len(runs)-1], nil
}
