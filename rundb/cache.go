// Package rundb caches experiment run results keyed by the
// combination of dimension settings that produced them, so a caller
// re-running an experiment can look up combinations already solved.
// The experiment runner does not consult it.
package rundb

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/linnyr-go/linnyr/model"
)

// Cache is a BadgerDB-backed store of experiment run results.
type Cache struct {
	db *badger.DB
}

// Open opens (creating if necessary) a run cache at path.
func Open(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.MemTableSize = 64 << 20
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open run cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// runRecord is the gob-encoded payload stored per combination key.
type runRecord struct {
	Objective float64
	Feasible  bool
	Messages  []string
}

// key derives the cache key for an experiment run: the experiment's
// code and its combination, joined so distinct experiments and
// distinct combinations within one experiment never collide.
func key(experimentCode string, combination []string) []byte {
	return []byte(experimentCode + "/" + strings.Join(combination, "\x1f"))
}

// Put stores run's result under e's code and its own combination.
func (c *Cache) Put(experimentCode string, run *model.ExperimentRun) error {
	rec := runRecord{Objective: run.Objective, Feasible: run.Feasible, Messages: run.Messages}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(experimentCode, run.Combination), buf.Bytes())
	})
}

// Get looks up a previously cached run for combination under
// experimentCode, returning ok=false on a cache miss.
func (c *Cache) Get(experimentCode string, combination []string) (run *model.ExperimentRun, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key(experimentCode, combination))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(val []byte) error {
			var rec runRecord
			if decErr := gob.NewDecoder(bytes.NewReader(val)).Decode(&rec); decErr != nil {
				return decErr
			}
			run = &model.ExperimentRun{
				Combination: combination,
				Objective:   rec.Objective,
				Feasible:    rec.Feasible,
				Messages:    rec.Messages,
			}
			ok = true
			return nil
		})
	})
	return run, ok, err
}

// Invalidate drops every cached run for experimentCode. Call this
// when the model structure underlying the experiment changes: a
// structural edit invalidates all cached runs of every experiment
// that references the edited entity.
func (c *Cache) Invalidate(experimentCode string) error {
	prefix := []byte(experimentCode + "/")
	return c.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			keys = append(keys, k)
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
