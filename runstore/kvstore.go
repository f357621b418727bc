package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketRuns is the KV bucket holding run display records.
const BucketRuns = "INKWELL_RUNS"

// KVStore persists run records in a NATS JetStream KV bucket, for
// deployments where multiple observers attach over NATS.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates the runs bucket if it doesn't exist and returns a
// store over it.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	kv, err := js.KeyValue(ctx, BucketRuns)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketRuns,
			Description: "Inkwell run display state",
			History:     5,
		})
		if err != nil {
			return nil, fmt.Errorf("create runs bucket: %w", err)
		}
	}
	return &KVStore{kv: kv}, nil
}

// Create allocates a new run record with the given topic.
func (s *KVStore) Create(ctx context.Context, id, topic string) (*RunState, error) {
	if id == "" {
		return nil, fmt.Errorf("run id is required")
	}

	now := time.Now()
	run := &RunState{
		ID:        id,
		Topic:     topic,
		Status:    "created",
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("marshal run: %w", err)
	}
	if _, err := s.kv.Create(ctx, id, data); err != nil {
		return nil, fmt.Errorf("store run: %w", err)
	}
	return run, nil
}

// Get returns the run record, or ErrNotFound.
func (s *KVStore) Get(ctx context.Context, id string) (*RunState, error) {
	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var run RunState
	if err := json.Unmarshal(entry.Value(), &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}

// Update applies mutate to the current record and persists the result
// with optimistic concurrency against the entry revision.
func (s *KVStore) Update(ctx context.Context, id string, mutate func(*RunState)) error {
	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get run: %w", err)
	}

	var run RunState
	if err := json.Unmarshal(entry.Value(), &run); err != nil {
		return fmt.Errorf("unmarshal run: %w", err)
	}

	mutate(&run)
	run.UpdatedAt = time.Now()

	data, err := json.Marshal(&run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if _, err := s.kv.Update(ctx, id, data, entry.Revision()); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// List returns all runs ordered most-recently-updated first.
func (s *KVStore) List(ctx context.Context) ([]*RunState, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	var runs []*RunState
	for key := range lister.Keys() {
		run, err := s.Get(ctx, key)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].UpdatedAt.After(runs[j].UpdatedAt)
	})
	return runs, nil
}
