// Package persist backs waiting-room snapshots with a pebble key-value
// store, snappy-compressing payloads the way the transport layer does for
// wire messages. Grounded on storage/memory.Store's mutex-guarded shape,
// replacing the in-memory map with a pebble.DB since the waiting room must
// survive process restarts (spec.md §6 "Persistence layout").
package persist

import (
	"context"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/golang/snappy"
)

// waitingRoomKey is the single key the waiting-room snapshot lives under.
// One key, overwritten on every call: persistence is idempotent and may be
// coalesced by the caller.
var waitingRoomKey = []byte("waitingroom/snapshot")

// PebbleStore persists arbitrary byte blobs under fixed keys, compressed
// with snappy before they hit disk.
type PebbleStore struct {
	db *pebble.DB
}

// Open opens (creating if absent) a pebble database at dir.
func Open(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("persist: open pebble db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Close releases the underlying pebble handle.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// Persist snappy-compresses snapshot and writes it under the waiting-room
// key, replacing whatever was there before.
func (s *PebbleStore) Persist(ctx context.Context, snapshot []byte) error {
	compressed := snappy.Encode(nil, snapshot)
	if err := s.db.Set(waitingRoomKey, compressed, pebble.Sync); err != nil {
		return fmt.Errorf("persist: write waiting room snapshot: %w", err)
	}
	return nil
}

// Load reads back the last snapshot Persist wrote, or (nil, false) if none
// has ever been written.
func (s *PebbleStore) Load(ctx context.Context) ([]byte, bool, error) {
	compressed, closer, err := s.db.Get(waitingRoomKey)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persist: read waiting room snapshot: %w", err)
	}
	defer closer.Close()

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, false, fmt.Errorf("persist: decompress waiting room snapshot: %w", err)
	}
	return raw, true, nil
}
