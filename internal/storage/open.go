// Package storage selects and opens the key-value backend the engine runs on.
package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/LeJamon/goSwapd/internal/storage/database/bbolt"
	"github.com/LeJamon/goSwapd/internal/storage/database/leveldb"
	"github.com/LeJamon/goSwapd/internal/storage/database/memory"
	"github.com/LeJamon/goSwapd/internal/storage/database/pebble"
	"github.com/pkg/errors"
)

const (
	BackendPebble  = "pebble"
	BackendLevelDB = "leveldb"
	BackendBBolt   = "bbolt"
	BackendMemory  = "memory"
)

// Backends lists every backend name accepted by Open.
var Backends = []string{BackendPebble, BackendLevelDB, BackendBBolt, BackendMemory}

var ErrUnknownBackend = errors.New("unknown database backend")

// Open opens the named backend rooted at dir. The memory backend ignores dir.
func Open(backend, dir string, cacheSize int64) (database.DB, error) {
	backend = strings.ToLower(backend)
	if backend == BackendMemory {
		return memory.New(), nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create database directory %s", dir)
	}

	var (
		db  database.DB
		err error
	)
	switch backend {
	case BackendPebble:
		db, err = pebble.Open(filepath.Join(dir, "state.pebble"), cacheSize)
	case BackendLevelDB:
		db, err = leveldb.Open(filepath.Join(dir, "state.leveldb"), cacheSize)
	case BackendBBolt:
		db, err = bbolt.Open(filepath.Join(dir, "state.db"))
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", backend)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}
