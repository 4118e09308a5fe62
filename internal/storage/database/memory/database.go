// Package memory is a non-persistent database.DB backed by an ordered btree.
// It serves standalone mode and tests.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/google/btree"
	"github.com/pkg/errors"
)

const degree = 16

type item struct {
	key, value []byte
}

func less(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

type DB struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[item]
	closed bool
}

var _ database.DB = (*DB)(nil)

func New() *DB {
	return &DB{tree: btree.NewG(degree, less)}
}

func (m *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, database.ErrDBClosed
	}

	it, ok := m.tree.Get(item{key: key})
	if !ok {
		return nil, database.ErrKeyNotFound
	}
	return append([]byte(nil), it.value...), nil
}

func (m *DB) Write(ctx context.Context, key, value []byte) error {
	return m.Batch(ctx, []database.BatchOperation{database.Put(key, value)})
}

func (m *DB) Delete(ctx context.Context, key []byte) error {
	return m.Batch(ctx, []database.BatchOperation{database.Del(key)})
}

// Batch validates every operation before touching the tree so a bad
// operation leaves the store unchanged.
func (m *DB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	for _, op := range ops {
		if op.Type != database.BatchPut && op.Type != database.BatchDelete {
			return errors.Wrapf(database.ErrUnknownBatchOp, "type %d", op.Type)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return database.ErrDBClosed
	}

	for _, op := range ops {
		key := append([]byte(nil), op.Key...)
		if op.Type == database.BatchPut {
			m.tree.ReplaceOrInsert(item{key: key, value: append([]byte(nil), op.Value...)})
		} else {
			m.tree.Delete(item{key: key})
		}
	}
	return nil
}

// Iterator walks a copy-on-write clone of the tree, so writes made while
// iterating are not observed.
func (m *DB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, database.ErrDBClosed
	}

	snapshot := m.tree.Clone()
	var items []item
	collect := func(it item) bool {
		items = append(items, it)
		return true
	}
	switch {
	case start == nil && end == nil:
		snapshot.Ascend(collect)
	case start == nil:
		snapshot.AscendLessThan(item{key: end}, collect)
	case end == nil:
		snapshot.AscendGreaterOrEqual(item{key: start}, collect)
	default:
		snapshot.AscendRange(item{key: start}, item{key: end}, collect)
	}
	return &Iterator{items: items, pos: -1}, nil
}

func (m *DB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type Iterator struct {
	items []item
	pos   int
}

func (it *Iterator) Next() bool {
	if it.pos >= len(it.items) {
		return false
	}
	it.pos++
	return it.pos < len(it.items)
}

func (it *Iterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.items) {
		return nil
	}
	return it.items[it.pos].key
}

func (it *Iterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.items) {
		return nil
	}
	return it.items[it.pos].value
}

func (it *Iterator) Error() error { return nil }
func (it *Iterator) Close() error { return nil }
