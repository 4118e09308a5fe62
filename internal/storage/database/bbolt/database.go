// Package bbolt stores the engine state in a single bbolt bucket.
package bbolt

import (
	"bytes"
	"context"
	"sync"

	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// DefaultBucket is the bucket every key lives in.
var DefaultBucket = []byte("swapd")

type BBoltDB struct {
	mu     sync.RWMutex
	db     *bbolt.DB
	bucket []byte
}

var _ database.DB = (*BBoltDB)(nil)

// Open opens or creates the bbolt file at path and makes sure the bucket
// exists.
func Open(path string) (*BBoltDB, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bbolt database %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(DefaultBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to create bucket %s", DefaultBucket)
	}

	return &BBoltDB{db: db, bucket: DefaultBucket}, nil
}

func (b *BBoltDB) Read(ctx context.Context, key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, database.ErrDBClosed
	}

	var value []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(b.bucket).Get(key)
		if v == nil {
			return database.ErrKeyNotFound
		}
		// bbolt's value is only valid during the transaction
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *BBoltDB) Write(ctx context.Context, key []byte, value []byte) error {
	return b.Batch(ctx, []database.BatchOperation{database.Put(key, value)})
}

func (b *BBoltDB) Delete(ctx context.Context, key []byte) error {
	return b.Batch(ctx, []database.BatchOperation{database.Del(key)})
}

func (b *BBoltDB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return database.ErrDBClosed
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		for _, op := range ops {
			var err error
			switch op.Type {
			case database.BatchPut:
				err = bucket.Put(op.Key, op.Value)
			case database.BatchDelete:
				err = bucket.Delete(op.Key)
			default:
				return errors.Wrapf(database.ErrUnknownBatchOp, "type %d", op.Type)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BBoltDB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, database.ErrDBClosed
	}

	tx, err := b.db.Begin(false)
	if err != nil {
		return nil, err
	}

	return &BBoltIterator{
		tx:     tx,
		cursor: tx.Bucket(b.bucket).Cursor(),
		start:  start,
		end:    end,
	}, nil
}

func (b *BBoltDB) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// BBoltIterator holds a read-only transaction open until Close.
type BBoltIterator struct {
	tx         *bbolt.Tx
	cursor     *bbolt.Cursor
	started    bool
	key, value []byte
	start, end []byte
}

func (it *BBoltIterator) Next() bool {
	var k, v []byte
	if !it.started {
		it.started = true
		if it.start == nil {
			k, v = it.cursor.First()
		} else {
			k, v = it.cursor.Seek(it.start)
		}
	} else {
		k, v = it.cursor.Next()
	}

	if k == nil || (it.end != nil && bytes.Compare(k, it.end) >= 0) {
		it.key, it.value = nil, nil
		return false
	}

	it.key = append([]byte(nil), k...)
	it.value = append([]byte(nil), v...)
	return true
}

func (it *BBoltIterator) Key() []byte   { return it.key }
func (it *BBoltIterator) Value() []byte { return it.value }
func (it *BBoltIterator) Error() error  { return nil }

func (it *BBoltIterator) Close() error {
	return it.tx.Rollback()
}
