// Package dbtest holds the behaviour every database.DB backend must share.
package dbtest

import (
	"context"
	"testing"

	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a backend. open must return a fresh, empty database.
func Run(t *testing.T, open func(t *testing.T) database.DB) {
	ctx := context.Background()

	t.Run("ReadWriteDelete", func(t *testing.T) {
		db := open(t)
		defer db.Close()

		_, err := db.Read(ctx, []byte("missing"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)

		require.NoError(t, db.Write(ctx, []byte("k"), []byte("v1")))
		got, err := db.Read(ctx, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)

		require.NoError(t, db.Write(ctx, []byte("k"), []byte("v2")))
		got, err = db.Read(ctx, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)

		require.NoError(t, db.Delete(ctx, []byte("k")))
		_, err = db.Read(ctx, []byte("k"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("ReadReturnsCopy", func(t *testing.T) {
		db := open(t)
		defer db.Close()

		require.NoError(t, db.Write(ctx, []byte("k"), []byte("value")))
		got, err := db.Read(ctx, []byte("k"))
		require.NoError(t, err)
		got[0] = 'X'

		again, err := db.Read(ctx, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), again)
	})

	t.Run("Batch", func(t *testing.T) {
		db := open(t)
		defer db.Close()

		require.NoError(t, db.Write(ctx, []byte("gone"), []byte("x")))
		err := db.Batch(ctx, []database.BatchOperation{
			database.Put([]byte("a"), []byte("1")),
			database.Put([]byte("b"), []byte("2")),
			database.Del([]byte("gone")),
		})
		require.NoError(t, err)

		for k, v := range map[string]string{"a": "1", "b": "2"} {
			got, err := db.Read(ctx, []byte(k))
			require.NoError(t, err)
			assert.Equal(t, v, string(got))
		}
		_, err = db.Read(ctx, []byte("gone"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("BatchRejectsUnknownOp", func(t *testing.T) {
		db := open(t)
		defer db.Close()

		err := db.Batch(ctx, []database.BatchOperation{
			database.Put([]byte("a"), []byte("1")),
			{Type: database.BatchOpType(42), Key: []byte("b")},
		})
		require.ErrorIs(t, err, database.ErrUnknownBatchOp)

		_, err = db.Read(ctx, []byte("a"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("IteratorRange", func(t *testing.T) {
		db := open(t)
		defer db.Close()

		for _, k := range []string{"p/a", "p/b", "p/c", "q/a", "o/z"} {
			require.NoError(t, db.Write(ctx, []byte(k), []byte("v-"+k)))
		}

		it, err := db.Iterator(ctx, []byte("p/"), database.PrefixEnd([]byte("p/")))
		require.NoError(t, err)
		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
			assert.Equal(t, "v-"+string(it.Key()), string(it.Value()))
		}
		require.NoError(t, it.Error())
		require.NoError(t, it.Close())
		assert.Equal(t, []string{"p/a", "p/b", "p/c"}, keys)

		it, err = db.Iterator(ctx, []byte("p/b"), nil)
		require.NoError(t, err)
		keys = keys[:0]
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		require.NoError(t, it.Close())
		assert.Equal(t, []string{"p/b", "p/c", "q/a"}, keys)
	})

	t.Run("ScanPrefix", func(t *testing.T) {
		db := open(t)
		defer db.Close()

		for _, k := range []string{"x/1", "x/2", "x/3", "y/1"} {
			require.NoError(t, db.Write(ctx, []byte(k), []byte(k)))
		}

		var seen []string
		err := database.ScanPrefix(ctx, db, []byte("x/"), func(k, v []byte) bool {
			seen = append(seen, string(k))
			return len(seen) < 2
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"x/1", "x/2"}, seen)
	})

	t.Run("Closed", func(t *testing.T) {
		db := open(t)
		require.NoError(t, db.Close())
		require.NoError(t, db.Close())

		_, err := db.Read(ctx, []byte("k"))
		require.ErrorIs(t, err, database.ErrDBClosed)
		require.ErrorIs(t, db.Write(ctx, []byte("k"), nil), database.ErrDBClosed)
		_, err = db.Iterator(ctx, nil, nil)
		require.ErrorIs(t, err, database.ErrDBClosed)
	})
}
