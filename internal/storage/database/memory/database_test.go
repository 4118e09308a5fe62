package memory

import (
	"context"
	"testing"

	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/LeJamon/goSwapd/internal/storage/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDB(t *testing.T) {
	dbtest.Run(t, func(t *testing.T) database.DB {
		return New()
	})
}

func TestIteratorIsSnapshot(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Write(ctx, []byte("a"), []byte("1")))

	it, err := db.Iterator(ctx, nil, nil)
	require.NoError(t, err)
	require.NoError(t, db.Write(ctx, []byte("b"), []byte("2")))

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"a"}, keys)
}
