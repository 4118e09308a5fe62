package bbolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/LeJamon/goSwapd/internal/storage/database/dbtest"
	"github.com/stretchr/testify/require"
)

func TestBBoltDB(t *testing.T) {
	dbtest.Run(t, func(t *testing.T) database.DB {
		db, err := Open(filepath.Join(t.TempDir(), "state.db"))
		require.NoError(t, err)
		return db
	})
}

func TestBBoltReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Write(ctx, []byte("offer/H1"), []byte("record")))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Read(ctx, []byte("offer/H1"))
	require.NoError(t, err)
	require.Equal(t, []byte("record"), got)
}
