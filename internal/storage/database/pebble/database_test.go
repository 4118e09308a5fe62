package pebble

import (
	"path/filepath"
	"testing"

	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/LeJamon/goSwapd/internal/storage/database/dbtest"
	"github.com/stretchr/testify/require"
)

func TestPebbleDB(t *testing.T) {
	dbtest.Run(t, func(t *testing.T) database.DB {
		db, err := Open(filepath.Join(t.TempDir(), "state"), 1<<20)
		require.NoError(t, err)
		return db
	})
}
