package leveldb

import (
	"path/filepath"
	"testing"

	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/LeJamon/goSwapd/internal/storage/database/dbtest"
	"github.com/stretchr/testify/require"
)

func TestLevelDB(t *testing.T) {
	dbtest.Run(t, func(t *testing.T) database.DB {
		db, err := Open(filepath.Join(t.TempDir(), "state"), 0)
		require.NoError(t, err)
		return db
	})
}
