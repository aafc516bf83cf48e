package snapshot

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/lastword/internal/logging"
	"github.com/dmitrijs2005/lastword/internal/server/dbqueue"
	"github.com/dmitrijs2005/lastword/internal/server/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// countingStore counts uploads so dedupe behavior is observable.
type countingStore struct {
	*objectstore.MemoryStore
	mu   sync.Mutex
	puts int
}

func (s *countingStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.MemoryStore.Put(ctx, key, body, contentType)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "snapshot_node1.sqlite", Filename("node1"))
}

func Test_sqliteStringLiteral(t *testing.T) {
	assert.Equal(t, "'/tmp/a.db'", sqliteStringLiteral("/tmp/a.db"))
	assert.Equal(t, "'it''s.db'", sqliteStringLiteral("it's.db"))
}

func TestRestore_NoStoreConfigured(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db.sqlite")
	require.NoError(t, Restore(context.Background(), nil, dbPath, "node1", testLogger()))
	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRestore_SkipsWhenLocalFileExists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db.sqlite")
	require.NoError(t, os.WriteFile(dbPath, []byte("local"), 0o660))

	store := objectstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), Filename("node1"), []byte("remote"), "application/x-sqlite3"))

	require.NoError(t, Restore(context.Background(), store, dbPath, "node1", testLogger()))

	body, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "local", string(body))
}

func TestRestore_NoRemoteSnapshot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db.sqlite")
	store := objectstore.NewMemoryStore()

	require.NoError(t, Restore(context.Background(), store, dbPath, "node1", testLogger()))
	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRestore_WritesSnapshot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "db.sqlite")
	store := objectstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), Filename("node1"), []byte("remote"), "application/x-sqlite3"))

	require.NoError(t, Restore(context.Background(), store, dbPath, "node1", testLogger()))

	body, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "remote", string(body))
}

func TestSnapshot_UploadsAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "db.sqlite")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO notes (body) VALUES ('hello')`)
	require.NoError(t, err)

	queue := dbqueue.New(db, testLogger())
	t.Cleanup(queue.Close)

	store := &countingStore{MemoryStore: objectstore.NewMemoryStore()}
	m := NewManager(queue, store, dbPath, "node1", 0, testLogger())

	require.NoError(t, m.Snapshot(ctx))
	require.Equal(t, 1, store.puts)

	body, err := store.Get(ctx, Filename("node1"))
	require.NoError(t, err)
	assert.NotEmpty(t, body)

	// Unchanged database: nothing new is uploaded.
	require.NoError(t, m.Snapshot(ctx))
	assert.Equal(t, 1, store.puts)

	// A write changes the content hash and forces an upload.
	_, err = db.ExecContext(ctx, `INSERT INTO notes (body) VALUES ('world')`)
	require.NoError(t, err)
	require.NoError(t, m.Snapshot(ctx))
	assert.Equal(t, 2, store.puts)

	// The temporary export file is cleaned up.
	_, err = os.Stat(dbPath + ".backup")
	assert.True(t, os.IsNotExist(err))
}
