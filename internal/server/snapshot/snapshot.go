// Package snapshot backs the local SQLite database up to the shared object
// store and restores it on a fresh node. Snapshots are whole-file replaces,
// keyed by a node-identifying filename; there is no incremental format.
package snapshot

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/lastword/internal/filex"
	"github.com/dmitrijs2005/lastword/internal/logging"
	"github.com/dmitrijs2005/lastword/internal/server/dbqueue"
	"github.com/dmitrijs2005/lastword/internal/server/objectstore"
)

const snapshotContentType = "application/x-sqlite3"

// Filename returns the object-store key for a node's database snapshot.
func Filename(nodeName string) string {
	return fmt.Sprintf("snapshot_%s.sqlite", nodeName)
}

// Restore downloads the node's snapshot and writes it to dbPath, but only
// when no local database file exists yet. It runs before the database is
// opened, so it talks to the object store directly.
func Restore(ctx context.Context, store objectstore.Store, dbPath, nodeName string, logger logging.Logger) error {
	if store == nil {
		return nil
	}

	exists, err := filex.FileExists(dbPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dbPath, err)
	}
	if exists {
		return nil
	}

	body, err := store.Get(ctx, Filename(nodeName))
	if errors.Is(err, objectstore.ErrNotExist) {
		logger.Info(ctx, "no snapshot to restore", "node", nodeName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("download snapshot: %w", err)
	}
	if len(body) == 0 {
		return nil
	}

	if _, err := filex.EnsureParentDir(dbPath); err != nil {
		return err
	}
	if err := os.WriteFile(dbPath, body, 0o660); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	logger.Info(ctx, "restored database from snapshot", "node", nodeName, "bytes", len(body))
	return nil
}

// Manager produces periodic snapshots of a running database.
type Manager struct {
	queue    *dbqueue.Queue
	store    objectstore.Store
	logger   logging.Logger
	dbPath   string
	nodeName string
	interval time.Duration

	prevHash [sha256.Size]byte
}

// NewManager wires a Manager. store may be nil, in which case snapshots are
// disabled and Run returns immediately.
func NewManager(queue *dbqueue.Queue, store objectstore.Store, dbPath, nodeName string, interval time.Duration, logger logging.Logger) *Manager {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Manager{
		queue:    queue,
		store:    store,
		logger:   logger,
		dbPath:   dbPath,
		nodeName: nodeName,
		interval: interval,
	}
}

// Run uploads a snapshot on the configured cadence until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	if m.store == nil {
		m.logger.Info(ctx, "snapshots disabled: no object store configured")
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Snapshot(ctx); err != nil {
				m.logger.Error(ctx, "snapshot failed", "error", err)
			}
		}
	}
}

// Snapshot exports the database with VACUUM INTO under the exclusive queue
// slot, then uploads the file if its content hash changed since the last
// upload. The temporary export file is always removed.
func (m *Manager) Snapshot(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	exportPath := m.dbPath + ".backup"

	err := m.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		// VACUUM INTO refuses to overwrite an existing file.
		if err := os.Remove(exportPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		_, err := db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO %s", sqliteStringLiteral(exportPath)))
		return err
	})
	if err != nil {
		return fmt.Errorf("vacuum into: %w", err)
	}
	defer os.Remove(exportPath)

	body, err := os.ReadFile(exportPath)
	if err != nil {
		return fmt.Errorf("read export: %w", err)
	}

	hash := sha256.Sum256(body)
	if hash == m.prevHash {
		m.logger.Debug(ctx, "snapshot unchanged, skipping upload")
		return nil
	}

	if err := m.store.Put(ctx, Filename(m.nodeName), body, snapshotContentType); err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	m.prevHash = hash

	m.logger.Info(ctx, "snapshot uploaded", "node", m.nodeName, "bytes", len(body))
	return nil
}

func sqliteStringLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
