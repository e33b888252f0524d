package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jobtracker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "source.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.CreateJob(context.Background(), newTestJob(t, "Rig A", "2024-05-01")))
	return db
}

func writeOldSnapshot(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	ts := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, ts, ts))
	return path
}

func TestBackupService_Snapshot(t *testing.T) {
	db := newFileDB(t)
	s := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: filepath.Join(t.TempDir(), "backups")}, nil)

	path, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)

	backup, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer backup.Close()

	var count int
	require.NoError(t, backup.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&count))
	assert.Equal(t, 1, count)

	snaps, err := s.List()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, path, snaps[0].Path)
}

func TestBackupService_SnapshotInMemory(t *testing.T) {
	db := setupTestDB(t)
	s := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: t.TempDir()}, nil)

	// VACUUM INTO работает и для :memory:
	path, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestBackupService_NoDatabase(t *testing.T) {
	s := NewBackupService(nil, config.BackupConfig{Enabled: true, StoragePath: t.TempDir()}, nil)

	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestBackupService_StorageIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(tmpFile, nil, 0o644))

	s := NewBackupService(newFileDB(t), config.BackupConfig{Enabled: true, StoragePath: filepath.Join(tmpFile, "sub")}, nil)

	_, err := s.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestBackupService_CopyFile(t *testing.T) {
	db := newFileDB(t)
	s := NewBackupService(db, config.BackupConfig{StoragePath: t.TempDir()}, nil)

	target := filepath.Join(s.cfg.StoragePath, "copy.db")
	require.NoError(t, s.copyFile(target))
	assert.FileExists(t, target)

	mem := NewBackupService(setupTestDB(t), config.BackupConfig{StoragePath: t.TempDir()}, nil)
	assert.Error(t, mem.copyFile(filepath.Join(mem.cfg.StoragePath, "copy.db")))
}

func TestBackupService_RotateByAge(t *testing.T) {
	dir := t.TempDir()
	s := NewBackupService(newFileDB(t), config.BackupConfig{StoragePath: dir, RetentionDays: 1}, nil)

	old := writeOldSnapshot(t, dir, "jobs_20000101_000000.000.db", 48*time.Hour)
	fresh := writeOldSnapshot(t, dir, "jobs_20990101_000000.000.db", time.Minute)
	foreign := writeOldSnapshot(t, dir, "notes.txt", 48*time.Hour)

	assert.Equal(t, 1, s.Rotate())
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, foreign)
}

func TestBackupService_RotateKeepLast(t *testing.T) {
	dir := t.TempDir()
	s := NewBackupService(newFileDB(t), config.BackupConfig{StoragePath: dir, KeepLast: 2}, nil)

	oldest := writeOldSnapshot(t, dir, "jobs_20240101_000000.000.db", time.Hour)
	writeOldSnapshot(t, dir, "jobs_20240102_000000.000.db", time.Hour)
	writeOldSnapshot(t, dir, "jobs_20240103_000000.000.db", time.Hour)

	assert.Equal(t, 1, s.Rotate())
	assert.NoFileExists(t, oldest)

	snaps, err := s.List()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "jobs_20240103_000000.000.db", snaps[0].Name)
}

func TestBackupService_Loop(t *testing.T) {
	s := NewBackupService(newFileDB(t), config.BackupConfig{
		Enabled:     true,
		Schedule:    "10ms",
		StoragePath: filepath.Join(t.TempDir(), "loop"),
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	snaps, err := s.List()
	require.NoError(t, err)
	assert.NotEmpty(t, snaps)
}

func TestBackupService_Interval(t *testing.T) {
	s := NewBackupService(nil, config.BackupConfig{Schedule: "bogus"}, nil)
	assert.Equal(t, 24*time.Hour, s.interval())

	s.cfg.Schedule = "90m"
	assert.Equal(t, 90*time.Minute, s.interval())
}

func TestBackupService_Disabled(t *testing.T) {
	s := NewBackupService(nil, config.BackupConfig{Enabled: false, StoragePath: t.TempDir()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)

	snaps, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
