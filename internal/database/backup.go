package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"jobtracker/internal/config"

	"github.com/rs/zerolog"
)

const (
	snapshotPrefix   = "jobs_"
	snapshotSuffix   = ".db"
	snapshotLayout   = "20060102_150405.000"
	defaultSnapEvery = 24 * time.Hour
)

// Snapshot describes one backup file in the storage directory.
type Snapshot struct {
	Name    string
	Path    string
	ModTime time.Time
}

// BackupService periodically copies the job store into StoragePath.
type BackupService struct {
	db     *DB
	cfg    config.BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BackupService{db: db, cfg: cfg, logger: logger, now: time.Now}
}

func (s *BackupService) interval() time.Duration {
	if s.cfg.Schedule == "" {
		return defaultSnapEvery
	}
	d, err := time.ParseDuration(s.cfg.Schedule)
	if err != nil || d <= 0 {
		s.logger.Warn().Str("schedule", s.cfg.Schedule).Msg("invalid backup schedule, using 24h")
		return defaultSnapEvery
	}
	return d
}

// Start делает снимок сразу и затем по расписанию, пока жив ctx.
func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("backups disabled")
		return
	}

	every := s.interval()
	s.logger.Info().Dur("interval", every).Str("storage", s.cfg.StoragePath).Msg("backup service started")

	s.runOnce(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BackupService) runOnce(ctx context.Context) {
	if _, err := s.Snapshot(ctx); err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("backup failed")
		}
		return
	}
	s.Rotate()
}

// Snapshot пишет копию базы и возвращает путь к файлу.
func (s *BackupService) Snapshot(ctx context.Context) (string, error) {
	if s.db == nil || s.db.DB == nil {
		return "", ErrNotAvailable
	}
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	target := filepath.Join(s.cfg.StoragePath, snapshotPrefix+s.now().UTC().Format(snapshotLayout)+snapshotSuffix)

	var jobs int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&jobs); err != nil {
		return "", fmt.Errorf("count jobs: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, target); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, copying file")
		if err := s.copyFile(target); err != nil {
			return "", fmt.Errorf("snapshot: %w", err)
		}
	}

	s.logger.Info().Str("path", target).Int("jobs", jobs).Msg("backup written")
	return target, nil
}

// copyFile используется, когда VACUUM INTO недоступен; копия может поймать незавершенную запись.
func (s *BackupService) copyFile(target string) error {
	if s.db.path == "" || s.db.path == ":memory:" {
		return errors.New("in-memory database has no file to copy")
	}

	src, err := os.Open(s.db.path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy: %w", err)
	}
	return dst.Close()
}

// List returns snapshots, newest first.
func (s *BackupService) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	var out []Snapshot
	for _, e := range entries {
		if e.IsDir() || !isSnapshot(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Snapshot{
			Name:    e.Name(),
			Path:    filepath.Join(s.cfg.StoragePath, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	// имя содержит время, поэтому сортируем по имени
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// Rotate удаляет снимки старше RetentionDays и сверх KeepLast. Возвращает число удаленных.
func (s *BackupService) Rotate() int {
	snaps, err := s.List()
	if err != nil {
		s.logger.Error().Err(err).Msg("list backups")
		return 0
	}

	var cutoff time.Time
	if s.cfg.RetentionDays > 0 {
		cutoff = s.now().AddDate(0, 0, -s.cfg.RetentionDays)
	}

	removed := 0
	for i, snap := range snaps {
		tooOld := !cutoff.IsZero() && snap.ModTime.Before(cutoff)
		overLimit := s.cfg.KeepLast > 0 && i >= s.cfg.KeepLast
		if !tooOld && !overLimit {
			continue
		}
		if err := os.Remove(snap.Path); err != nil {
			s.logger.Warn().Err(err).Str("file", snap.Name).Msg("remove old backup")
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("old backups rotated")
	}
	return removed
}

func isSnapshot(name string) bool {
	return strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, snapshotSuffix)
}
