// Package history persists run reports so operators can answer "what changed
// on which device, and when" after the fact. The core sync path works without
// it; a broken history store degrades to logging only.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"holesync/internal/config"
	"holesync/internal/domain"
)

var ErrNotFound = errors.New("history: run not found")

type Store struct {
	db       *gorm.DB
	keepRuns int
}

// Open connects the configured driver and migrates the schema. The sqlite
// driver is the appliance-side default; postgres serves server deployments
// where several daemons share one history.
func Open(cfg config.Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.History.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.History.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create history directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.History.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.History.DSN)
	default:
		return nil, fmt.Errorf("unsupported history driver %q", cfg.History.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := db.AutoMigrate(&domain.RunRecord{}, &domain.DeviceRunRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}

	return &Store{db: db, keepRuns: cfg.History.KeepRuns}, nil
}

// SaveRun stores a finished run and prunes beyond the retention limit.
func (s *Store) SaveRun(ctx context.Context, report *domain.RunReport) (*domain.RunRecord, error) {
	record, err := domain.NewRunRecord(report)
	if err != nil {
		return nil, fmt.Errorf("encode run report: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	if err := s.prune(ctx); err != nil {
		log.Warn("History prune failed", "error", err)
	}

	return record, nil
}

// ListRuns returns the most recent runs, newest first, without the embedded
// report payloads.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 || limit > s.keepRuns {
		limit = s.keepRuns
	}

	var records []domain.RunRecord
	err := s.db.WithContext(ctx).
		Omit("ReportJSON").
		Preload("Devices").
		Order("started_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return records, nil
}

// GetRun loads one run including its full report.
func (s *Store) GetRun(ctx context.Context, id uint64) (*domain.RunRecord, error) {
	var record domain.RunRecord
	err := s.db.WithContext(ctx).Preload("Devices").First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run %d: %w", id, err)
	}
	return &record, nil
}

func (s *Store) prune(ctx context.Context) error {
	var cutoff domain.RunRecord
	err := s.db.WithContext(ctx).
		Select("id").
		Order("id DESC").
		Offset(s.keepRuns).
		First(&cutoff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Where("id <= ?", cutoff.ID).
		Delete(&domain.RunRecord{}).Error
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
