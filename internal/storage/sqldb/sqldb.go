// Package sqldb stores tick records in a relational database through GORM.
// SQLite, Postgres and MySQL are supported; the schema is the same on all
// three: swerve_run, swerve_tick and swerve_module_tick.
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Drivers accepted by Open.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL;",
	"PRAGMA synchronous = NORMAL;",
	"PRAGMA foreign_keys = ON;",
}

// Store is a dynamo.Sink and dynamo.RunRecorder backed by GORM.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the database and migrates the schema.
func Open(driver, dsn string, log zerolog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case SQLite:
		dialector = sqlite.Open(dsn)
	case Postgres:
		dialector = postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	case MySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: unknown sql driver %q", dynamo.ErrInvalidConfig, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging %s database: %w", driver, err)
	}

	if driver == SQLite {
		// one writer; SQLite serialises writes anyway
		sqlDB.SetMaxOpenConns(1)
		for _, pragma := range sqlitePragmas {
			if err := db.Exec(pragma).Error; err != nil {
				sqlDB.Close()
				return nil, fmt.Errorf("setting pragma: %w", err)
			}
		}
	} else {
		sqlDB.SetMaxOpenConns(4)
	}

	s := New(db, log)
	if err := s.Migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	log.Info().Str("driver", driver).Msg("connected to database")
	return s, nil
}

// New wraps an open connection. The schema is not migrated.
func New(db *gorm.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func (s *Store) StartRun(ctx context.Context, info dynamo.RunInfo) error {
	run := Run{
		ID:        info.ID,
		StartedAt: info.StartedAt,
		Seed:      info.Seed,
		Dt:        info.Dt,
		Duration:  info.Duration,
		MaxTicks:  info.MaxTicks,
		Source:    info.Source,
	}
	return s.db.WithContext(ctx).Create(&run).Error
}

func (s *Store) FinishRun(ctx context.Context, sum dynamo.RunSummary) error {
	ended := sum.EndedAt
	res := s.db.WithContext(ctx).Model(&Run{ID: sum.ID}).Updates(map[string]any{
		"ended_at":  &ended,
		"ticks":     sum.Ticks,
		"persisted": sum.Persisted,
		"failed":    sum.Failed,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finish run %s: %w", sum.ID, dynamo.ErrRunNotFound)
	}
	return nil
}

// Persist writes the tick row and its four module rows in one transaction.
// The returned id is the tick row's primary key.
func (s *Store) Persist(ctx context.Context, rec dynamo.TickRecord) (int64, error) {
	tick := tickFromRecord(rec)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Modules").Create(tick).Error; err != nil {
			return fmt.Errorf("insert tick: %w", err)
		}

		mods := make([]ModuleTick, 0, dynamo.NumModules)
		for _, m := range rec.Modules {
			mods = append(mods, moduleFromRecord(rec.RunID, tick.ID, m))
		}
		if err := tx.Create(&mods).Error; err != nil {
			return fmt.Errorf("insert modules: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return tick.ID, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	var runs []Run
	err := s.db.WithContext(ctx).Order("started_at DESC").Find(&runs).Error
	return runs, err
}

func (s *Store) LoadRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %s: %w", runID, dynamo.ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LoadTicks returns a run's records in tick order.
func (s *Store) LoadTicks(ctx context.Context, runID string) ([]dynamo.TickRecord, error) {
	var ticks []Tick
	err := s.db.WithContext(ctx).
		Preload("Modules").
		Where("run_id = ?", runID).
		Order("tick").
		Find(&ticks).Error
	if err != nil {
		return nil, err
	}

	out := make([]dynamo.TickRecord, 0, len(ticks))
	for i := range ticks {
		rec, err := ticks[i].Record()
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", ticks[i].ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Prune deletes runs that ended before cutoff, with their ticks.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var pruned int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&Run{}).Select("id").Where("ended_at IS NOT NULL AND ended_at < ?", cutoff)
		if err := tx.Where("run_id IN (?)", old).Delete(&ModuleTick{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id IN (?)", old).Delete(&Tick{}).Error; err != nil {
			return err
		}
		res := tx.Where("ended_at IS NOT NULL AND ended_at < ?", cutoff).Delete(&Run{})
		pruned = res.RowsAffected
		return res.Error
	})
	return pruned, err
}
