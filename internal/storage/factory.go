package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/san-kum/swervesim/internal/config"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/storage/archive"
	"github.com/san-kum/swervesim/internal/storage/influx"
	"github.com/san-kum/swervesim/internal/storage/memory"
	"github.com/san-kum/swervesim/internal/storage/sqldb"
	"github.com/san-kum/swervesim/internal/storage/stream"
)

// Sink types accepted in sink.type.
const (
	TypeFile     = "file"
	TypeSQLite   = sqldb.SQLite
	TypePostgres = sqldb.Postgres
	TypeMySQL    = sqldb.MySQL
	TypeInflux   = "influx"
	TypeArchive  = "archive"
	TypeStream   = "stream"
	TypeMemory   = "memory"
	TypeDiscard  = "discard"
)

// DefaultSQLiteFile is used under sink.dir when the sqlite dsn is empty.
const DefaultSQLiteFile = "swervesim.db"

// NewSink builds the sinks named in cfg.Sink.Type. More than one is
// wrapped in a Fanout. On error every sink opened so far is closed.
func NewSink(ctx context.Context, cfg *config.Config, log zerolog.Logger) (dynamo.Sink, error) {
	types := cfg.SinkTypes()
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: no sink configured", dynamo.ErrInvalidConfig)
	}

	sinks := make([]dynamo.Sink, 0, len(types))
	for _, typ := range types {
		s, err := open(ctx, typ, cfg, log.With().Str("sink", typ).Logger())
		if err != nil {
			for _, opened := range sinks {
				err = errors.Join(err, opened.Close())
			}
			return nil, fmt.Errorf("sink %s: %w", typ, err)
		}
		sinks = append(sinks, s)
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewFanout(types, sinks), nil
}

func open(ctx context.Context, typ string, cfg *config.Config, log zerolog.Logger) (dynamo.Sink, error) {
	sc := cfg.Sink
	switch typ {
	case TypeFile:
		s := New(sc.Dir)
		if err := s.Init(); err != nil {
			return nil, err
		}
		return s, nil

	case TypeSQLite:
		dsn := sc.DSN
		if dsn == "" {
			dsn = filepath.Join(sc.Dir, DefaultSQLiteFile)
			if err := New(sc.Dir).Init(); err != nil {
				return nil, err
			}
		}
		return sqldb.Open(sqldb.SQLite, dsn, log)

	case TypePostgres, TypeMySQL:
		if sc.DSN == "" {
			return nil, fmt.Errorf("%w: %s needs sink.dsn", dynamo.ErrInvalidConfig, typ)
		}
		return sqldb.Open(typ, sc.DSN, log)

	case TypeInflux:
		backup := sc.Influx.BackupPath
		if backup == "" {
			backup = filepath.Join(sc.Dir, "influx_backup.lp.gz")
			if err := New(sc.Dir).Init(); err != nil {
				return nil, err
			}
		}
		return influx.Open(ctx, influx.Config{
			URL:        sc.Influx.URL,
			Token:      sc.Influx.Token,
			Org:        sc.Influx.Org,
			Bucket:     sc.Influx.Bucket,
			BackupPath: backup,
		}, log)

	case TypeArchive:
		return archive.New(sc.Dir), nil

	case TypeStream:
		h := stream.NewHub(sc.Stream.Every, log)
		if _, err := h.Listen(sc.Stream.Listen); err != nil {
			return nil, err
		}
		return h, nil

	case TypeMemory:
		return memory.New(), nil

	case TypeDiscard:
		return memory.Discard{}, nil
	}
	return nil, fmt.Errorf("%w: unknown sink type %q", dynamo.ErrInvalidConfig, typ)
}
