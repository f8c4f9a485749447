// Package archive writes tick records as zstd-compressed JSON lines, one
// file per run.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/san-kum/swervesim/internal/dynamo"
)

const Ext = ".jsonl.zst"

type Sink struct {
	dir string

	mu     sync.Mutex
	path   string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
	nextID int64
}

func New(dir string) *Sink {
	return &Sink{dir: dir}
}

// Path returns the file for runID.
func Path(dir, runID string) string {
	return filepath.Join(dir, runID+Ext)
}

func (s *Sink) StartRun(_ context.Context, info dynamo.RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(info.ID)
}

func (s *Sink) FinishRun(context.Context, dynamo.RunSummary) error {
	return nil
}

func (s *Sink) openLocked(runID string) error {
	if err := s.closeLocked(); err != nil {
		return err
	}
	if runID == "" {
		return fmt.Errorf("%w: run id is empty", dynamo.ErrInvalidConfig)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	path := Path(s.dir, runID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	s.path, s.f, s.enc, s.nextID = path, f, enc, 1
	s.w = bufio.NewWriterSize(enc, 128*1024)
	return nil
}

// Persist appends one line. The line is complete in the encoder before
// Persist returns.
func (s *Sink) Persist(ctx context.Context, rec dynamo.TickRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		if err := s.openLocked(rec.RunID); err != nil {
			return 0, err
		}
	}
	b = append(b, '\n')
	if _, err := s.w.Write(b); err != nil {
		return 0, err
	}
	if err := s.w.Flush(); err != nil {
		return 0, err
	}

	id := s.nextID
	s.nextID++
	return id, nil
}

// File is the path currently being written, empty before the first run.
func (s *Sink) File() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Sink) closeLocked() error {
	if s.f == nil {
		return nil
	}
	var errs []error
	if s.w != nil {
		errs = append(errs, s.w.Flush())
	}
	errs = append(errs, s.enc.Close(), s.f.Close())
	s.f, s.enc, s.w = nil, nil, nil
	return errors.Join(errs...)
}

// Read decodes every record in an archive file.
func Read(path string) ([]dynamo.TickRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []dynamo.TickRecord
	jd := json.NewDecoder(dec)
	for {
		var rec dynamo.TickRecord
		if err := jd.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("%s record %d: %w", path, len(out), err)
		}
		out = append(out, rec)
	}
}
