// Package sink serializes confirmed matches to a shared append-only file.
//
// The file may be shared with other concurrent runs of this tool, so every
// append takes an exclusive advisory lock scoped to exactly one record. An
// in-process mutex provides the same exclusion between worker goroutines,
// since the advisory lock is per file handle, not per goroutine.
package sink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/manylov/create2-address-finder/pkg/types"
)

// Sink appends confirmed matches to a durable store and echoes them to the
// operator-visible output stream.
type Sink struct {
	mu   sync.Mutex
	file *os.File
	flk  *flock.Flock
	echo io.Writer
}

// Open creates (if necessary) and opens the append-only store. Failure here
// is fatal to the caller: without the store no match can be reported durably.
func Open(path string, echo io.Writer) (*Sink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open results file %s: %w", path, err)
	}
	return &Sink{
		file: file,
		flk:  flock.New(path),
		echo: echo,
	}, nil
}

// Record appends one match line to the store and echoes it. The advisory
// lock is held for the duration of the single write and released on every
// exit path.
func (s *Sink) Record(rec types.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flk.Lock(); err != nil {
		return fmt.Errorf("lock results file %s: %w", s.file.Name(), err)
	}
	defer s.flk.Unlock()

	if _, err := fmt.Fprintln(s.file, rec.Line()); err != nil {
		return fmt.Errorf("append to results file %s: %w", s.file.Name(), err)
	}
	if s.echo != nil {
		fmt.Fprintln(s.echo, rec.Line())
	}
	return nil
}

// Close closes the underlying file.
func (s *Sink) Close() error {
	return s.file.Close()
}
