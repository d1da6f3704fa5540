// Package miner coordinates the search: it owns the outer loop that draws a
// fresh random salt segment, primes the header midstate, and fans the nonce
// range out across a fixed worker pool.
package miner

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	keccak "github.com/erigontech/fastkeccak"
	"golang.org/x/sync/errgroup"

	"github.com/manylov/create2-address-finder/internal/crypto"
	"github.com/manylov/create2-address-finder/internal/logger"
	"github.com/manylov/create2-address-finder/pkg/types"
	"github.com/manylov/create2-address-finder/pkg/worker"
)

const (
	// maxNonce bounds the enumerable nonce range at 2^48; one outer
	// iteration sweeps [0, maxNonce) before drawing a new segment.
	maxNonce = uint64(1) << 48

	// sweepChunk is the number of nonces a worker claims per cursor
	// advance.
	sweepChunk = uint64(1) << 22
)

// Recorder persists confirmed matches. Implemented by sink.Sink.
type Recorder interface {
	Record(types.MatchRecord) error
}

// Miner provides search coordination across a worker pool.
type Miner struct {
	params      types.SearchParams
	workers     int
	sink        Recorder
	logger      *logger.Logger
	logInterval time.Duration

	attempts int64
	found    int64
	space    atomic.Value // string: current search space for progress lines
}

// New creates a miner. If workers is not positive it defaults to the number
// of CPUs.
func New(params types.SearchParams, workers int, sink Recorder, log *logger.Logger, logInterval time.Duration) *Miner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Miner{
		params:      params,
		workers:     workers,
		sink:        sink,
		logger:      log,
		logInterval: logInterval,
	}
}

// Attempts returns the number of candidates evaluated so far.
func (m *Miner) Attempts() int64 {
	return atomic.LoadInt64(&m.attempts)
}

// Found returns the number of confirmed matches so far.
func (m *Miner) Found() int64 {
	return atomic.LoadInt64(&m.found)
}

// Run executes outer iterations until the context is cancelled. Each
// iteration draws a fresh 6-byte random segment and exhausts the 2^48 nonce
// range before advancing; in practice the process runs indefinitely on one
// segment. Cancellation is a graceful shutdown and returns nil; sink
// failures are fatal and returned.
func (m *Miner) Run(ctx context.Context) error {
	eval := worker.NewEvaluator(m.params)
	start := time.Now()

	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()
	if m.logInterval > 0 {
		go m.progressLoop(progressCtx, start)
	}

	for {
		if err := m.sweepSegment(ctx, eval); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
	}
}

// sweepSegment runs one outer iteration: random segment, header midstate,
// parallel sweep of the full nonce range.
func (m *Miner) sweepSegment(ctx context.Context, eval *worker.Evaluator) error {
	var segment [crypto.SegmentLen]byte
	if _, err := rand.Read(segment[:]); err != nil {
		return fmt.Errorf("draw salt segment: %w", err)
	}
	m.space.Store(hex.EncodeToString(segment[:]) + "xxxxxxxxxxxx")

	// header: 0xff ++ factory ++ caller ++ segment (47 bytes), absorbed
	// exactly once; workers copy the midstate per candidate
	var header [crypto.Create2HeaderLen]byte
	header[0] = crypto.Create2ControlByte
	copy(header[1:21], m.params.Factory[:])
	copy(header[21:41], m.params.Caller[:])
	copy(header[41:47], segment[:])

	var mid keccak.Hasher
	mid.Write(header[:])

	var cursor uint64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m.workers; i++ {
		g.Go(func() error {
			w := worker.NewWorker(eval, mid, segment, &m.attempts, m.record)
			for {
				from := atomic.AddUint64(&cursor, sweepChunk) - sweepChunk
				if from >= maxNonce {
					return nil
				}
				to := from + sweepChunk
				if to > maxNonce {
					to = maxNonce
				}
				if err := w.Sweep(gctx, from, to); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}

// record forwards a confirmed match to the sink. A sink failure means the
// match cannot be reported durably, so it aborts the search.
func (m *Miner) record(rec types.MatchRecord) error {
	if err := m.sink.Record(rec); err != nil {
		return err
	}
	atomic.AddInt64(&m.found, 1)
	return nil
}

// progressLoop logs search progress at regular intervals.
func (m *Miner) progressLoop(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(m.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			attempts := m.Attempts()
			elapsed := time.Since(start)

			rate := 0.0
			if elapsed.Seconds() > 0 {
				rate = float64(attempts) / elapsed.Seconds()
			}

			space, _ := m.space.Load().(string)
			m.logger.Printf("Progress: %d attempts, %.2f hashes/sec, search space: %s, found: %d",
				attempts, rate, space, m.Found())
		case <-ctx.Done():
			return
		}
	}
}
