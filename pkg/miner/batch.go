package miner

import (
	"context"
	"encoding/binary"
	"sync/atomic"

	"github.com/manylov/create2-address-finder/internal/crypto"
	"github.com/manylov/create2-address-finder/pkg/types"
	"github.com/manylov/create2-address-finder/pkg/worker"
)

// SolutionBatch carries raw solutions produced by an alternate enumerator
// such as an OpenCL kernel. The device partitions its work by a random
// per-batch segment and a per-work-item index, so a solution is an 8-byte
// value rather than a 6-byte nonce; it fills the salt tail little-endian,
// after the 4-byte segment. A zero solution marks an empty slot.
type SolutionBatch struct {
	Segment   [4]byte
	Solutions []uint64
}

// BatchBackend enumerates candidate solutions in fixed-size device batches.
// workSize is the number of work items per batch; leadingZeroes and
// totalZeroes are the kernel-side match thresholds (minimum zero-byte
// counts). The returned channel closes when the backend stops.
type BatchBackend interface {
	Mine(ctx context.Context, params types.SearchParams, workSize uint32, leadingZeroes, totalZeroes int) (<-chan SolutionBatch, error)
}

// RunBatches consumes solution batches from an alternate backend and
// finishes scoring each solution with the same two-stage evaluator used by
// the CPU sweep. Device candidates passed only the coarse zero-byte
// threshold; the full prefix and checksum tests happen here, on a complete
// re-derivation of the address.
func (m *Miner) RunBatches(ctx context.Context, backend BatchBackend, workSize uint32, leadingZeroes, totalZeroes int) error {
	eval := worker.NewEvaluator(m.params)

	batches, err := backend.Mine(ctx, m.params, workSize, leadingZeroes, totalZeroes)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if err := m.scoreBatch(eval, batch); err != nil {
				return err
			}
		}
	}
}

// scoreBatch rescores every non-empty solution slot of one batch.
func (m *Miner) scoreBatch(eval *worker.Evaluator, batch SolutionBatch) error {
	var tail [crypto.TailLen]byte
	copy(tail[:4], batch.Segment[:])

	for _, solution := range batch.Solutions {
		if solution == 0 {
			continue
		}
		binary.LittleEndian.PutUint64(tail[4:], solution)
		atomic.AddInt64(&m.attempts, 1)

		addr := eval.Derive(tail[:])
		if !eval.MatchRaw(addr) {
			continue
		}
		checksummed, ok := eval.Confirm(addr)
		if !ok {
			continue
		}
		if err := m.record(eval.Record(tail[:], checksummed)); err != nil {
			return err
		}
	}
	return nil
}
