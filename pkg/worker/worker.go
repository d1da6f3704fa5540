// Package worker holds the per-candidate evaluation logic: the incremental
// hashing of salt candidates and the two-stage prefix test. The evaluator is
// deliberately agnostic to who enumerated the candidate, so the CPU sweep and
// a batch backend can share it unchanged.
package worker

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"sync/atomic"

	keccak "github.com/erigontech/fastkeccak"

	"github.com/manylov/create2-address-finder/internal/crypto"
	"github.com/manylov/create2-address-finder/pkg/types"
)

// flushInterval bounds how many candidates are evaluated between attempt
// counter flushes and cancellation checks.
const flushInterval = 1 << 16

// Evaluator applies the two-stage match test and formats confirmed matches.
// Stage 1 compares raw address bytes against the decoded target; stage 2 is
// only paid by stage-1 survivors and compares the checksummed string against
// the literal target, case included.
type Evaluator struct {
	params types.SearchParams
}

// NewEvaluator creates an evaluator for validated search parameters.
func NewEvaluator(params types.SearchParams) *Evaluator {
	return &Evaluator{params: params}
}

// MatchRaw reports whether the address's leading bytes equal the decoded
// target. Byte equality already discards hex casing.
func (e *Evaluator) MatchRaw(addr [20]byte) bool {
	return bytes.HasPrefix(addr[:], e.params.TargetBytes)
}

// Confirm computes the checksummed form of the address and applies the
// case-sensitive prefix test against the literal target string.
func (e *Evaluator) Confirm(addr [20]byte) (string, bool) {
	checksummed := crypto.ToChecksumAddress(addr[:])
	return checksummed, strings.HasPrefix(checksummed, e.params.TargetPrefix)
}

// Derive computes the CREATE2 address for a full 12-byte salt tail (random
// segment ++ nonce) by hashing the whole 85-byte input. Used when rescoring
// candidates from enumerators that did not share the header midstate.
func (e *Evaluator) Derive(tail []byte) [20]byte {
	if len(tail) != crypto.TailLen {
		panic("salt tail must be 12 bytes")
	}
	var input [crypto.Create2InputLen]byte
	input[0] = crypto.Create2ControlByte
	copy(input[1:21], e.params.Factory[:])
	copy(input[21:41], e.params.Caller[:])
	copy(input[41:53], tail)
	copy(input[53:85], e.params.InitCodeHash[:])
	sum := keccak.Sum256(input[:])
	var addr [20]byte
	copy(addr[:], sum[12:32])
	return addr
}

// Record builds the MatchRecord for a confirmed salt tail.
func (e *Evaluator) Record(tail []byte, checksummed string) types.MatchRecord {
	var salt [32]byte
	copy(salt[:20], e.params.Caller[:])
	copy(salt[20:], tail)
	return types.MatchRecord{
		Salt:      "0x" + hex.EncodeToString(salt[:]),
		Address:   checksummed,
		SaltBytes: salt,
	}
}

// Worker sweeps partitions of the nonce range against one header midstate.
// Each worker holds an independent copy of the midstate; nothing here is
// shared mutable state except the attempt counter.
type Worker struct {
	eval    *Evaluator
	header  keccak.Hasher // partially absorbed header, copied per candidate
	segment [crypto.SegmentLen]byte
	footer  [32]byte

	attempts *int64
	found    func(types.MatchRecord) error
}

// NewWorker creates a worker for the current outer iteration. The header
// midstate is passed by value: copying it is the snapshot operation.
func NewWorker(eval *Evaluator, header keccak.Hasher, segment [crypto.SegmentLen]byte, attempts *int64, found func(types.MatchRecord) error) *Worker {
	return &Worker{
		eval:     eval,
		header:   header,
		segment:  segment,
		footer:   eval.params.InitCodeHash,
		attempts: attempts,
		found:    found,
	}
}

// Sweep evaluates every nonce in [from, to). Matches are handed to the found
// callback; its error aborts the sweep. Cancellation is observed between
// evaluation blocks, not per candidate.
func (w *Worker) Sweep(ctx context.Context, from, to uint64) error {
	var tail [crypto.TailLen]byte
	copy(tail[:crypto.SegmentLen], w.segment[:])

	var local int64
	defer func() {
		atomic.AddInt64(w.attempts, local)
	}()

	for nonce := from; nonce < to; nonce++ {
		if local >= flushInterval {
			atomic.AddInt64(w.attempts, local)
			local = 0
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		local++

		crypto.PutUint48(tail[crypto.SegmentLen:], nonce)

		// clone the partially-hashed state, then finish with the
		// 6-byte nonce and the 32-byte footer
		h := w.header
		h.Write(tail[crypto.SegmentLen:])
		h.Write(w.footer[:])
		sum := h.Sum256()

		var addr [20]byte
		copy(addr[:], sum[12:32])

		if !w.eval.MatchRaw(addr) {
			continue
		}
		checksummed, ok := w.eval.Confirm(addr)
		if !ok {
			continue
		}
		if err := w.found(w.eval.Record(tail[:], checksummed)); err != nil {
			return err
		}
	}
	return nil
}
