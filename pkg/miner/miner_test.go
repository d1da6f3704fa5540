package miner

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/manylov/create2-address-finder/internal/crypto"
	"github.com/manylov/create2-address-finder/internal/logger"
	"github.com/manylov/create2-address-finder/pkg/types"
)

// zeroParams is the end-to-end scenario: null factory and caller, init code
// hash of empty bytes, target 0x00.
func zeroParams(target string) types.SearchParams {
	digits := strings.TrimPrefix(target, "0x")
	targetBytes, _ := hex.DecodeString(strings.ToLower(digits))
	return types.SearchParams{
		InitCodeHash: crypto.ToFixed32(crypto.Keccak256()),
		TargetPrefix: target,
		TargetBytes:  targetBytes,
	}
}

// captureRecorder collects records and cancels the search once it has enough.
type captureRecorder struct {
	mu      sync.Mutex
	records []types.MatchRecord
	limit   int
	cancel  context.CancelFunc
}

func (c *captureRecorder) Record(rec types.MatchRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	if len(c.records) >= c.limit {
		c.cancel()
	}
	return nil
}

func (c *captureRecorder) all() []types.MatchRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.MatchRecord(nil), c.records...)
}

type failingRecorder struct{ err error }

func (f *failingRecorder) Record(types.MatchRecord) error { return f.err }

func reDerive(params types.SearchParams, salt [32]byte) string {
	return gethcrypto.CreateAddress2(common.Address(params.Factory), salt, params.InitCodeHash[:]).Hex()
}

func TestRunFindsAndRoundTrips(t *testing.T) {
	params := zeroParams("0x00")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rec := &captureRecorder{limit: 1, cancel: cancel}
	m := New(params, 4, rec, logger.New(), 0)

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	records := rec.all()
	if len(records) == 0 {
		t.Fatal("no match found within bounded attempts")
	}
	if m.Found() < 1 {
		t.Errorf("Found() = %d", m.Found())
	}
	if m.Attempts() < 1 {
		t.Errorf("Attempts() = %d", m.Attempts())
	}

	first := records[0]
	if !strings.HasPrefix(first.Address, "0x00") {
		t.Errorf("address %s does not start with 0x00", first.Address)
	}

	// full round trip: recorded salt must re-derive to the recorded address
	saltBytes, err := hex.DecodeString(strings.TrimPrefix(first.Salt, "0x"))
	if err != nil || len(saltBytes) != 32 {
		t.Fatalf("malformed salt %q: %v", first.Salt, err)
	}
	salt := crypto.ToFixed32(saltBytes)
	if salt != first.SaltBytes {
		t.Errorf("Salt string %s does not match SaltBytes %x", first.Salt, first.SaltBytes)
	}
	if got := reDerive(params, salt); got != first.Address {
		t.Errorf("salt re-derives to %s, record says %s", got, first.Address)
	}
	// the caller segment is embedded in the salt
	if !strings.HasPrefix(first.Salt, "0x"+hex.EncodeToString(params.Caller[:])) {
		t.Errorf("salt %s does not embed the caller address", first.Salt)
	}
}

func TestRunSurfacesSinkFailure(t *testing.T) {
	params := zeroParams("0x") // empty target matches immediately

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sinkErr := errors.New("disk full")
	m := New(params, 2, &failingRecorder{err: sinkErr}, logger.New(), 0)

	if err := m.Run(ctx); !errors.Is(err, sinkErr) {
		t.Errorf("Run() error = %v, want %v", err, sinkErr)
	}
}

func TestRunGracefulOnCancel(t *testing.T) {
	// an unmatchable-in-time target keeps the sweep busy until cancel
	params := zeroParams("0x" + strings.Repeat("00", 8))

	ctx, cancel := context.WithCancel(context.Background())
	rec := &captureRecorder{limit: 1, cancel: func() {}}
	m := New(params, 2, rec, logger.New(), 0)

	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	if err := m.Run(ctx); err != nil {
		t.Errorf("Run() after cancel = %v, want nil", err)
	}
}

// fakeBackend emits a fixed set of solution batches, standing in for the
// OpenCL enumerator.
type fakeBackend struct {
	batches []SolutionBatch
}

func (f *fakeBackend) Mine(ctx context.Context, params types.SearchParams, workSize uint32, leadingZeroes, totalZeroes int) (<-chan SolutionBatch, error) {
	ch := make(chan SolutionBatch, len(f.batches))
	for _, b := range f.batches {
		ch <- b
	}
	close(ch)
	return ch, nil
}

func TestRunBatchesRescoresSolutions(t *testing.T) {
	params := zeroParams("0x00")
	segment := [4]byte{0xde, 0xad, 0xbe, 0xef}

	// find a solution the kernel could plausibly have returned: one whose
	// derived address starts with a zero byte
	var solution uint64
	var tail [crypto.TailLen]byte
	copy(tail[:4], segment[:])
	for s := uint64(1); s < 1<<20; s++ {
		binary.LittleEndian.PutUint64(tail[4:], s)
		var salt [32]byte
		copy(salt[:20], params.Caller[:])
		copy(salt[20:], tail[:])
		addr := gethcrypto.CreateAddress2(common.Address(params.Factory), salt, params.InitCodeHash[:])
		if addr[0] == 0x00 {
			solution = s
			break
		}
	}
	if solution == 0 {
		t.Fatal("no qualifying solution in search window")
	}

	backend := &fakeBackend{batches: []SolutionBatch{
		{Segment: segment, Solutions: []uint64{0, solution}}, // zero slot must be skipped
	}}

	rec := &captureRecorder{limit: 2, cancel: func() {}}
	m := New(params, 1, rec, logger.New(), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := m.RunBatches(ctx, backend, 64, 3, 5); err != nil {
		t.Fatalf("RunBatches() error = %v", err)
	}

	records := rec.all()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (zero slot skipped)", len(records))
	}
	got := records[0]
	if !strings.HasPrefix(got.Address, "0x00") {
		t.Errorf("address %s does not start with 0x00", got.Address)
	}
	if want := reDerive(params, got.SaltBytes); want != got.Address {
		t.Errorf("salt re-derives to %s, record says %s", want, got.Address)
	}
	// little-endian solution encoding after the 4-byte segment
	if gotSol := binary.LittleEndian.Uint64(got.SaltBytes[24:32]); gotSol != solution {
		t.Errorf("salt embeds solution %d, want %d", gotSol, solution)
	}
}

func TestRunBatchesPropagatesBackendError(t *testing.T) {
	params := zeroParams("0x00")
	m := New(params, 1, &captureRecorder{limit: 1, cancel: func() {}}, logger.New(), 0)

	wantErr := errors.New("no device")
	backend := &errBackend{err: wantErr}
	if err := m.RunBatches(context.Background(), backend, 64, 3, 5); !errors.Is(err, wantErr) {
		t.Errorf("RunBatches() error = %v, want %v", err, wantErr)
	}
}

type errBackend struct{ err error }

func (e *errBackend) Mine(context.Context, types.SearchParams, uint32, int, int) (<-chan SolutionBatch, error) {
	return nil, e.err
}
