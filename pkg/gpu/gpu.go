// Package gpu is the boundary to the hardware-accelerated batch backend.
// The OpenCL kernel is an external collaborator; this build carries only the
// device-selection surface and reports the backend as unavailable.
package gpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/manylov/create2-address-finder/pkg/miner"
	"github.com/manylov/create2-address-finder/pkg/types"
)

// DefaultWorkSize is the per-batch work size handed to the kernel.
const DefaultWorkSize = 0x4000000

// ErrUnsupported is returned when OpenCL support is not compiled in.
var ErrUnsupported = errors.New("OpenCL support not compiled")

// Backend drives one OpenCL device as a miner.BatchBackend.
type Backend struct {
	device int
}

// NewBackend selects an OpenCL device by index.
func NewBackend(device int) (*Backend, error) {
	if device < 0 || device > 255 {
		return nil, fmt.Errorf("invalid gpu device %d", device)
	}
	return &Backend{device: device}, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return fmt.Sprintf("OpenCL device %d (disabled)", b.device)
}

// Mine returns ErrUnsupported; the kernel is not part of this build.
func (b *Backend) Mine(ctx context.Context, params types.SearchParams, workSize uint32, leadingZeroes, totalZeroes int) (<-chan miner.SolutionBatch, error) {
	return nil, fmt.Errorf("gpu device %d: %w", b.device, ErrUnsupported)
}

// IsAvailable reports whether a hardware backend can run in this build.
func IsAvailable() bool {
	return false
}
