package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/manylov/create2-address-finder/internal/crypto"
	"github.com/manylov/create2-address-finder/pkg/types"
)

// GPUDeviceNone is the sentinel device value meaning no hardware acceleration.
const GPUDeviceNone = 255

// Errors
var (
	ErrNoFactoryAddress = errors.New("must specify --factory")
	ErrNoCallingAddress = errors.New("must specify --caller")
	ErrNoInitCodeHash   = errors.New("must specify --init-code-hash")
	ErrNoTarget         = errors.New("must specify --target")
	ErrTargetMarker     = errors.New("target must start with 0x")
	ErrTargetOddLength  = errors.New("target must contain an even number of hex digits")
	ErrTargetTooLong    = errors.New("target longer than 40 hex digits can never match")
	ErrTargetNotHex     = errors.New("target contains non-hex characters")
)

// Config holds the application configuration.
type Config struct {
	FactoryAddress string
	CallingAddress string
	InitCodeHash   string
	Target         string
	Workers        int
	OutputFile     string
	GPUDevice      int
	LeadingZeroes  int // batch backend threshold: minimum leading zero bytes
	TotalZeroes    int // batch backend threshold: minimum total zero bytes
	LogInterval    int // logging interval in seconds
	Verbose        bool
}

// NewConfig creates a new configuration with default values.
func NewConfig() *Config {
	return &Config{
		Workers:       runtime.NumCPU(),
		OutputFile:    "efficient_addresses.txt",
		GPUDevice:     GPUDeviceNone,
		LeadingZeroes: 3,
		TotalZeroes:   5,
		LogInterval:   5,
	}
}

// Validate checks that all required values were provided.
func (c *Config) Validate() error {
	if c.FactoryAddress == "" {
		return ErrNoFactoryAddress
	}
	if c.CallingAddress == "" {
		return ErrNoCallingAddress
	}
	if c.InitCodeHash == "" {
		return ErrNoInitCodeHash
	}
	if c.Target == "" {
		return ErrNoTarget
	}
	return nil
}

// UseGPU reports whether a hardware-accelerated backend was requested.
func (c *Config) UseGPU() bool {
	return c.GPUDevice != GPUDeviceNone
}

// Params decodes and validates the raw inputs into SearchParams. All length
// and format errors are caught here, before the search begins.
func (c *Config) Params() (types.SearchParams, error) {
	var params types.SearchParams

	factory, err := addressBytes(c.FactoryAddress)
	if err != nil {
		return params, fmt.Errorf("factory address: %w", err)
	}
	caller, err := addressBytes(c.CallingAddress)
	if err != nil {
		return params, fmt.Errorf("calling address: %w", err)
	}
	initHash, err := hashBytes(c.InitCodeHash)
	if err != nil {
		return params, fmt.Errorf("init code hash: %w", err)
	}
	targetBytes, err := decodeTarget(c.Target)
	if err != nil {
		return params, err
	}

	params.Factory = factory
	params.Caller = caller
	params.InitCodeHash = initHash
	params.TargetPrefix = c.Target
	params.TargetBytes = targetBytes
	return params, nil
}

// addressBytes decodes a 20-byte address, with or without the 0x marker.
func addressBytes(s string) ([20]byte, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return [20]byte{}, fmt.Errorf("%q is not a valid 20-byte hex address", s)
	}
	return [20]byte(common.HexToAddress(s)), nil
}

// hashBytes decodes a 32-byte hash, with or without the 0x marker.
func hashBytes(s string) ([32]byte, error) {
	b, err := crypto.HexToBytes(s)
	if err != nil {
		return [32]byte{}, err
	}
	if len(b) != 32 {
		return [32]byte{}, fmt.Errorf("got %d bytes, want 32", len(b))
	}
	return crypto.ToFixed32(b), nil
}

// decodeTarget validates the literal target string and decodes its hex digits
// for the raw prefix test. An odd digit count is rejected here rather than
// surfacing as a decode failure inside the match stage.
func decodeTarget(target string) ([]byte, error) {
	if !strings.HasPrefix(target, "0x") {
		return nil, ErrTargetMarker
	}
	digits := target[2:]
	if len(digits)%2 != 0 {
		return nil, ErrTargetOddLength
	}
	if len(digits) > 40 {
		return nil, ErrTargetTooLong
	}
	b, err := hex.DecodeString(strings.ToLower(digits))
	if err != nil {
		return nil, ErrTargetNotHex
	}
	return b, nil
}
