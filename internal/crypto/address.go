package crypto

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// CREATE2 input layout: 0xff (1) + factory (20) + salt (32) + initCodeHash (32) = 85
	Create2ControlByte = 0xff
	Create2HeaderLen   = 1 + 20 + 20 + 6 // control + factory + caller + random segment
	Create2SaltLen     = 32
	Create2InputLen    = 1 + 20 + Create2SaltLen + 32

	// Salt layout: caller (20) + random segment (6) + nonce (6) = 32
	SegmentLen = 6
	NonceLen   = 6
	TailLen    = SegmentLen + NonceLen
)

// Keccak256 calculates the keccak256 hash of the input bytes.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		_, _ = h.Write(b)
	}
	return h.Sum(nil)
}

// ToChecksumAddress converts a 20-byte address to an EIP-55 checksummed string.
// Only call when you need the string (e.g. for result output); the hot path
// compares raw bytes first.
func ToChecksumAddress(addr20 []byte) string {
	if len(addr20) != 20 {
		panic(errors.New("address must be 20 bytes"))
	}
	hexLower := hex.EncodeToString(addr20) // lowercase
	hash := Keccak256([]byte(hexLower))
	var out strings.Builder
	out.Grow(2 + 40)
	out.WriteString("0x")
	for i := 0; i < len(hexLower); i++ {
		c := hexLower[i]
		if c >= '0' && c <= '9' {
			out.WriteByte(c)
			continue
		}
		// each nibble of the hash decides the case of the matching hex char
		n := (hash[i/2] >> uint(4*(1-i%2))) & 0xF
		if n >= 8 {
			out.WriteByte(c - 'a' + 'A')
		} else {
			out.WriteByte(c)
		}
	}
	return out.String()
}

// ToFixed20 copies a byte slice into a fixed 20-byte array. The caller must
// have validated the length; a mismatch is a contract violation.
func ToFixed20(b []byte) [20]byte {
	if len(b) != 20 {
		panic(errors.New("expected 20 bytes"))
	}
	var out [20]byte
	copy(out[:], b)
	return out
}

// ToFixed32 copies a byte slice into a fixed 32-byte array. The caller must
// have validated the length; a mismatch is a contract violation.
func ToFixed32(b []byte) [32]byte {
	if len(b) != 32 {
		panic(errors.New("expected 32 bytes"))
	}
	var out [32]byte
	copy(out[:], b)
	return out
}

// PutUint48 writes the low 48 bits of v into b as a big-endian 6-byte value.
func PutUint48(b []byte, v uint64) {
	_ = b[5]
	b[0] = byte(v >> 40)
	b[1] = byte(v >> 32)
	b[2] = byte(v >> 24)
	b[3] = byte(v >> 16)
	b[4] = byte(v >> 8)
	b[5] = byte(v)
}

// Uint48 reads a big-endian 6-byte value from b.
func Uint48(b []byte) uint64 {
	_ = b[5]
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

// HexToBytes decodes a hex string (with or without 0x) to bytes.
func HexToBytes(hexStr string) ([]byte, error) {
	h := strings.TrimSpace(hexStr)
	if len(h) >= 2 && (h[0:2] == "0x" || h[0:2] == "0X") {
		h = h[2:]
	}
	if len(h)%2 != 0 {
		return nil, errors.New("hex string must have even length")
	}
	return hex.DecodeString(h)
}
