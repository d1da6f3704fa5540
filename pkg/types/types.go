package types

// SearchParams holds the validated inputs for one search run. Constructed once
// by the config boundary and immutable for the process lifetime.
type SearchParams struct {
	Factory      [20]byte // contract that will execute CREATE2
	Caller       [20]byte // caller of the factory, embedded in the salt
	InitCodeHash [32]byte // keccak256 of the contract initialization code

	// TargetPrefix is the literal target string including the 0x marker.
	// Case is significant for the checksum-exact test.
	TargetPrefix string
	// TargetBytes is the decoded form of the target's hex digits, used for
	// the raw byte prefix test.
	TargetBytes []byte
}

// MatchRecord is a confirmed match: a salt whose derived address passed both
// the raw prefix test and the checksum-exact prefix test.
type MatchRecord struct {
	Salt      string   // 0x + 64 hex chars: caller ++ random segment ++ nonce
	Address   string   // EIP-55 checksummed, 0x-prefixed
	SaltBytes [32]byte // raw salt for re-derivation
}

// Line renders the record in the durable output format.
func (r MatchRecord) Line() string {
	return r.Salt + " => " + r.Address
}
