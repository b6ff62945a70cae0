// Package requestid packs a tenant id and a sequence number into an
// opaque 256-bit request identifier.
//
// The identifier correlates an externally-authorized operation with a
// treasury call. The high 32 bits carry the tenant id, the low 224 bits
// the sequence. The ranges never overlap, so combining them with XOR is
// plain bitwise concatenation; nothing here is cryptographic, and the
// packing is fully reversible.
package requestid

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/xraph/treasury/types"
)

// SequenceBits is the width of the sequence field.
const SequenceBits = 224

// ErrSequenceTooLarge is returned when a sequence needs more than 224 bits.
var ErrSequenceTooLarge = errors.New("treasury/requestid: sequence exceeds 224 bits")

// ID is a 256-bit request identifier in big-endian byte order:
// bytes 0..3 hold the tenant id, bytes 4..31 the sequence.
type ID [32]byte

// Encode packs sequence and tenant into an ID. It fails with
// ErrSequenceTooLarge when the sequence does not fit in 224 bits.
// Negative sequences are rejected the same way; they have no packed form.
func Encode(sequence *big.Int, tenant types.TenantID) (ID, error) {
	var id ID
	if sequence.Sign() < 0 || sequence.BitLen() > SequenceBits {
		return id, ErrSequenceTooLarge
	}
	binary.BigEndian.PutUint32(id[:4], uint32(tenant))
	sequence.FillBytes(id[4:])
	return id, nil
}

// DecodeTenant extracts the tenant id from bits 224..255.
func DecodeTenant(id ID) types.TenantID {
	return types.TenantID(binary.BigEndian.Uint32(id[:4]))
}

// DecodeSequence extracts the sequence from the low 224 bits.
func DecodeSequence(id ID) *big.Int {
	return new(big.Int).SetBytes(id[4:])
}

// String returns the identifier as 64 lowercase hex digits.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Parse reads an ID back from its hex form.
func Parse(s string) (ID, error) {
	var id ID
	if len(s) != hex.EncodedLen(len(id)) {
		return id, errors.New("treasury/requestid: malformed id")
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, errors.New("treasury/requestid: malformed id")
	}
	return id, nil
}
