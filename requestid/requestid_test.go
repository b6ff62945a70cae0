package requestid

import (
	"errors"
	"math/big"
	"testing"

	"github.com/xraph/treasury/types"
)

func maxSequence() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), SequenceBits)
	return max.Sub(max, big.NewInt(1))
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		sequence *big.Int
		tenant   types.TenantID
	}{
		{"ZeroZero", big.NewInt(0), 0},
		{"Small", big.NewInt(42), 7},
		{"MaxTenant", big.NewInt(1), 0xFFFFFFFF},
		{"MaxSequence", maxSequence(), 123},
		{"MaxBoth", maxSequence(), 0xFFFFFFFF},
		{"HighBitSequence", new(big.Int).Lsh(big.NewInt(1), 223), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Encode(tt.sequence, tt.tenant)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if got := DecodeTenant(id); got != tt.tenant {
				t.Errorf("tenant: got %d, want %d", got, tt.tenant)
			}
			if got := DecodeSequence(id); got.Cmp(tt.sequence) != 0 {
				t.Errorf("sequence: got %s, want %s", got, tt.sequence)
			}
		})
	}
}

func TestEncodeSequenceTooLarge(t *testing.T) {
	over := new(big.Int).Lsh(big.NewInt(1), SequenceBits)
	if _, err := Encode(over, 1); !errors.Is(err, ErrSequenceTooLarge) {
		t.Errorf("2^224: got %v, want ErrSequenceTooLarge", err)
	}
	if _, err := Encode(big.NewInt(-1), 1); !errors.Is(err, ErrSequenceTooLarge) {
		t.Errorf("negative: got %v, want ErrSequenceTooLarge", err)
	}
}

// The packed fields never overlap, so XOR of the shifted tenant and the
// sequence equals the concatenated layout Encode produces.
func TestXorEquivalence(t *testing.T) {
	sequence := new(big.Int).SetUint64(0xDEADBEEFCAFE)
	tenant := types.TenantID(0xA5A5A5A5)

	id, err := Encode(sequence, tenant)
	if err != nil {
		t.Fatal(err)
	}

	shifted := new(big.Int).Lsh(new(big.Int).SetUint64(uint64(tenant)), SequenceBits)
	xored := new(big.Int).Xor(shifted, sequence)

	packed := new(big.Int).SetBytes(id[:])
	if packed.Cmp(xored) != 0 {
		t.Errorf("packed %s != xor form %s", packed, xored)
	}
}

func TestParseString(t *testing.T) {
	id, err := Encode(big.NewInt(99), 4)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Errorf("parse round trip: got %s, want %s", parsed, id)
	}

	if _, err := Parse("zz"); err == nil {
		t.Error("malformed hex must fail to parse")
	}
}
