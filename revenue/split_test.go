package revenue

import (
	"errors"
	"testing"

	"github.com/xraph/treasury/types"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name         string
		gross        types.Amount
		fee          Fee
		wantTenant   types.Amount
		wantOperator types.Amount
	}{
		{"FivePercent", 1000, MustFee(5), 950, 50},
		{"Unset", 1000, NoFee, 1000, 0},
		{"ZeroPercent", 1000, MustFee(0), 1000, 0},
		{"FullFee", 1000, MustFee(100), 0, 1000},
		{"FloorsOperatorShare", 999, MustFee(5), 950, 49},
		{"SmallGross", 1, MustFee(5), 1, 0},
		{"ZeroGross", 0, MustFee(30), 0, 0},
		{"LargeGross", types.MaxAmount, MustFee(7), types.MaxAmount - 1291272085159668613, 1291272085159668613},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant, operator := Split(tt.gross, tt.fee)
			if tenant != tt.wantTenant {
				t.Errorf("tenant share: got %d, want %d", tenant, tt.wantTenant)
			}
			if operator != tt.wantOperator {
				t.Errorf("operator share: got %d, want %d", operator, tt.wantOperator)
			}
			if tenant+operator != tt.gross {
				t.Errorf("shares must sum to gross: %d + %d != %d", tenant, operator, tt.gross)
			}
		})
	}
}

func TestFeeOf(t *testing.T) {
	if _, err := FeeOf(101); !errors.Is(err, ErrInvalidPercent) {
		t.Errorf("percent 101: got %v, want ErrInvalidPercent", err)
	}

	f, err := FeeOf(0)
	if err != nil {
		t.Fatalf("percent 0: %v", err)
	}
	if !f.Configured() {
		t.Error("a configured 0%% fee must be distinguishable from no fee")
	}
	if NoFee.Configured() {
		t.Error("NoFee must not report configured")
	}
}
