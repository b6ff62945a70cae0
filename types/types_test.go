package types

import "testing"

func TestAmountAdd(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Amount
		want     Amount
		overflow bool
	}{
		{"Zero", 0, 0, 0, false},
		{"Simple", 100, 200, 300, false},
		{"AtMax", MaxAmount - 1, 1, MaxAmount, false},
		{"Overflow", MaxAmount, 1, 0, true},
		{"OverflowBoth", MaxAmount, MaxAmount, MaxAmount - 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, overflow := tt.a.Add(tt.b)
			if overflow != tt.overflow {
				t.Fatalf("overflow: got %v, want %v", overflow, tt.overflow)
			}
			if !overflow && got != tt.want {
				t.Errorf("sum: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAmountSub(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Amount
		want      Amount
		underflow bool
	}{
		{"Simple", 300, 200, 100, false},
		{"ToZero", 200, 200, 0, false},
		{"Underflow", 100, 101, 0, true},
		{"FromZero", 0, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, underflow := tt.a.Sub(tt.b)
			if underflow != tt.underflow {
				t.Fatalf("underflow: got %v, want %v", underflow, tt.underflow)
			}
			if !underflow && got != tt.want {
				t.Errorf("diff: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTenantIDValid(t *testing.T) {
	if TenantID(0).Valid() {
		t.Error("zero tenant id must be invalid")
	}
	if !TenantID(1).Valid() {
		t.Error("nonzero tenant id must be valid")
	}
}

func TestTokenIDValid(t *testing.T) {
	if TokenID("").Valid() {
		t.Error("empty token id must be invalid")
	}
	if !TokenID("gold").Valid() {
		t.Error("non-empty token id must be valid")
	}
}
