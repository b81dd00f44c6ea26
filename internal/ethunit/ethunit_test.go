package ethunit

import (
	"math/big"
	"testing"
)

func TestFormatWei(t *testing.T) {
	ether := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	tests := []struct {
		name     string
		wei      *big.Int
		expected string
	}{
		{"nil", nil, "0.0"},
		{"zero", big.NewInt(0), "0.0"},
		{"one ether", new(big.Int).Set(ether), "1.0"},
		{"four ether", new(big.Int).Mul(ether, big.NewInt(4)), "4.0"},
		{"quarter ether", new(big.Int).Div(ether, big.NewInt(4)), "0.25"},
		{"one and a half", new(big.Int).Div(new(big.Int).Mul(ether, big.NewInt(3)), big.NewInt(2)), "1.5"},
		{"one wei", big.NewInt(1), "0.000000000000000001"},
		{"negative half", new(big.Int).Neg(new(big.Int).Div(ether, big.NewInt(2))), "-0.5"},
		{"large", new(big.Int).Mul(ether, big.NewInt(1234567)), "1234567.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWei(tt.wei)
			if result != tt.expected {
				t.Errorf("FormatWei(%v) = %q, want %q", tt.wei, result, tt.expected)
			}
		})
	}
}

func TestToWei(t *testing.T) {
	ether := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	tests := []struct {
		input    string
		expected *big.Int
		wantErr  bool
	}{
		{"1", new(big.Int).Set(ether), false},
		{"1.0", new(big.Int).Set(ether), false},
		{"0.25", new(big.Int).Div(ether, big.NewInt(4)), false},
		{" 2.5 ", new(big.Int).Div(new(big.Int).Mul(ether, big.NewInt(5)), big.NewInt(2)), false},
		{"0.000000000000000001", big.NewInt(1), false},
		{"0.0000000000000000001", nil, true}, // 19 decimal places
		{"not a number", nil, true},
		{"", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ToWei(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ToWei(%q) expected error, got %v", tt.input, result)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToWei(%q) unexpected error: %v", tt.input, err)
			}
			if result.Cmp(tt.expected) != 0 {
				t.Errorf("ToWei(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatWeiToWeiRoundTrip(t *testing.T) {
	inputs := []string{"1.0", "4.0", "0.25", "0.5", "123.456"}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			wei, err := ToWei(in)
			if err != nil {
				t.Fatalf("ToWei(%q) unexpected error: %v", in, err)
			}
			if got := FormatWei(wei); got != in {
				t.Errorf("FormatWei(ToWei(%q)) = %q", in, got)
			}
		})
	}
}
