package processor

import "testing"

func TestCentsToDecimal(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{5200, "52.00"},
		{9707, "97.07"},
		{123456, "1234.56"},
	}
	for _, tt := range tests {
		if got := centsToDecimal(tt.cents); got != tt.want {
			t.Errorf("centsToDecimal(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestDecimalToCents(t *testing.T) {
	tests := []struct {
		value string
		want  int64
	}{
		{"0.00", 0},
		{"52.00", 5200},
		{"97.07", 9707},
		{"1234.56", 123456},
		{"5.5", 550},
		{"7", 700},
		{"-1.50", -150},
		{"-0.05", -5},
		{"1.234", 0},
		{"garbage", 0},
		{"1.x2", 0},
	}
	for _, tt := range tests {
		if got := decimalToCents(tt.value); got != tt.want {
			t.Errorf("decimalToCents(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}
