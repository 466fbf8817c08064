package money

import (
	"testing"

	"golang.org/x/text/language"
)

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "usd", false},
		{"USD", "usd", false},
		{" eur ", "eur", false},
		{"zzzz", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeCurrency(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("NormalizeCurrency(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("NormalizeCurrency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(language.AmericanEnglish, 1250, "usd"); got != "USD 12.50" {
		t.Fatalf("Format() = %q, want %q", got, "USD 12.50")
	}
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		bps        int
		wantFee    int64
		wantPayout int64
		wantErr    bool
	}{
		{"ten percent", 2000, 1000, 200, 1800, false},
		{"rounds fee down", 999, 1000, 99, 900, false},
		{"zero fee", 500, 0, 0, 500, false},
		{"full fee", 500, 10000, 500, 0, false},
		{"negative amount", -1, 1000, 0, 0, true},
		{"fee above cap", 100, 10001, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, payout, err := SplitFee(tt.amount, tt.bps)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitFee err = %v, wantErr %v", err, tt.wantErr)
			}
			if fee != tt.wantFee || payout != tt.wantPayout {
				t.Fatalf("SplitFee = (%d, %d), want (%d, %d)", fee, payout, tt.wantFee, tt.wantPayout)
			}
		})
	}
}
