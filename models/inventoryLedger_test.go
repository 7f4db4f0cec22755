package models

import (
	"testing"
	"time"
)

func TestFormatTransactionNumber(t *testing.T) {
	day := time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)
	if got := FormatTransactionNumber(day, 1); got != "TXN-20260830-0001" {
		t.Fatalf("FormatTransactionNumber = %q", got)
	}
	if got := FormatTransactionNumber(day, 12345); got != "TXN-20260830-12345" {
		t.Fatalf("FormatTransactionNumber wide = %q", got)
	}
}

func TestParseTransactionSequence(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"TXN-20260830-0001", 1, false},
		{"TXN-20260830-0457", 457, false},
		{"TXN-20260830-9999", 9999, false},
		{"TXN-20260830-abcd", 0, true},
		{"TXN-20260830", 0, true},
		{"garbage", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		got, err := ParseTransactionSequence(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseTransactionSequence(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTransactionSequence(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseTransactionSequence(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestNormalizeInvoiceNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{" inv-2026/001 ", "INV-2026/001"},
		{"INV-001", "INV-001"},
		{"", ""},
		{"  ", ""},
	}
	for _, c := range cases {
		if got := NormalizeInvoiceNumber(c.in); got != c.want {
			t.Errorf("NormalizeInvoiceNumber(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
