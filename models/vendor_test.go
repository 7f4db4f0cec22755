package models

import "testing"

func TestVendorSearchNeedle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme", "acme"},
		{"  ACME Building Supplies  ", "acme building supplies"},
		// punctuation must survive so the needle can match the stored name
		{"Acme, Inc.", "acme, inc."},
		{"Bolt & Fastener Co", "bolt & fastener co"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := vendorSearchNeedle(tt.in); got != tt.want {
			t.Errorf("vendorSearchNeedle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
