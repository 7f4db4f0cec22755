package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestWeightedAverageCost(t *testing.T) {
	cases := []struct {
		name       string
		currentQty string
		currentAvg string
		newQty     string
		newCost    string
		want       string
	}{
		{"first receipt", "0", "0", "10", "5", "5"},
		{"blend", "10", "5", "10", "7", "6"},
		{"uneven", "2", "10", "3", "5", "7"},
		{"same cost stays", "100", "4.5", "50", "4.5", "4.5"},
	}
	for _, c := range cases {
		got := WeightedAverageCost(
			decimal.RequireFromString(c.currentQty),
			decimal.RequireFromString(c.currentAvg),
			decimal.RequireFromString(c.newQty),
			decimal.RequireFromString(c.newCost),
		)
		want := decimal.RequireFromString(c.want)
		if !got.Equal(want) {
			t.Errorf("%s: WeightedAverageCost = %s, want %s", c.name, got, want)
		}
	}
}
