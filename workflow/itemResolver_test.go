package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/invoices_backend/models"
)

func intPtr(n int) *int { return &n }

func catalogFixtures() *ItemCatalog {
	items := []*models.CatalogItem{
		{ID: 1, ItemNumber: "CP-15", ShortItemNo: intPtr(101), Description: "Copper Pipe 15mm", SearchText: "copper tube 15"},
		{ID: 2, ItemNumber: "BV-20", ShortItemNo: intPtr(102), Description: "Brass Valve 20mm"},
		{ID: 3, ItemNumber: "CEM-50", Description: "Portland Cement Bag 50kg", SearchText: "cement 50kg"},
	}
	aliases := []*models.ItemAlias{
		{ID: 1, CatalogItemId: 2, AliasCode: "SUP-VALVE-B"},
		{ID: 2, CatalogItemId: 99, AliasCode: "DANGLING"},
	}
	return NewItemCatalog(items, aliases)
}

func TestResolveItemNumberExact(t *testing.T) {
	res := catalogFixtures().Resolve(&models.ExtractedLineItem{ItemCode: "cp-15"})
	if res.Item == nil || res.Item.ID != 1 {
		t.Fatalf("item = %+v, want id 1", res.Item)
	}
	if res.Method != models.ItemMatchItemNumber || res.Confidence != 1.0 {
		t.Fatalf("method = %s confidence = %v", res.Method, res.Confidence)
	}
}

func TestResolveItemNumberBeatsFuzzy(t *testing.T) {
	// exact code points at the valve even though the description is a
	// perfect match for the copper pipe
	res := catalogFixtures().Resolve(&models.ExtractedLineItem{
		ItemCode:    "BV-20",
		Description: "Copper Pipe 15mm",
	})
	if res.Item == nil || res.Item.ID != 2 {
		t.Fatalf("item = %+v, want id 2", res.Item)
	}
	if res.Method != models.ItemMatchItemNumber {
		t.Fatalf("method = %s", res.Method)
	}
}

func TestResolveItemAlias(t *testing.T) {
	res := catalogFixtures().Resolve(&models.ExtractedLineItem{ItemCode: "sup-valve-b"})
	if res.Item == nil || res.Item.ID != 2 {
		t.Fatalf("item = %+v, want id 2", res.Item)
	}
	if res.Method != models.ItemMatchAlias {
		t.Fatalf("method = %s", res.Method)
	}
}

func TestResolveItemDanglingAliasIgnored(t *testing.T) {
	res := catalogFixtures().Resolve(&models.ExtractedLineItem{ItemCode: "DANGLING"})
	if res.Item != nil {
		t.Fatalf("dangling alias must not resolve, got %+v", res.Item)
	}
}

func TestResolveItemShortNumericCode(t *testing.T) {
	res := catalogFixtures().Resolve(&models.ExtractedLineItem{ItemCode: "102"})
	if res.Item == nil || res.Item.ID != 2 {
		t.Fatalf("item = %+v, want id 2", res.Item)
	}
	if res.Method != models.ItemMatchShortItemNo {
		t.Fatalf("method = %s", res.Method)
	}
}

func TestResolveItemFuzzyDescription(t *testing.T) {
	res := catalogFixtures().Resolve(&models.ExtractedLineItem{
		Description: "Copper Pipe 15mm",
	})
	if res.Item == nil || res.Item.ID != 1 {
		t.Fatalf("item = %+v, want id 1", res.Item)
	}
	if res.Method != models.ItemMatchFuzzy {
		t.Fatalf("method = %s", res.Method)
	}
	if res.Confidence < fuzzyMatchThreshold {
		t.Fatalf("confidence = %v", res.Confidence)
	}
}

func TestResolveItemSuggestionsBelowThreshold(t *testing.T) {
	res := catalogFixtures().Resolve(&models.ExtractedLineItem{
		Description: "copper fitting elbow",
	})
	if res.Item != nil {
		t.Fatalf("expected no match, got %+v", res.Item)
	}
	if res.Method != models.ItemMatchNone {
		t.Fatalf("method = %s", res.Method)
	}
	if len(res.Suggestions) == 0 {
		t.Fatal("expected suggestions for partial overlap")
	}
	if len(res.Suggestions) > itemSuggestionLimit {
		t.Fatalf("suggestions = %d, cap is %d", len(res.Suggestions), itemSuggestionLimit)
	}
	for _, s := range res.Suggestions {
		if s.Confidence <= 0 || s.Confidence > 100 {
			t.Fatalf("suggestion confidence out of range: %v", s.Confidence)
		}
	}
}

func TestResolveItemSkipsUnusableLine(t *testing.T) {
	res := catalogFixtures().Resolve(&models.ExtractedLineItem{Unit: "pcs"})
	if !res.Skipped {
		t.Fatal("line with no code and no description must be skipped")
	}
	if res.Item != nil || len(res.Suggestions) != 0 {
		t.Fatalf("skipped line should carry no outcome: %+v", res)
	}
}

func TestRoundPercent(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.666666, 66.7},
		{0.25, 25.0},
		{1.0, 100.0},
		{0.2049, 20.5},
	}
	for _, c := range cases {
		if got := roundPercent(c.in); got != c.want {
			t.Errorf("roundPercent(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
