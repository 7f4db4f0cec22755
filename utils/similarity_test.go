package utils

import (
	"math"
	"testing"
)

func TestSimilarityIdentity(t *testing.T) {
	for _, s := range []string{
		"Copper Pipe 15mm",
		"ABC-123",
		"a",
		"Industrial Grade Stainless Steel Fastener Assortment Kit",
	} {
		if got := Similarity(s, s); got != 1.0 {
			t.Fatalf("Similarity(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestSimilarityEmpty(t *testing.T) {
	cases := [][2]string{
		{"", ""},
		{"", "pipe"},
		{"pipe", ""},
		{"!!!", "pipe"},
		{"   ", "pipe"},
	}
	for _, c := range cases {
		if got := Similarity(c[0], c[1]); got != 0 {
			t.Errorf("Similarity(%q, %q) = %v, want 0", c[0], c[1], got)
		}
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	cases := [][2]string{
		{"copper pipe 15mm", "pipe copper"},
		{"BOLT M8", "hex bolt m8 zinc"},
		{"cement bag 50kg", "gravel 20mm"},
	}
	for _, c := range cases {
		ab := Similarity(c[0], c[1])
		ba := Similarity(c[1], c[0])
		if ab != ba {
			t.Errorf("Similarity not symmetric for (%q, %q): %v vs %v", c[0], c[1], ab, ba)
		}
	}
}

func TestSimilarityContainmentBonus(t *testing.T) {
	// "copper pipe" is contained in the longer description, so the score
	// gets the containment bonus on top of the token overlap.
	long := "heavy duty copper pipe with threaded ends for plumbing installations"
	with := Similarity("heavy duty copper pipe", long)
	without := Similarity("copper tube fitting", long)
	if with <= without {
		t.Fatalf("expected containment to outrank partial overlap: %v <= %v", with, without)
	}
}

func TestSimilarityShortStringsUseCharSets(t *testing.T) {
	// Token sets are disjoint ("abc123" vs "abc-123" normalizes differently
	// only in separators), but character overlap keeps short codes close.
	got := Similarity("AB12", "AB13")
	if got <= 0 {
		t.Fatalf("expected positive score for near-identical short codes, got %v", got)
	}
	if got >= 1.0 {
		t.Fatalf("expected distinct short codes to score below 1.0, got %v", got)
	}
}

func TestSimilarityCappedAtOne(t *testing.T) {
	// Full token overlap plus containment must clamp, not exceed 1.
	got := Similarity("valve brass", "brass valve")
	if got > 1.0 {
		t.Fatalf("score exceeds 1.0: %v", got)
	}
}

func TestSimilarityDisjointLongStrings(t *testing.T) {
	a := "stainless steel hex bolt with washer and locking nut included"
	b := "portland cement ready mix aggregate for foundation pouring jobs"
	if got := Similarity(a, b); got != 0 {
		t.Fatalf("disjoint token sets should score 0, got %v", got)
	}
}

func TestNormalizeForMatch(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  HELLO   World ", "hello world"},
		{"INV-2025/001", "inv 2025 001"},
		{"Çöper!!", "per"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeForMatch(c.in); got != c.want {
			t.Errorf("NormalizeForMatch(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSimilarityTokenJaccardValue(t *testing.T) {
	// Long strings bypass the char-set blend: 4 shared tokens of 12 union,
	// no containment, so the raw Jaccard value comes straight through.
	a := "copper pipe fitting elbow joint threaded extra component"
	b := "copper pipe flange gasket sealant compound extra component"
	got := Similarity(a, b)
	want := 4.0 / 12.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Similarity = %v, want %v", got, want)
	}
}
