package utils

import (
	"regexp"
	"strings"
)

var (
	nonAlnumPattern   = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	shortStringCutoff = 20
	containmentBonus  = 0.3
)

// NormalizeForMatch lowercases, strips everything except alphanumerics and
// whitespace, and collapses whitespace runs. Used for both similarity scoring
// and duplicate-invoice detection.
func NormalizeForMatch(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity scores how alike two free-text strings are, in [0, 1].
//
// Token-set Jaccard over normalized words, plus a containment bonus when one
// normalized string is a substring of the other. Short inputs (< 20 chars
// before or after normalization) blend in a character-set Jaccard so that
// codes and abbreviations score sanely.
func Similarity(a, b string) float64 {
	normA := NormalizeForMatch(a)
	normB := NormalizeForMatch(b)
	if normA == "" || normB == "" {
		return 0
	}

	jaccard := tokenSetJaccard(normA, normB)

	short := len(a) < shortStringCutoff || len(b) < shortStringCutoff ||
		len(normA) < shortStringCutoff || len(normB) < shortStringCutoff
	if short {
		charJaccard := charSetJaccard(
			strings.ReplaceAll(normA, " ", ""),
			strings.ReplaceAll(normB, " ", ""),
		)
		jaccard = (jaccard + charJaccard) / 2
	}

	bonus := 0.0
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		bonus = containmentBonus
	}

	score := jaccard + bonus
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func tokenSetJaccard(a, b string) float64 {
	setA := make(map[string]struct{})
	for _, t := range strings.Fields(a) {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{})
	for _, t := range strings.Fields(b) {
		setB[t] = struct{}{}
	}
	return setJaccard(setA, setB)
}

func charSetJaccard(a, b string) float64 {
	setA := make(map[string]struct{})
	for _, r := range a {
		setA[string(r)] = struct{}{}
	}
	setB := make(map[string]struct{})
	for _, r := range b {
		setB[string(r)] = struct{}{}
	}
	return setJaccard(setA, setB)
}

func setJaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
