package sporza

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// FuzzyThreshold is the minimum token-sort similarity (0-100) of a fuzzy match
const FuzzyThreshold = 80.0

type priceEntry struct {
	key     string // normalized tokens in sorted order
	cyclist Cyclist
}

// PriceList indexes cyclists by normalized full name, with a token-sort
// fuzzy fallback for spellings that differ in word order or short forms
type PriceList struct {
	byName  map[string]Cyclist
	entries []priceEntry
}

// NewPriceList builds a PriceList; later duplicates of a name are ignored
func NewPriceList(cyclists []Cyclist) *PriceList {
	list := &PriceList{byName: make(map[string]Cyclist, len(cyclists))}
	for _, cy := range cyclists {
		key := NormalizeName(cy.FullName)
		if key == "" {
			continue
		}
		if _, exists := list.byName[key]; exists {
			continue
		}
		list.byName[key] = cy
		list.entries = append(list.entries, priceEntry{key: sortTokens(key), cyclist: cy})
	}
	return list
}

// Len returns the number of distinct names
func (p *PriceList) Len() int { return len(p.byName) }

// Lookup tries every name exactly first and then fuzzily, so an exact hit on
// a later name beats a fuzzy hit on an earlier one
func (p *PriceList) Lookup(names ...string) (Cyclist, bool) {
	for _, name := range names {
		if cy, ok := p.byName[NormalizeName(name)]; ok {
			return cy, true
		}
	}
	for _, name := range names {
		if cy, score, ok := p.Closest(name); ok && score >= FuzzyThreshold {
			return cy, true
		}
	}
	return Cyclist{}, false
}

// Closest returns the most similar cyclist and its score; ties keep list order
func (p *PriceList) Closest(name string) (Cyclist, float64, bool) {
	key := sortTokens(NormalizeName(name))
	if key == "" || len(p.entries) == 0 {
		return Cyclist{}, 0, false
	}

	best, bestScore := -1, -1.0
	for i, e := range p.entries {
		if score := similarity(key, e.key); score > bestScore {
			best, bestScore = i, score
		}
	}
	return p.entries[best].cyclist, bestScore, true
}

func sortTokens(normalized string) string {
	tokens := strings.Fields(normalized)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// similarity scores 100 for equal keys, falling by the edit distance
// relative to the combined length
func similarity(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * float64(total-d) / float64(total)
}
