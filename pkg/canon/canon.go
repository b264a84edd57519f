// Package canon checks how well scene text keeps a character's immutable
// traits in view.
//
// Each trait contributes its full phrase plus its content keywords (stopwords
// removed) to a single Aho-Corasick automaton, so a scene is scanned once
// no matter how many traits the character has.
package canon

import (
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/chronicle/pkg/story"
)

const minKeywordLen = 3

// Index matches text against one character's immutable traits.
type Index struct {
	traits   []trait
	patterns []string
	// pattern index -> (trait index, keyword index or -1 for the full phrase)
	refs [][]patternRef
	ac   *ahocorasick.Automaton
}

type trait struct {
	label    string
	keywords []string
}

type patternRef struct {
	trait   int
	keyword int
}

// TraitHit is the coverage of one trait in a piece of text.
type TraitHit struct {
	Trait    string   `json:"trait"`
	Exact    bool     `json:"exact"`    // the full phrase appears
	Keywords []string `json:"keywords"` // keywords found
	Total    int      `json:"total"`    // keywords in the trait
}

// Covered reports whether the trait is fully present.
func (h TraitHit) Covered() bool {
	return h.Exact || (h.Total > 0 && len(h.Keywords) == h.Total)
}

// Mentioned reports whether any part of the trait appears.
func (h TraitHit) Mentioned() bool {
	return h.Exact || len(h.Keywords) > 0
}

// Report is the trait coverage of a scene.
type Report struct {
	SceneID string     `json:"sceneId"`
	Hits    []TraitHit `json:"hits"`
}

// Covered counts fully present traits.
func (r Report) Covered() int {
	n := 0
	for _, h := range r.Hits {
		if h.Covered() {
			n++
		}
	}
	return n
}

// Ratio is Covered over the number of traits, 1 when there are none.
func (r Report) Ratio() float64 {
	if len(r.Hits) == 0 {
		return 1
	}
	return float64(r.Covered()) / float64(len(r.Hits))
}

// NewIndex builds an index over the character's immutable traits.
func NewIndex(char *story.Character) (*Index, error) {
	idx := &Index{}
	if char == nil {
		return idx, nil
	}

	sw := stopwords.MustGet("en")
	patternIndex := make(map[string]int)

	add := func(pattern string, ref patternRef) {
		if i, ok := patternIndex[pattern]; ok {
			idx.refs[i] = append(idx.refs[i], ref)
			return
		}
		patternIndex[pattern] = len(idx.patterns)
		idx.patterns = append(idx.patterns, pattern)
		idx.refs = append(idx.refs, []patternRef{ref})
	}

	for _, raw := range char.ImmutableTraits {
		phrase := normalize(raw)
		if phrase == "" {
			continue
		}
		t := trait{label: strings.TrimSpace(raw)}
		ti := len(idx.traits)

		for _, w := range strings.Fields(phrase) {
			if len(w) < minKeywordLen || sw.Contains(w) || contains(t.keywords, w) {
				continue
			}
			add(w, patternRef{trait: ti, keyword: len(t.keywords)})
			t.keywords = append(t.keywords, w)
		}
		add(phrase, patternRef{trait: ti, keyword: -1})
		idx.traits = append(idx.traits, t)
	}

	if len(idx.patterns) == 0 {
		return idx, nil
	}

	// LeftmostLongest prefers "leather jacket" over "leather"; overlapping
	// scan still reports the keywords inside the phrase.
	automaton, err := ahocorasick.NewBuilder().
		AddStrings(idx.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	idx.ac = automaton
	return idx, nil
}

// Len returns the number of indexed traits.
func (x *Index) Len() int { return len(x.traits) }

// Scan returns the coverage of every trait in text, in trait order.
func (x *Index) Scan(text string) []TraitHit {
	hits := make([]TraitHit, len(x.traits))
	for i, t := range x.traits {
		hits[i] = TraitHit{Trait: t.label, Total: len(t.keywords), Keywords: []string{}}
	}
	if x.ac == nil || text == "" {
		return hits
	}

	haystack := []byte(strings.ToLower(text))
	for _, m := range x.ac.FindAllOverlapping(haystack) {
		if !isWordBoundary(haystack, m.Start, m.End) {
			continue
		}
		for _, ref := range x.refs[m.PatternID] {
			h := &hits[ref.trait]
			if ref.keyword < 0 {
				h.Exact = true
				continue
			}
			kw := x.traits[ref.trait].keywords[ref.keyword]
			if !contains(h.Keywords, kw) {
				h.Keywords = append(h.Keywords, kw)
			}
		}
	}
	return hits
}

// Check scans a scene's description and visual prompt.
func (x *Index) Check(scene story.Scene) Report {
	text := scene.SceneDescription + "\n" + scene.VisualPrompt
	return Report{SceneID: scene.ID, Hits: x.Scan(text)}
}

// Mentions lists the traits an edit command touches.
func (x *Index) Mentions(command string) []string {
	var out []string
	for _, h := range x.Scan(command) {
		if h.Mentioned() {
			out = append(out, h.Trait)
		}
	}
	return out
}

// =============================================================================
// Helpers
// =============================================================================

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// isWordBoundary accepts a match that is not glued to letters on either side.
// A trailing plural "s" is allowed.
func isWordBoundary(b []byte, start, end int) bool {
	if start > 0 && isWordByte(b[start-1]) {
		return false
	}
	if end < len(b) && isWordByte(b[end]) {
		if b[end] != 's' || (end+1 < len(b) && isWordByte(b[end+1])) {
			return false
		}
	}
	return true
}

func isWordByte(c byte) bool {
	return c >= 0x80 || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
