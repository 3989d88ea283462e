// Package themes provides a fixed whitelist of teaching-preference tags,
// keyword-scored detection, and recurring-theme extraction over user-authored
// messages.
//
// Detection is a frequency-based keyword scan, not a learned model, and is
// explicitly best-effort: with no signal it returns empty results rather than
// erroring.
package themes

import (
	"sort"
	"strings"
)

// ---- Whitelist ----

// AllTags is the hard-coded set of preference tags the scanner may emit.
var AllTags = map[string]bool{
	"hands_on":      true,
	"collaborative": true,
	"technology":    true,
	"outdoors":      true,
	"arts":          true,
	"research":      true,
	"discussion":    true,
}

// preferenceKeywords maps each tag to the keywords that score toward it.
var preferenceKeywords = map[string][]string{
	"hands_on":      {"hands-on", "build", "make", "craft", "construct", "prototype"},
	"collaborative": {"group", "team", "collaborat", "together", "partner", "peer"},
	"technology":    {"technology", "digital", "computer", "app", "online", "video", "coding"},
	"outdoors":      {"outdoor", "outside", "field trip", "nature", "garden", "community walk"},
	"arts":          {"art", "draw", "paint", "music", "perform", "design", "mural"},
	"research":      {"research", "investigat", "data", "interview", "survey", "analyz"},
	"discussion":    {"discuss", "debate", "present", "share", "reflect", "seminar"},
}

// stopwords excluded from theme extraction.
var stopwords = map[string]bool{
	"that": true, "this": true, "with": true, "they": true, "them": true,
	"have": true, "will": true, "would": true, "could": true, "should": true,
	"their": true, "about": true, "want": true, "like": true, "really": true,
	"students": true, "student": true, "project": true, "class": true,
	"what": true, "when": true, "where": true, "which": true, "there": true,
	"from": true, "into": true, "more": true, "some": true, "then": true,
}

// Options tunes the scan thresholds.
type Options struct {
	// ThemeMinCount is how many occurrences a keyword needs across the
	// session to count as a theme.
	ThemeMinCount int
	// PreferenceMinHits is how many keyword hits activate a preference tag.
	PreferenceMinHits int
	// MaxThemes bounds the number of themes returned.
	MaxThemes int
}

// DefaultOptions returns the default scan thresholds.
func DefaultOptions() Options {
	return Options{ThemeMinCount: 3, PreferenceMinHits: 2, MaxThemes: 8}
}

// Summary is the extracted signal for prompt construction.
type Summary struct {
	Preferences []string `json:"preferences,omitempty"` // active whitelist tags
	Themes      []string `json:"themes,omitempty"`      // recurring keywords
}

// Extract scans user-authored message contents and returns detected
// preferences and recurring themes. Empty input yields an empty summary.
func Extract(contents []string, opts Options) Summary {
	if opts.ThemeMinCount <= 0 {
		opts.ThemeMinCount = 3
	}
	if opts.PreferenceMinHits <= 0 {
		opts.PreferenceMinHits = 2
	}
	if opts.MaxThemes <= 0 {
		opts.MaxThemes = 8
	}

	joined := strings.ToLower(strings.Join(contents, "\n"))
	if strings.TrimSpace(joined) == "" {
		return Summary{}
	}

	return Summary{
		Preferences: scorePreferences(joined, opts.PreferenceMinHits),
		Themes:      countThemes(joined, opts.ThemeMinCount, opts.MaxThemes),
	}
}

func scorePreferences(text string, minHits int) []string {
	var active []string
	for tag, keywords := range preferenceKeywords {
		if !AllTags[tag] {
			continue
		}
		hits := 0
		for _, kw := range keywords {
			hits += strings.Count(text, kw)
		}
		if hits >= minHits {
			active = append(active, tag)
		}
	}
	sort.Strings(active)
	return active
}

func countThemes(text string, minCount, maxThemes int) []string {
	counts := make(map[string]int)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '-'
	}) {
		if len(w) < 4 || stopwords[w] {
			continue
		}
		counts[w]++
	}

	type wc struct {
		word  string
		count int
	}
	var candidates []wc
	for w, c := range counts {
		if c >= minCount {
			candidates = append(candidates, wc{w, c})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].word < candidates[j].word
	})
	if len(candidates) > maxThemes {
		candidates = candidates[:maxThemes]
	}
	themes := make([]string, 0, len(candidates))
	for _, c := range candidates {
		themes = append(themes, c.word)
	}
	return themes
}
