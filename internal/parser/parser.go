// Package parser converts semi-structured natural-language text (AI or user
// responses) into the structured records a design step expects.
//
// Parsing is total: Parse never fails and never returns an empty collection,
// so callers always have something to display and edit. Strategies are tried
// in priority order per content kind; when none meets the configured minimum,
// the best partial result is padded with labeled placeholder items at low
// confidence.
package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/alcove-ed/blueprint/internal/models"
)

// Format identifiers reported in ParsedContent. These are telemetry labels,
// not a contract; callers must not branch on them.
const (
	FormatPhaseWithBullets = "phase-with-bullets"
	FormatNumberedList     = "numbered-list"
	FormatBulletedList     = "bulleted-list"
	FormatLineDelimited    = "line-delimited"
	FormatInlineDelimited  = "inline-delimited"
	FormatFreeform         = "freeform"
	FormatPlaceholder      = "placeholder"
)

// Config controls minimum item counts and preprocessing.
type Config struct {
	MinItems       map[models.ContentKind]int
	StripMarkdown  bool
	MaxInputLength int // input beyond this is truncated before parsing
}

// DefaultConfig returns the default parsing configuration. Minimum counts
// default to 1 so a single well-formed item is accepted at high confidence.
func DefaultConfig() Config {
	return Config{
		MinItems: map[models.ContentKind]int{
			models.ContentPhases:     1,
			models.ContentActivities: 1,
			models.ContentResources:  1,
			models.ContentMilestones: 1,
			models.ContentRubric:     1,
			models.ContentImpact:     1,
		},
		StripMarkdown:  true,
		MaxInputLength: models.MaxParseInputLength,
	}
}

func (c Config) min(kind models.ContentKind) int {
	if m, ok := c.MinItems[kind]; ok && m > 0 {
		return m
	}
	return 1
}

var (
	phaseHeaderRe   = regexp.MustCompile(`(?i)^\s*phase\s+(\d+)\s*[:.\-]\s*(.+)$`)
	numberedLineRe  = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.+)$`)
	bulletLineRe    = regexp.MustCompile(`^\s*[-*+\x{2022}]\s+(.+)$`)
	goalLineRe      = regexp.MustCompile(`(?i)^\s*goal\s*[:\-]\s*(.+)$`)
	nameDetailRe    = regexp.MustCompile(`^(.{1,80}?)\s*[:\x{2013}\x{2014}]\s+(.+)$`)
	markdownLinkRe  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownEmphRe  = regexp.MustCompile("[*_`~]{1,3}")
	markdownHeadRe  = regexp.MustCompile(`(?m)^\s*#{1,6}\s*`)
	markdownQuoteRe = regexp.MustCompile(`(?m)^\s*>\s?`)
)

// Parse extracts structured content of the given kind from raw text. It is a
// pure function over its inputs and never returns zero items.
func Parse(kind models.ContentKind, raw string, cfg Config) models.ParsedContent {
	text := raw
	if cfg.MaxInputLength > 0 && len(text) > cfg.MaxInputLength {
		slog.Debug("parser.Parse: truncating long input", "kind", kind, "length", len(text), "max", cfg.MaxInputLength)
		// Back off to a rune boundary so the cut never leaves a partial
		// UTF-8 sequence at the tail.
		cut := cfg.MaxInputLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	if cfg.StripMarkdown {
		text = stripMarkdown(text)
	}
	text = strings.TrimSpace(text)

	if text == "" {
		return placeholderResult(kind, cfg.min(kind), nil)
	}

	strategies := strategiesFor(kind)
	var best []models.ContentItem
	bestFormat := FormatFreeform
	for _, st := range strategies {
		items := st.extract(text)
		if len(items) >= cfg.min(kind) {
			slog.Debug("parser.Parse: strategy met minimum", "kind", kind, "format", st.format, "items", len(items))
			return models.ParsedContent{Items: items, Confidence: st.confidence, Format: st.format}
		}
		if len(items) > len(best) {
			best = items
			bestFormat = st.format
		}
	}

	// No strategy met the minimum: pad the best partial result so downstream
	// code can proceed.
	result := placeholderResult(kind, cfg.min(kind), best)
	result.Format = bestFormat
	if len(best) == 0 {
		result.Format = FormatPlaceholder
	}
	slog.Debug("parser.Parse: padded partial result", "kind", kind, "format", result.Format, "items", len(result.Items))
	return result
}

type strategy struct {
	format     string
	confidence models.Confidence
	extract    func(text string) []models.ContentItem
}

func strategiesFor(kind models.ContentKind) []strategy {
	if kind == models.ContentPhases {
		return []strategy{
			{FormatPhaseWithBullets, models.ConfidenceHigh, extractPhaseBlocks},
			{FormatNumberedList, models.ConfidenceHigh, extractNumbered},
			{FormatBulletedList, models.ConfidenceMedium, extractBulleted},
			{FormatLineDelimited, models.ConfidenceMedium, extractLines},
			{FormatFreeform, models.ConfidenceLow, extractFreeform},
		}
	}
	return []strategy{
		{FormatBulletedList, models.ConfidenceHigh, extractBulleted},
		{FormatNumberedList, models.ConfidenceHigh, extractNumbered},
		{FormatInlineDelimited, models.ConfidenceMedium, extractInline},
		{FormatLineDelimited, models.ConfidenceMedium, extractLines},
		{FormatFreeform, models.ConfidenceLow, extractFreeform},
	}
}

// extractPhaseBlocks matches "Phase N: Title" headers with optional bullet
// activities and "Goal:" lines underneath each header.
func extractPhaseBlocks(text string) []models.ContentItem {
	lines := strings.Split(text, "\n")
	var items []models.ContentItem
	var current *models.ContentItem
	for _, line := range lines {
		if m := phaseHeaderRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				items = append(items, *current)
			}
			current = &models.ContentItem{Name: strings.TrimSpace(m[2])}
			continue
		}
		if current == nil {
			continue
		}
		if m := goalLineRe.FindStringSubmatch(line); m != nil {
			current.Detail = strings.TrimSpace(m[1])
			continue
		}
		if m := bulletLineRe.FindStringSubmatch(line); m != nil {
			current.Activities = append(current.Activities, strings.TrimSpace(m[1]))
		}
	}
	if current != nil {
		items = append(items, *current)
	}
	return items
}

func extractNumbered(text string) []models.ContentItem {
	var items []models.ContentItem
	for _, line := range strings.Split(text, "\n") {
		if m := numberedLineRe.FindStringSubmatch(line); m != nil {
			items = append(items, splitNameDetail(m[2]))
		}
	}
	return items
}

func extractBulleted(text string) []models.ContentItem {
	var items []models.ContentItem
	for _, line := range strings.Split(text, "\n") {
		if m := bulletLineRe.FindStringSubmatch(line); m != nil {
			items = append(items, splitNameDetail(m[1]))
		}
	}
	return items
}

// extractInline handles a single line of comma- or semicolon-separated items.
func extractInline(text string) []models.ContentItem {
	if strings.Contains(text, "\n") {
		return nil
	}
	sep := ","
	if strings.Contains(text, ";") {
		sep = ";"
	}
	parts := strings.Split(text, sep)
	if len(parts) < 2 {
		return nil
	}
	var items []models.ContentItem
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, models.ContentItem{Name: p})
		}
	}
	return items
}

func extractLines(text string) []models.ContentItem {
	var items []models.ContentItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, splitNameDetail(line))
	}
	// A wall of prose split into "lines" is not a list; require at least two.
	if len(items) < 2 {
		return nil
	}
	return items
}

// extractFreeform wraps the entire text in a single item so the caller always
// has an editable result.
func extractFreeform(text string) []models.ContentItem {
	name := firstSentence(text)
	item := models.ContentItem{Name: name}
	if name != text {
		item.Detail = text
	}
	return []models.ContentItem{item}
}

func splitNameDetail(line string) models.ContentItem {
	line = strings.TrimSpace(line)
	if m := nameDetailRe.FindStringSubmatch(line); m != nil {
		return models.ContentItem{Name: strings.TrimSpace(m[1]), Detail: strings.TrimSpace(m[2])}
	}
	return models.ContentItem{Name: line}
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if i := strings.Index(text, sep); i > 0 {
			text = text[:i+1]
			break
		}
	}
	text = strings.TrimSpace(text)
	const maxName = 80
	if len(text) > maxName {
		text = strings.TrimSpace(text[:maxName])
	}
	return text
}

func placeholderResult(kind models.ContentKind, min int, partial []models.ContentItem) models.ParsedContent {
	items := append([]models.ContentItem{}, partial...)
	for i := len(items); i < min; i++ {
		items = append(items, placeholderItem(kind, i+1))
	}
	if len(items) == 0 {
		items = append(items, placeholderItem(kind, 1))
	}
	return models.ParsedContent{Items: items, Confidence: models.ConfidenceLow, Format: FormatPlaceholder}
}

func placeholderItem(kind models.ContentKind, n int) models.ContentItem {
	var label string
	switch kind {
	case models.ContentPhases:
		label = fmt.Sprintf("Phase %d (to be defined)", n)
	case models.ContentActivities:
		label = fmt.Sprintf("Activity %d (to be defined)", n)
	case models.ContentResources:
		label = fmt.Sprintf("Resource %d (to be defined)", n)
	case models.ContentMilestones:
		label = fmt.Sprintf("Milestone %d (to be defined)", n)
	case models.ContentRubric:
		label = fmt.Sprintf("Criterion %d (to be defined)", n)
	case models.ContentImpact:
		label = fmt.Sprintf("Impact item %d (to be defined)", n)
	default:
		label = fmt.Sprintf("Item %d (to be defined)", n)
	}
	return models.ContentItem{Name: label, Placeholder: true}
}

// stripMarkdown removes common markdown syntax before strategy matching so
// formatting noise does not defeat extraction. Bullet markers are preserved.
func stripMarkdown(text string) string {
	text = markdownLinkRe.ReplaceAllString(text, "$1")
	text = markdownHeadRe.ReplaceAllString(text, "")
	text = markdownQuoteRe.ReplaceAllString(text, "")
	// Preserve list markers at line start; strip emphasis elsewhere.
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if m := bulletLineRe.FindStringSubmatch(line); m != nil {
			out = append(out, "- "+markdownEmphRe.ReplaceAllString(m[1], ""))
			continue
		}
		out = append(out, markdownEmphRe.ReplaceAllString(line, ""))
	}
	return strings.Join(out, "\n")
}
