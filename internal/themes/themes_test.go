package themes

import "testing"

func TestExtractPreferences(t *testing.T) {
	contents := []string{
		"I want students to build a prototype in groups",
		"They could make models and work as a team on the final piece",
	}

	summary := Extract(contents, DefaultOptions())

	found := map[string]bool{}
	for _, p := range summary.Preferences {
		found[p] = true
	}
	if !found["hands_on"] {
		t.Errorf("expected hands_on preference, got %v", summary.Preferences)
	}
	if !found["collaborative"] {
		t.Errorf("expected collaborative preference, got %v", summary.Preferences)
	}
}

func TestExtractPreferencesOnlyFromWhitelist(t *testing.T) {
	contents := []string{
		"build build make craft group team partner art paint draw music",
	}

	summary := Extract(contents, DefaultOptions())

	for _, p := range summary.Preferences {
		if !AllTags[p] {
			t.Errorf("preference %q not in whitelist", p)
		}
	}
}

func TestExtractThemes(t *testing.T) {
	contents := []string{
		"The river runs through our town",
		"I want them to study the river ecosystem",
		"Maybe a river cleanup as the finale",
	}

	summary := Extract(contents, DefaultOptions())

	foundRiver := false
	for _, theme := range summary.Themes {
		if theme == "river" {
			foundRiver = true
		}
	}
	if !foundRiver {
		t.Errorf("expected 'river' theme after three mentions, got %v", summary.Themes)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	summary := Extract(nil, DefaultOptions())
	if len(summary.Preferences) != 0 || len(summary.Themes) != 0 {
		t.Errorf("empty input must yield empty summary, got %+v", summary)
	}

	summary = Extract([]string{"", "   "}, DefaultOptions())
	if len(summary.Preferences) != 0 || len(summary.Themes) != 0 {
		t.Errorf("blank input must yield empty summary, got %+v", summary)
	}
}

func TestExtractThemesBounded(t *testing.T) {
	// 12 distinct words each repeated enough to qualify as a theme.
	content := ""
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot",
		"golf", "hotel", "india", "juliet", "kilo", "lima"}
	for _, w := range words {
		content += w + " " + w + " " + w + " "
	}

	opts := DefaultOptions()
	summary := Extract([]string{content}, opts)

	if len(summary.Themes) > opts.MaxThemes {
		t.Errorf("themes exceed bound: %d > %d", len(summary.Themes), opts.MaxThemes)
	}
}

func TestExtractStopwordsExcluded(t *testing.T) {
	contents := []string{
		"students students students project project project that that that",
	}

	summary := Extract(contents, DefaultOptions())

	for _, theme := range summary.Themes {
		if stopwords[theme] {
			t.Errorf("stopword %q leaked into themes", theme)
		}
	}
}
