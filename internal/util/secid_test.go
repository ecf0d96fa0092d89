package util

import "testing"

func TestNormalizeSectionID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"§ 37.41", "§37.41"},
		{"§37.41", "§37.41"},
		{" § 115.10 ", "§115.10"},
		{"Â§ 37.3", "§37.3"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeSectionID(c.in); got != c.want {
			t.Errorf("NormalizeSectionID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCitationTargetBase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"§ 37.41(a)(2)", "§37.41"},
		{"§115.10(b)", "§115.10"},
		{"§37.3", "§37.3"},
		{"part 115", ""},
		{"20 CFR 408.210", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := CitationTargetBase(c.in); got != c.want {
			t.Errorf("CitationTargetBase(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := CollapseWhitespace("  a\n\tb   c "); got != "a b c" {
		t.Errorf("got %q", got)
	}
}
