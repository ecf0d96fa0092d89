package util

import (
	"regexp"
	"strings"
)

var (
	wsRe = regexp.MustCompile(`\s+`)
	// §X.Y with optional trailing clause suffixes like (a)(2)(iv)
	clauseSuffixRe = regexp.MustCompile(`(?i)(?:\([a-z0-9ivxl]+\))+$`)
	secBaseRe      = regexp.MustCompile(`^\d{1,3}\.\d{1,4}$`)
)

// NormalizeSectionID canonicalizes a section identifier: repairs the common
// "Â§" mojibake, strips all whitespace, and leaves the rest untouched.
// Both stored section ids and citation targets go through this so that
// lookups compare equal.
func NormalizeSectionID(id string) string {
	id = strings.ReplaceAll(id, "Â§", "§")
	return strings.Join(strings.Fields(id), "")
}

// CitationTargetBase reduces a raw citation token to the base section id it
// points at, dropping clause suffixes: "§ 37.41(a)(2)" -> "§37.41".
// Returns "" when the token does not look like an in-document section
// reference at all.
func CitationTargetBase(token string) string {
	t := NormalizeSectionID(token)
	if t == "" {
		return ""
	}
	core := strings.TrimPrefix(t, "§")
	core = clauseSuffixRe.ReplaceAllString(core, "")
	if !secBaseRe.MatchString(core) {
		return ""
	}
	if strings.HasPrefix(t, "§") {
		return "§" + core
	}
	return core
}

// CollapseWhitespace squashes runs of whitespace into single spaces and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}
