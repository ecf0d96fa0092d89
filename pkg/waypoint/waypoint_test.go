package waypoint

import (
	"testing"

	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/graph"
	"github.com/docustitch/backend/pkg/section"
)

func buildGraph(t *testing.T, sections []common.Section, citations []common.CitationRef, lex common.Lexicon) *graph.Graph {
	t.Helper()
	store, err := section.NewStore(sections)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	g, _, err := graph.Build(store, graph.BuildParams{Citations: citations, Lexicon: lex})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestSelect_Deterministic(t *testing.T) {
	sections := []common.Section{
		{ID: "§1.1", Heading: "Purpose and scope", Text: "Purpose.", Ordinal: 0},
		{ID: "§1.2", Heading: "Definitions", Text: "Terms.", Ordinal: 1},
		{ID: "§1.3", Heading: "Reporting", Text: "Reports.", Ordinal: 2},
		{ID: "§1.4", Heading: "Audits", Text: "Audits.", Ordinal: 3},
	}
	citations := []common.CitationRef{
		{SourceID: "§1.3", TargetID: "§1.2"},
		{SourceID: "§1.4", TargetID: "§1.2"},
		{SourceID: "§1.4", TargetID: "§1.3"},
	}
	g := buildGraph(t, sections, citations, nil)

	first := Select(g, Params{MaxWaypoints: 3})
	second := Select(g, Params{MaxWaypoints: 3})
	if len(first) != len(second) {
		t.Fatalf("selection size changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("selection differs at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSelect_IncludesOverview(t *testing.T) {
	sections := []common.Section{
		{ID: "§1.1", Heading: "Purpose and scope", Text: "Purpose.", Ordinal: 0},
		{ID: "§1.2", Heading: "Definitions", Text: "Terms.", Ordinal: 1},
		{ID: "§1.3", Heading: "Reporting", Text: "Reports.", Ordinal: 2},
	}
	// All citation weight flows away from the overview section.
	citations := []common.CitationRef{
		{SourceID: "§1.1", TargetID: "§1.2"},
		{SourceID: "§1.3", TargetID: "§1.2"},
		{SourceID: "§1.2", TargetID: "§1.3"},
	}
	g := buildGraph(t, sections, citations, nil)

	selected := Select(g, Params{MaxWaypoints: 1})
	foundOverview := false
	for _, wp := range selected {
		if wp.SectionID == "§1.1" {
			foundOverview = true
			if wp.Reason != ReasonOverview {
				t.Fatalf("overview reason = %q", wp.Reason)
			}
		}
	}
	if !foundOverview {
		t.Fatalf("overview section must always be selected, got %+v", selected)
	}
}

func TestSelect_OverviewFallbackWithoutMatchingHeading(t *testing.T) {
	sections := []common.Section{
		{ID: "§5.1", Heading: "Applicability", Text: "Applies.", Ordinal: 0},
		{ID: "§5.2", Heading: "Definitions", Text: "Terms.", Ordinal: 1},
		{ID: "§5.3", Heading: "Reporting", Text: "Reports.", Ordinal: 2},
	}
	// No heading names an overview; importance concentrates on §5.2.
	citations := []common.CitationRef{
		{SourceID: "§5.1", TargetID: "§5.2"},
		{SourceID: "§5.3", TargetID: "§5.2"},
	}
	g := buildGraph(t, sections, citations, nil)

	selected := Select(g, Params{MaxWaypoints: 1})
	foundOverview := false
	for _, wp := range selected {
		if wp.SectionID == "§5.1" {
			foundOverview = true
			if wp.Reason != ReasonOverview {
				t.Fatalf("overview reason = %q", wp.Reason)
			}
		}
	}
	if !foundOverview {
		t.Fatalf("first root section must anchor the summary when no heading matches, got %+v", selected)
	}
}

func TestSelect_SiblingSpread(t *testing.T) {
	sections := []common.Section{
		{ID: "§1.1", Heading: "General", Text: "Intro.", Ordinal: 0},
		{ID: "§1.2", ParentID: "§1.1", Heading: "Standards A", Text: "A.", Ordinal: 1},
		{ID: "§1.3", ParentID: "§1.1", Heading: "Standards B", Text: "B.", Ordinal: 2},
		{ID: "§1.4", Heading: "Reporting", Text: "Reports.", Ordinal: 3},
	}
	// Make the two siblings nearly equal in importance.
	citations := []common.CitationRef{
		{SourceID: "§1.4", TargetID: "§1.2"},
		{SourceID: "§1.1", TargetID: "§1.2"},
		{SourceID: "§1.4", TargetID: "§1.3"},
		{SourceID: "§1.1", TargetID: "§1.3"},
	}
	g := buildGraph(t, sections, citations, nil)

	selected := Select(g, Params{MaxWaypoints: 4, SiblingGap: 0.5})
	siblings := 0
	for _, wp := range selected {
		if wp.SectionID == "§1.2" || wp.SectionID == "§1.3" {
			siblings++
		}
	}
	if siblings != 1 {
		t.Fatalf("sibling spread rule should keep one of two near-equal siblings, kept %d (%+v)", siblings, selected)
	}

	// With no gap requirement both siblings may be selected.
	all := Select(g, Params{MaxWaypoints: 4, SiblingGap: 0})
	siblings = 0
	for _, wp := range all {
		if wp.SectionID == "§1.2" || wp.SectionID == "§1.3" {
			siblings++
		}
	}
	if siblings != 2 {
		t.Fatalf("expected both siblings without a gap rule, kept %d", siblings)
	}
}

func TestSelect_BoundedBySectionCount(t *testing.T) {
	sections := []common.Section{
		{ID: "§1.1", Heading: "Purpose", Text: "Purpose.", Ordinal: 0},
		{ID: "§1.2", Heading: "Definitions", Text: "Terms.", Ordinal: 1},
	}
	g := buildGraph(t, sections, nil, common.Lexicon{"definitions": 1})
	selected := Select(g, Params{MaxWaypoints: 50})
	if len(selected) > 2 {
		t.Fatalf("selection exceeds section count: %d", len(selected))
	}
}
