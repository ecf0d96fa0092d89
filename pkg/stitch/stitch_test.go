package stitch

import (
	"strings"
	"testing"

	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/gist"
	"github.com/docustitch/backend/pkg/graph"
	"github.com/docustitch/backend/pkg/section"
	"github.com/docustitch/backend/pkg/waypoint"
)

func buildGraph(t *testing.T, citations []common.CitationRef) (*graph.Graph, *section.Store) {
	t.Helper()
	store, err := section.NewStore([]common.Section{
		{ID: "§1.1", Heading: "Scope", Text: "Scope.", Ordinal: 0},
		{ID: "§1.2", Heading: "Definitions", Text: "Terms.", Ordinal: 1},
		{ID: "§1.3", Heading: "Reporting", Text: "Reports.", Ordinal: 2},
		{ID: "§1.4", Heading: "Audits", Text: "Audits.", Ordinal: 3},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	g, _, err := graph.Build(store, graph.BuildParams{Citations: citations})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g, store
}

func waypointsFor(ids ...string) []waypoint.Waypoint {
	wps := make([]waypoint.Waypoint, len(ids))
	for i, id := range ids {
		wps[i] = waypoint.Waypoint{SectionID: id, Reason: waypoint.ReasonImportance}
	}
	return wps
}

func gistsFor(texts map[string][]string) map[string][]gist.Gist {
	out := make(map[string][]gist.Gist, len(texts))
	for id, sentences := range texts {
		for i, text := range sentences {
			out[id] = append(out[id], gist.Gist{
				SectionID: id, Index: i, Text: text,
				Tokens: len(strings.Fields(text)),
			})
		}
	}
	return out
}

func TestStitch_CitationChainOrder(t *testing.T) {
	// §1.1 cites §1.2, §1.2 cites §1.3: each citing section precedes what
	// it cites, so the chain stitches as §1.1, §1.2, §1.3.
	g, _ := buildGraph(t, []common.CitationRef{
		{SourceID: "§1.1", TargetID: "§1.2"},
		{SourceID: "§1.2", TargetID: "§1.3"},
	})
	result := Stitch(g, waypointsFor("§1.1", "§1.2", "§1.3"), gistsFor(map[string][]string{
		"§1.1": {"Scope sentence."},
		"§1.2": {"Definitions sentence."},
		"§1.3": {"Reporting sentence."},
	}), Params{Budget: 100})

	want := []string{"§1.1", "§1.2", "§1.3"}
	if len(result.Order) != len(want) {
		t.Fatalf("order = %v, want %v", result.Order, want)
	}
	for i := range want {
		if result.Order[i] != want[i] {
			t.Fatalf("order = %v, want %v", result.Order, want)
		}
	}
	if len(result.Cyclic) != 0 {
		t.Fatalf("unexpected cycle report: %v", result.Cyclic)
	}
	if !strings.Contains(result.Summary, "§1.2 Definitions") {
		t.Fatalf("summary missing section header: %q", result.Summary)
	}
}

func TestStitch_CitingSectionPrecedesCited(t *testing.T) {
	// §1.3 cites §1.1, so §1.3 stitches first even though §1.1 comes
	// earlier in the document.
	g, _ := buildGraph(t, []common.CitationRef{
		{SourceID: "§1.3", TargetID: "§1.1"},
	})
	result := Stitch(g, waypointsFor("§1.1", "§1.3"), gistsFor(map[string][]string{
		"§1.1": {"Scope sentence."},
		"§1.3": {"Reporting sentence."},
	}), Params{Budget: 100})

	want := []string{"§1.3", "§1.1"}
	for i := range want {
		if result.Order[i] != want[i] {
			t.Fatalf("order = %v, want %v", result.Order, want)
		}
	}
	if !strings.Contains(result.Summary, "§1.3 Reporting") {
		t.Fatalf("summary missing section header: %q", result.Summary)
	}
}

func TestStitch_CycleFallsBackToDocumentOrder(t *testing.T) {
	g, _ := buildGraph(t, []common.CitationRef{
		{SourceID: "§1.2", TargetID: "§1.3"},
		{SourceID: "§1.3", TargetID: "§1.2"},
	})
	result := Stitch(g, waypointsFor("§1.2", "§1.3", "§1.4"), gistsFor(map[string][]string{
		"§1.2": {"Definitions sentence."},
		"§1.3": {"Reporting sentence."},
		"§1.4": {"Audit sentence."},
	}), Params{Budget: 100})

	if len(result.Cyclic) != 2 {
		t.Fatalf("expected two cyclic waypoints, got %v", result.Cyclic)
	}
	if result.Cyclic[0] != "§1.2" || result.Cyclic[1] != "§1.3" {
		t.Fatalf("cyclic subset not in document order: %v", result.Cyclic)
	}
	// The acyclic waypoint orders normally; the cyclic remainder follows
	// in document order.
	want := []string{"§1.4", "§1.2", "§1.3"}
	for i := range want {
		if result.Order[i] != want[i] {
			t.Fatalf("order = %v, want %v", result.Order, want)
		}
	}
}

func TestStitch_SkipsOversizeGist(t *testing.T) {
	g, _ := buildGraph(t, nil)
	long := strings.Repeat("word ", 50)
	result := Stitch(g, waypointsFor("§1.2"), gistsFor(map[string][]string{
		"§1.2": {strings.TrimSpace(long), "Short definitions sentence here."},
	}), Params{Budget: 10})

	if result.BudgetTooSmall {
		t.Fatal("short gist should have fit")
	}
	if len(result.Included) != 1 || result.Included[0].Index != 1 {
		t.Fatalf("expected only the short gist, got %+v", result.Included)
	}
	if strings.Contains(result.Summary, "word word") {
		t.Fatal("oversize gist must be skipped whole, not truncated")
	}
	if result.TokensUsed > 10 {
		t.Fatalf("budget exceeded: %d", result.TokensUsed)
	}
}

func TestStitch_BudgetTooSmall(t *testing.T) {
	g, _ := buildGraph(t, nil)
	result := Stitch(g, waypointsFor("§1.2"), gistsFor(map[string][]string{
		"§1.2": {"A sentence that cannot possibly fit in one token."},
	}), Params{Budget: 1})

	if !result.BudgetTooSmall {
		t.Fatal("expected BudgetTooSmall")
	}
	if result.Summary != "" {
		t.Fatalf("summary must be empty, got %q", result.Summary)
	}

	zero := Stitch(g, waypointsFor("§1.2"), gistsFor(map[string][]string{
		"§1.2": {"Anything."},
	}), Params{Budget: 0})
	if !zero.BudgetTooSmall || zero.Summary != "" {
		t.Fatalf("zero budget must produce an empty summary: %+v", zero)
	}
}

func TestStitch_CoverageReasons(t *testing.T) {
	g, store := buildGraph(t, []common.CitationRef{
		{SourceID: "§1.2", TargetID: "§1.3"},
		{SourceID: "§1.3", TargetID: "§1.2"},
	})
	result := Stitch(g, waypointsFor("§1.1", "§1.2", "§1.3"), gistsFor(map[string][]string{
		"§1.1": {"Scope sentence included here."},
		"§1.2": {strings.TrimSpace(strings.Repeat("over ", 40))},
		"§1.3": {strings.TrimSpace(strings.Repeat("flow ", 40))},
	}), Params{Budget: 8})

	reasons := make(map[string]string, store.Len())
	for _, c := range result.Coverage {
		reasons[c.SectionID] = c.Reason
	}
	if reasons["§1.1"] != CoverIncluded {
		t.Fatalf("§1.1 reason = %q", reasons["§1.1"])
	}
	if reasons["§1.2"] != CoverGraphOrdering || reasons["§1.3"] != CoverGraphOrdering {
		t.Fatalf("cyclic budget-excluded sections should report graph-ordering: %v", reasons)
	}
	if reasons["§1.4"] != CoverNotSelected {
		t.Fatalf("§1.4 reason = %q", reasons["§1.4"])
	}
	if len(result.Coverage) != store.Len() {
		t.Fatalf("coverage must list every section: %d of %d", len(result.Coverage), store.Len())
	}
}

func TestStitch_MonotoneInBudget(t *testing.T) {
	g, _ := buildGraph(t, nil)
	gists := gistsFor(map[string][]string{
		"§1.2": {"First definitions sentence right here.", "Second definitions sentence right here."},
		"§1.3": {"First reporting sentence right here."},
	})
	small := Stitch(g, waypointsFor("§1.2", "§1.3"), gists, Params{Budget: 10})
	large := Stitch(g, waypointsFor("§1.2", "§1.3"), gists, Params{Budget: 100})
	if len(large.Included) < len(small.Included) {
		t.Fatalf("larger budget included fewer gists: %d vs %d", len(large.Included), len(small.Included))
	}
	if large.TokensUsed < small.TokensUsed {
		t.Fatalf("larger budget used fewer tokens: %d vs %d", large.TokensUsed, small.TokensUsed)
	}
}
