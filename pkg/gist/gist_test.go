package gist

import (
	"strings"
	"testing"

	"github.com/docustitch/backend/pkg/common"
)

func TestSegment_LegalProse(t *testing.T) {
	text := "Each operator must file an annual report. Reports under §37.5(a) are due by March 1. " +
		"See 49 U.S.C. 60102 for the statutory basis. Short one."
	sentences := Segment(text)
	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences (short fragment dropped), got %d: %q", len(sentences), sentences)
	}
	if !strings.Contains(sentences[2], "U.S.C. 60102") {
		t.Fatalf("abbreviation split the statutory citation: %q", sentences[2])
	}
}

func TestSegment_Dehyphenation(t *testing.T) {
	sentences := Segment("The require-\nments apply to every covered facility.")
	if len(sentences) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(sentences))
	}
	if !strings.Contains(sentences[0], "requirements") {
		t.Fatalf("hyphenated word not rejoined: %q", sentences[0])
	}
}

func TestSegment_Empty(t *testing.T) {
	if got := Segment(""); len(got) != 0 {
		t.Fatalf("empty text should yield no sentences, got %q", got)
	}
	if got := Segment("one two"); len(got) != 0 {
		t.Fatalf("sub-minimum fragment should be dropped, got %q", got)
	}
}

func TestExtract_NearDuplicateExcluded(t *testing.T) {
	candidates := []Candidate{
		{SectionID: "§1.1", Index: 0, Text: "Operators must report all incidents.", Relevance: 0.9, Vector: []float32{1, 0, 0}},
		{SectionID: "§1.1", Index: 1, Text: "All incidents must be reported by operators.", Relevance: 0.4, Vector: []float32{0.99, 0.14, 0}},
		{SectionID: "§1.1", Index: 2, Text: "Audits are conducted every two years.", Relevance: 0.5, Vector: []float32{0.2, 1, 0}},
	}
	gists := Extract(candidates, Params{Lambda: 0.7, MaxPerSection: 6})

	// Candidate 1 is a near duplicate of candidate 0 (cosine ~0.99): its
	// marginal 0.7*0.4 - 0.3*0.99 is negative, so it must not be selected.
	if len(gists) != 2 {
		t.Fatalf("expected 2 gists, got %d: %+v", len(gists), gists)
	}
	for _, g := range gists {
		if g.Index == 1 {
			t.Fatalf("near-duplicate sentence selected: %+v", g)
		}
	}
	// Document order in the output.
	if gists[0].Index != 0 || gists[1].Index != 2 {
		t.Fatalf("gists not in document order: %+v", gists)
	}
	if gists[1].DiversityPenalty <= 0 {
		t.Fatalf("second pick should carry a diversity penalty, got %g", gists[1].DiversityPenalty)
	}
}

func TestExtract_CapAndDeterminism(t *testing.T) {
	var candidates []Candidate
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}, {0.5, 1}, {1, 0.5}}
	for i := 0; i < 5; i++ {
		candidates = append(candidates, Candidate{
			SectionID: "§1.1", Index: i,
			Text:      "Distinct requirement number " + strings.Repeat("x", i+1) + " applies here.",
			Relevance: 0.8,
			Vector:    vectors[i],
		})
	}
	first := Extract(candidates, Params{Lambda: 0.7, MaxPerSection: 2})
	if len(first) != 2 {
		t.Fatalf("cap not honored: got %d gists", len(first))
	}
	second := Extract(candidates, Params{Lambda: 0.7, MaxPerSection: 2})
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("extraction not deterministic at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestExtract_StopsAtNonPositiveMarginal(t *testing.T) {
	candidates := []Candidate{
		{SectionID: "§1.1", Index: 0, Text: "Only this sentence matters at all.", Relevance: 0.9, Vector: []float32{1, 0}},
		{SectionID: "§1.1", Index: 1, Text: "This sentence has zero relevance score.", Relevance: 0, Vector: []float32{0, 1}},
	}
	gists := Extract(candidates, Params{Lambda: 0.7, MaxPerSection: 6})
	if len(gists) != 1 {
		t.Fatalf("zero-relevance candidate selected: %+v", gists)
	}
}

func TestBuildCandidates_TermFallback(t *testing.T) {
	sec := common.Section{
		ID:      "§1.1",
		Heading: "Reporting",
		Text: "Operators must file incident reports with the administrator. " +
			"Incident reports must describe the cause of the failure. " +
			"The administrator publishes aggregate statistics every year.",
	}
	candidates := BuildCandidates(sec, nil)
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	for i, c := range candidates {
		if c.Relevance <= 0 {
			t.Fatalf("candidate %d has no term-frequency relevance: %+v", i, c)
		}
		if c.SectionID != "§1.1" || c.Index != i {
			t.Fatalf("candidate %d mislabeled: %+v", i, c)
		}
	}
}

func TestExtract_TokenCounter(t *testing.T) {
	counted := 0
	counter := common.TokenCounter(func(text string) int {
		counted++
		return len(text)
	})
	gists := Extract([]Candidate{
		{SectionID: "§1.1", Index: 0, Text: "A single fully relevant sentence here.", Relevance: 1, Vector: []float32{1}},
	}, Params{Counter: counter})
	if len(gists) != 1 || counted != 1 {
		t.Fatalf("token counter not used: gists=%d counted=%d", len(gists), counted)
	}
	if gists[0].Tokens != len(gists[0].Text) {
		t.Fatalf("tokens = %d, want %d", gists[0].Tokens, len(gists[0].Text))
	}
}
