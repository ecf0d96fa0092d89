package eval

import (
	"testing"

	"github.com/docustitch/backend/pkg/gist"
	"github.com/docustitch/backend/pkg/stitch"
)

func TestEvaluate_CoverageAndCompression(t *testing.T) {
	m := Evaluate(Inputs{
		Result: stitch.Result{
			TokensUsed: 50,
			Coverage: []stitch.Coverage{
				{SectionID: "§1.1", Reason: stitch.CoverIncluded},
				{SectionID: "§1.2", Reason: stitch.CoverBudget},
				{SectionID: "§1.3", Reason: stitch.CoverIncluded},
				{SectionID: "§1.4", Reason: stitch.CoverNotSelected},
			},
		},
		SourceTokens: 500,
	})
	if m.Coverage != 0.5 {
		t.Fatalf("coverage = %g, want 0.5", m.Coverage)
	}
	if m.Compression != 0.1 {
		t.Fatalf("compression = %g, want 0.1", m.Compression)
	}
	if m.RougeL != nil || m.SemanticSimilarity != nil {
		t.Fatal("optional metrics must stay nil without their inputs")
	}
}

func TestRougeL(t *testing.T) {
	if got := RougeL("operators must file reports", "operators must file reports"); got != 1 {
		t.Fatalf("identical texts should score 1, got %g", got)
	}
	if got := RougeL("alpha beta gamma", "delta epsilon zeta"); got != 0 {
		t.Fatalf("disjoint texts should score 0, got %g", got)
	}
	if got := RougeL("", "reference"); got != 0 {
		t.Fatalf("empty candidate should score 0, got %g", got)
	}
	partial := RougeL("operators must file annual reports", "operators file reports")
	if partial <= 0 || partial >= 1 {
		t.Fatalf("partial overlap should land strictly between 0 and 1, got %g", partial)
	}
}

func TestRedundancy(t *testing.T) {
	distinct := Evaluate(Inputs{Result: stitch.Result{Included: []gist.Gist{
		{Text: "Operators must file annual incident reports."},
		{Text: "Audits happen every two calendar years."},
	}}})
	duplicated := Evaluate(Inputs{Result: stitch.Result{Included: []gist.Gist{
		{Text: "Operators must file annual incident reports."},
		{Text: "Operators must file annual incident reports."},
	}}})
	if duplicated.Redundancy <= distinct.Redundancy {
		t.Fatalf("duplicate gists must score more redundant: %g vs %g",
			duplicated.Redundancy, distinct.Redundancy)
	}
	if duplicated.Redundancy != 1 {
		t.Fatalf("identical gists should score 1, got %g", duplicated.Redundancy)
	}
	single := Evaluate(Inputs{Result: stitch.Result{Included: []gist.Gist{{Text: "Just one gist."}}}})
	if single.Redundancy != 0 {
		t.Fatalf("single gist redundancy = %g, want 0", single.Redundancy)
	}
}

func TestEvaluate_SemanticSimilarity(t *testing.T) {
	m := Evaluate(Inputs{
		Result:     stitch.Result{},
		SummaryVec: []float32{1, 0},
		SourceVec:  []float32{1, 0},
	})
	if m.SemanticSimilarity == nil {
		t.Fatal("expected semantic similarity")
	}
	if diff := *m.SemanticSimilarity - 1; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("parallel vectors should score 1, got %g", *m.SemanticSimilarity)
	}
}
