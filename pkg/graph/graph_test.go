package graph

import (
	"context"
	"testing"

	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/section"
)

func testStore(t *testing.T) *section.Store {
	t.Helper()
	store, err := section.NewStore([]common.Section{
		{ID: "§37.1", Heading: "Purpose and scope", Text: "This part sets reporting requirements.", Ordinal: 0},
		{ID: "§37.3", Heading: "Definitions", Text: "Definitions used in this part.", Ordinal: 1},
		{ID: "§37.5", Heading: "Reporting", Text: "Reports must follow §37.3 definitions.", Ordinal: 2},
		{ID: "§37.7", Heading: "Audits", Text: "Audits verify compliance with reporting.", Ordinal: 3},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestBuild_MergesExplicitAndImplicit(t *testing.T) {
	store := testStore(t)
	config := DefaultConfig()
	config.SimilarityFloor = 0.3

	g, report, err := Build(store, BuildParams{
		Citations: []common.CitationRef{
			{SourceID: "§37.5", TargetID: "§ 37.3", RawText: "§ 37.3"},
			{SourceID: "§37.5", TargetID: "§37.3(a)(1)", RawText: "§37.3(a)(1)"},
			{SourceID: "§37.7", TargetID: "§37.5", RawText: "§37.5"},
		},
		Similarities: []common.SimilarityPair{
			{SectionA: "§37.5", SectionB: "§37.3", Score: 0.8},
			{SectionA: "§37.1", SectionB: "§37.7", Score: 0.1}, // below floor
		},
		Config: config,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Degenerate {
		t.Fatal("graph should not be degenerate")
	}
	if report.ExplicitEdges != 2 {
		t.Fatalf("expected 2 explicit edges, got %d", report.ExplicitEdges)
	}
	if report.ImplicitEdges != 1 {
		t.Fatalf("expected 1 implicit edge above floor, got %d", report.ImplicitEdges)
	}

	// §37.5 -> §37.3 has both signals: alpha * (2/2) + (1-alpha) * 0.8.
	src, _ := store.Index("§37.5")
	dst, _ := store.Index("§37.3")
	var found *Edge
	for _, e := range g.OutEdges(src) {
		if e.Target == dst {
			edge := e
			found = &edge
		}
	}
	if found == nil {
		t.Fatal("merged edge from §37.5 to §37.3 missing")
	}
	want := config.ExplicitWeight*1.0 + config.ImplicitWeight*0.8
	if diff := found.Weight - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("blended weight = %g, want %g", found.Weight, want)
	}
	if found.Kind != EdgeExplicit {
		t.Fatalf("blended edge should keep the explicit kind, got %s", found.Kind)
	}
	if found.Mentions != 2 {
		t.Fatalf("mention count = %d, want 2", found.Mentions)
	}
}

func TestBuild_ReportsOrphans(t *testing.T) {
	store := testStore(t)
	_, report, err := Build(store, BuildParams{
		Citations: []common.CitationRef{
			{SourceID: "§37.5", TargetID: "§99.1", RawText: "§99.1"},
			{SourceID: "§37.5", TargetID: "§37.5", RawText: "§37.5"}, // self loop, dropped silently
			{SourceID: "§37.7", TargetID: "§37.5"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.OrphanCitations) != 1 || report.OrphanCitations[0].TargetID != "§99.1" {
		t.Fatalf("unexpected orphans: %+v", report.OrphanCitations)
	}
	if report.ExplicitEdges != 1 {
		t.Fatalf("expected 1 explicit edge, got %d", report.ExplicitEdges)
	}
}

func TestBuild_DegenerateFallsBackToLexicon(t *testing.T) {
	store := testStore(t)
	g, report, err := Build(store, BuildParams{
		Lexicon: common.Lexicon{"reporting": 1.0},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !report.Degenerate {
		t.Fatal("expected degenerate report")
	}
	scores := g.ImportanceScores()
	i1, _ := store.Index("§37.1")
	i3, _ := store.Index("§37.3")
	if scores[i1] <= scores[i3] {
		t.Fatalf("lexicon hit should outrank miss: %g vs %g", scores[i1], scores[i3])
	}
}

func TestImportance_CitedSectionRanksHigher(t *testing.T) {
	store := testStore(t)
	g, _, err := Build(store, BuildParams{
		Citations: []common.CitationRef{
			{SourceID: "§37.1", TargetID: "§37.3"},
			{SourceID: "§37.5", TargetID: "§37.3"},
			{SourceID: "§37.7", TargetID: "§37.3"},
			{SourceID: "§37.7", TargetID: "§37.5"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	scores := g.ImportanceScores()
	i3, _ := store.Index("§37.3")
	i7, _ := store.Index("§37.7")
	if scores[i3] <= scores[i7] {
		t.Fatalf("heavily cited §37.3 should outrank citing-only §37.7: %g vs %g", scores[i3], scores[i7])
	}
}

func TestImportance_CacheInvalidatedByMutation(t *testing.T) {
	store := testStore(t)
	g, _, err := Build(store, BuildParams{
		Citations: []common.CitationRef{{SourceID: "§37.5", TargetID: "§37.3"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	before := g.ImportanceScores()
	i7, _ := store.Index("§37.7")
	beforeScore := before[i7]

	if !g.AddEdgeByID("§37.1", "§37.7", EdgeExplicit, 0.6, 1.0) {
		t.Fatal("AddEdgeByID failed")
	}
	after := g.ImportanceScores()
	if after[i7] <= beforeScore {
		t.Fatalf("importance of §37.7 should rise after gaining an in-edge: %g vs %g", after[i7], beforeScore)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	bad := DefaultConfig()
	bad.ExplicitWeight = 0.9 // implicit stays 0.4
	if err := bad.Validate(); err == nil {
		t.Fatal("expected alpha blend validation failure")
	}

	bad = DefaultConfig()
	bad.LexiconWeight = 0.9
	if err := bad.Validate(); err == nil {
		t.Fatal("expected importance blend validation failure")
	}

	bad = DefaultConfig()
	bad.Damping = 1.5
	if err := bad.Validate(); err == nil {
		t.Fatal("expected damping range failure")
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	store := testStore(t)
	params := BuildParams{
		Citations: []common.CitationRef{
			{SourceID: "§37.5", TargetID: "§37.3"},
			{SourceID: "§37.7", TargetID: "§37.5"},
		},
		Similarities: []common.SimilarityPair{{SectionA: "§37.1", SectionB: "§37.3", Score: 0.9}},
		Lexicon:      common.Lexicon{"definitions": 0.5},
	}
	g1, _, err := Build(store, params)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g2, _, err := Build(store, params)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	s1, s2 := g1.Snapshot(), g2.Snapshot()
	if len(s1.Nodes) != len(s2.Nodes) || len(s1.Edges) != len(s2.Edges) {
		t.Fatal("snapshots differ in size")
	}
	for i := range s1.Nodes {
		if s1.Nodes[i] != s2.Nodes[i] {
			t.Fatalf("node %d differs: %+v vs %+v", i, s1.Nodes[i], s2.Nodes[i])
		}
	}
	for i := range s1.Edges {
		if s1.Edges[i] != s2.Edges[i] {
			t.Fatalf("edge %d differs: %+v vs %+v", i, s1.Edges[i], s2.Edges[i])
		}
	}
}

func TestMaterializePairs(t *testing.T) {
	store := testStore(t)
	vectors := map[string][]float32{
		"§37.1": {1, 0, 0},
		"§37.3": {0.9, 0.1, 0},
		"§37.5": {0, 1, 0},
		"§37.7": {0, 0, 1},
	}
	pairs, err := MaterializePairs(context.Background(), store, vectors, PairParams{
		Floor: 0.5, TopK: 2, Workers: 2,
	})
	if err != nil {
		t.Fatalf("MaterializePairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected one pair above floor, got %d: %+v", len(pairs), pairs)
	}
	got := pairs[0]
	if got.SectionA != "§37.1" || got.SectionB != "§37.3" {
		t.Fatalf("unexpected pair: %+v", got)
	}
	if got.Score <= 0.9 {
		t.Fatalf("cosine of near-parallel vectors should exceed 0.9, got %g", got.Score)
	}
}

func TestMaterializePairs_Canceled(t *testing.T) {
	store := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MaterializePairs(ctx, store, map[string][]float32{
		"§37.1": {1, 0}, "§37.3": {1, 0},
	}, DefaultPairParams())
	if err == nil {
		t.Fatal("expected context error")
	}
}
