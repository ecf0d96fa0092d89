package graph

import (
	"sort"

	"github.com/docustitch/backend/internal/util"
	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/logger"
	"github.com/docustitch/backend/pkg/section"
)

// BuildParams carries the raw edge evidence for one document.
type BuildParams struct {
	Citations    []common.CitationRef
	Similarities []common.SimilarityPair
	Lexicon      common.Lexicon
	Config       Config
}

// BuildReport describes what the builder kept and dropped. Orphan
// citations are recovered, not fatal: they are excluded from the graph and
// surfaced here so callers can tell a sparse document from a lossy one.
type BuildReport struct {
	ExplicitEdges   int                  `json:"explicit_edges"`
	ImplicitEdges   int                  `json:"implicit_edges"`
	MergedEdges     int                  `json:"merged_edges"`
	OrphanCitations []common.CitationRef `json:"orphan_citations,omitempty"`
	SimilarityFloor float64              `json:"similarity_floor"`
	Degenerate      bool                 `json:"degenerate"`
}

// Build fuses explicit citations and implicit similarity pairs into one
// weighted dependency graph over the store's sections.
//
// Explicit mention counts are collapsed per (source, target) pair and
// normalized by the document's maximum count before the alpha blend.
// Implicit pairs below the similarity floor are not materialized; an
// undirected pair becomes a symmetric edge in both directions. A document
// with no usable edges at all is a legitimate degenerate case: the graph is
// still returned and importance falls back to lexicon-only scoring.
func Build(store *section.Store, params BuildParams) (*Graph, *BuildReport, error) {
	config := params.Config
	if config == (Config{}) {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	g := New(store, params.Lexicon, config)
	report := &BuildReport{}

	type pairKey struct{ src, dst int }

	// Collapse raw citations into per-pair mention counts, resolving
	// targets to canonical section ids. Unknown endpoints become orphans.
	mentions := make(map[pairKey]int)
	for _, ref := range params.Citations {
		src, okSrc := store.Index(ref.SourceID)
		dstID := util.CitationTargetBase(ref.TargetID)
		if dstID == "" {
			dstID = util.NormalizeSectionID(ref.TargetID)
		}
		dst, okDst := store.Index(dstID)
		if !okSrc || !okDst {
			report.OrphanCitations = append(report.OrphanCitations, ref)
			continue
		}
		if src == dst {
			continue
		}
		mentions[pairKey{src, dst}]++
	}

	maxMentions := 0
	for _, count := range mentions {
		if count > maxMentions {
			maxMentions = count
		}
	}

	// Deterministic insertion order.
	explicitKeys := make([]pairKey, 0, len(mentions))
	for key := range mentions {
		explicitKeys = append(explicitKeys, key)
	}
	sort.Slice(explicitKeys, func(a, b int) bool {
		if explicitKeys[a].src != explicitKeys[b].src {
			return explicitKeys[a].src < explicitKeys[b].src
		}
		return explicitKeys[a].dst < explicitKeys[b].dst
	})

	for _, key := range explicitKeys {
		count := mentions[key]
		g.addEdge(Edge{
			Source:     key.src,
			Target:     key.dst,
			Kind:       EdgeExplicit,
			Weight:     config.ExplicitWeight * float64(count) / float64(maxMentions),
			Confidence: 1.0,
			Mentions:   count,
		})
		report.ExplicitEdges++
	}

	floor := config.SimilarityFloor
	if floor <= 0 {
		floor = percentileFloor(params.Similarities, config.FloorPercentile)
	}
	report.SimilarityFloor = floor

	for _, pair := range params.Similarities {
		a, okA := store.Index(pair.SectionA)
		b, okB := store.Index(pair.SectionB)
		if !okA || !okB || a == b {
			continue
		}
		if pair.Score < floor || pair.Score <= 0 {
			continue
		}
		weight := config.ImplicitWeight * pair.Score
		g.addEdge(Edge{Source: a, Target: b, Kind: EdgeImplicit, Weight: weight, Confidence: pair.Score})
		g.addEdge(Edge{Source: b, Target: a, Kind: EdgeImplicit, Weight: weight, Confidence: pair.Score})
		report.ImplicitEdges++
	}

	report.MergedEdges = g.EdgeCount()
	if report.MergedEdges == 0 {
		report.Degenerate = true
		logger.Warn("[Graph] Document has no edges, importance degrades to lexicon-only scoring",
			"sections", store.Len(), "orphans", len(report.OrphanCitations))
	}

	return g, report, nil
}

// percentileFloor returns the p-th percentile of the positive similarity
// scores, so that by default only the top slice of the observed
// distribution is materialized. Returns 0 when nothing is observed.
func percentileFloor(pairs []common.SimilarityPair, p float64) float64 {
	scores := make([]float64, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Score > 0 {
			scores = append(scores, pair.Score)
		}
	}
	if len(scores) == 0 {
		return 0
	}
	sort.Float64s(scores)
	idx := int(p * float64(len(scores)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	return scores[idx]
}
