package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/eval"
	"github.com/docustitch/backend/pkg/gist"
	"github.com/docustitch/backend/pkg/graph"
	"github.com/docustitch/backend/pkg/logger"
	"github.com/docustitch/backend/pkg/section"
	"github.com/docustitch/backend/pkg/stitch"
	"github.com/docustitch/backend/pkg/tokens"
	"github.com/docustitch/backend/pkg/waypoint"
)

// Inputs is everything one summarization run consumes. Sections and a
// budget are required; citation refs, similarity pairs, embedding vectors,
// lexicon and reference summary are all optional and the pipeline degrades
// gracefully without them.
type Inputs struct {
	Sections     []common.Section
	Citations    []common.CitationRef
	Similarities []common.SimilarityPair
	// SectionVectors lets the pipeline materialize similarity pairs itself
	// when none are supplied directly.
	SectionVectors map[string][]float32
	// SentenceVectors are per-section, parallel to the segmented sentences.
	SentenceVectors map[string][][]float32
	Lexicon         common.Lexicon
	Reference       string
}

// Config bundles the per-stage parameters of a run.
type Config struct {
	Graph     graph.Config
	Pairs     graph.PairParams
	Waypoints waypoint.Params
	Gists     gist.Params
	Budget    int
	Counter   common.TokenCounter
	// Workers bounds the goroutines used for per-waypoint gist extraction.
	Workers int
}

// DefaultConfig wires the documented per-stage defaults together.
func DefaultConfig(budget int) Config {
	return Config{
		Graph:     graph.DefaultConfig(),
		Pairs:     graph.DefaultPairParams(),
		Waypoints: waypoint.DefaultParams(),
		Gists:     gist.DefaultParams(),
		Budget:    budget,
		Workers:   4,
	}
}

// Result is the full artifact set of one run, shaped for persistence.
type Result struct {
	Snapshot  graph.Snapshot         `json:"graph"`
	Report    graph.BuildReport      `json:"report"`
	Waypoints []waypoint.Waypoint    `json:"waypoints"`
	Gists     map[string][]gist.Gist `json:"gists"`
	Stitch    stitch.Result          `json:"stitch"`
	Metrics   eval.Metrics           `json:"metrics"`
}

// Run executes the full pipeline: store, graph, waypoints, gists, stitch,
// evaluation. Stages run in order with a cancellation check between them;
// gist extraction fans out across waypoints since sections are independent
// at that stage. Identical inputs produce identical results.
func Run(ctx context.Context, in Inputs, config Config) (*Result, error) {
	counter := config.Counter
	if counter == nil {
		counter = tokens.Whitespace
	}
	config.Gists.Counter = counter

	store, err := section.NewStore(in.Sections)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	similarities := in.Similarities
	if len(similarities) == 0 && len(in.SectionVectors) > 0 {
		similarities, err = graph.MaterializePairs(ctx, store, in.SectionVectors, config.Pairs)
		if err != nil {
			return nil, err
		}
	}

	g, report, err := graph.Build(store, graph.BuildParams{
		Citations:    in.Citations,
		Similarities: similarities,
		Lexicon:      in.Lexicon,
		Config:       config.Graph,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	waypoints := waypoint.Select(g, config.Waypoints)
	logger.Debug("[Pipeline] Waypoints selected",
		"count", len(waypoints), "sections", store.Len(), "edges", g.EdgeCount())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gists, err := extractAll(ctx, store, waypoints, in.SentenceVectors, config)
	if err != nil {
		return nil, err
	}

	stitched := stitch.Stitch(g, waypoints, gists, stitch.Params{
		Budget:  config.Budget,
		Counter: counter,
	})

	sourceTokens := 0
	for _, sec := range store.All() {
		sourceTokens += counter(sec.Text)
	}
	metrics := eval.Evaluate(eval.Inputs{
		Result:       stitched,
		SourceTokens: sourceTokens,
		Reference:    in.Reference,
	})

	return &Result{
		Snapshot:  g.Snapshot(),
		Report:    *report,
		Waypoints: waypoints,
		Gists:     gists,
		Stitch:    stitched,
		Metrics:   metrics,
	}, nil
}

// extractAll runs gist extraction for every waypoint in parallel. Results
// land in a map keyed by section id, so completion order does not matter.
func extractAll(
	ctx context.Context,
	store *section.Store,
	waypoints []waypoint.Waypoint,
	sentenceVectors map[string][][]float32,
	config Config,
) (map[string][]gist.Gist, error) {
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}

	gists := make(map[string][]gist.Gist, len(waypoints))
	var mu sync.Mutex

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, wp := range waypoints {
		wp := wp
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			sec, ok := store.Get(wp.SectionID)
			if !ok {
				return nil
			}
			candidates := gist.BuildCandidates(sec, sentenceVectors[sec.ID])
			extracted := gist.Extract(candidates, config.Gists)
			mu.Lock()
			gists[sec.ID] = extracted
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return gists, nil
}
