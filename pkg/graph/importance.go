package graph

import (
	"regexp"
	"strings"
)

// ImportanceScores returns the per-section importance vector, indexed by
// document-order position. Scores are a fixed linear blend of weighted
// PageRank centrality, normalized in-weight, and the section's lexicon
// salience; a graph without edges degrades to lexicon-only scoring.
//
// The result is cached on the graph and recomputed only after a mutation.
func (g *Graph) ImportanceScores() []float64 {
	if g.scoresValid {
		return g.scores
	}

	n := g.NodeCount()
	lexicon := normalize(g.lexiconScores())

	var scores []float64
	if len(g.edges) == 0 {
		// Degenerate graph: the lexicon signal is all we have.
		scores = lexicon
	} else {
		centrality := normalize(g.pagerank())
		inWeight := make([]float64, n)
		for i := 0; i < n; i++ {
			for _, ei := range g.in[i] {
				inWeight[i] += g.edges[ei].Weight
			}
		}
		inWeight = normalize(inWeight)

		scores = make([]float64, n)
		for i := 0; i < n; i++ {
			scores[i] = g.config.CentralityWeight*centrality[i] +
				g.config.InDegreeWeight*inWeight[i] +
				g.config.LexiconWeight*lexicon[i]
		}
	}

	g.scores = scores
	g.scoresValid = true
	return scores
}

// ImportanceFor returns the importance of one section by id.
func (g *Graph) ImportanceFor(id string) (float64, bool) {
	i, ok := g.store.Index(id)
	if !ok {
		return 0, false
	}
	return g.ImportanceScores()[i], true
}

// pagerank runs weighted PageRank over the merged graph. Important
// sections are the ones other important sections depend on, so rank flows
// along edges from citing section to cited section. Dangling mass is
// redistributed uniformly; iteration stops at Tolerance on the L1 delta.
func (g *Graph) pagerank() []float64 {
	n := g.NodeCount()
	rank := make([]float64, n)
	next := make([]float64, n)
	outWeight := make([]float64, n)
	for i := 0; i < n; i++ {
		rank[i] = 1.0 / float64(n)
		for _, ei := range g.out[i] {
			outWeight[i] += g.edges[ei].Weight
		}
	}

	d := g.config.Damping
	for iter := 0; iter < g.config.MaxIterations; iter++ {
		dangling := 0.0
		for i := 0; i < n; i++ {
			next[i] = (1 - d) / float64(n)
			if outWeight[i] == 0 {
				dangling += rank[i]
			}
		}
		for i := 0; i < n; i++ {
			if outWeight[i] == 0 {
				continue
			}
			share := d * rank[i] / outWeight[i]
			for _, ei := range g.out[i] {
				edge := g.edges[ei]
				next[edge.Target] += share * edge.Weight
			}
		}
		if dangling > 0 {
			spread := d * dangling / float64(n)
			for i := 0; i < n; i++ {
				next[i] += spread
			}
		}

		delta := 0.0
		for i := 0; i < n; i++ {
			diff := next[i] - rank[i]
			if diff < 0 {
				diff = -diff
			}
			delta += diff
		}
		rank, next = next, rank
		if delta < g.config.Tolerance {
			break
		}
	}
	return rank
}

// lexiconScores computes the weighted lexicon-term hit score per section,
// matching whole terms case-insensitively (spaces and hyphens in a phrase
// are interchangeable) against heading plus body.
func (g *Graph) lexiconScores() []float64 {
	n := g.NodeCount()
	scores := make([]float64, n)
	if len(g.lexicon) == 0 {
		return scores
	}

	type termMatcher struct {
		re     *regexp.Regexp
		weight float64
	}
	matchers := make([]termMatcher, 0, len(g.lexicon))
	for term, weight := range g.lexicon {
		term = strings.TrimSpace(strings.ToLower(term))
		if term == "" {
			continue
		}
		pattern := strings.ReplaceAll(regexp.QuoteMeta(term), ` `, `[\s\-]+`)
		re, err := regexp.Compile(`(?i)\b` + pattern + `\b`)
		if err != nil {
			continue
		}
		matchers = append(matchers, termMatcher{re: re, weight: weight})
	}

	for i := 0; i < n; i++ {
		sec := g.store.At(i)
		hay := sec.Heading + "\n" + sec.Text
		for _, m := range matchers {
			if m.re.MatchString(hay) {
				scores[i] += m.weight
			}
		}
	}
	return scores
}

// normalize rescales a vector to [0,1] by its maximum. A flat or empty
// vector normalizes to all zeros.
func normalize(v []float64) []float64 {
	maxVal := 0.0
	for _, x := range v {
		if x > maxVal {
			maxVal = x
		}
	}
	out := make([]float64, len(v))
	if maxVal == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / maxVal
	}
	return out
}
