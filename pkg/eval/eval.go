package eval

import (
	"math"
	"strings"

	"github.com/docustitch/backend/pkg/gist"
	"github.com/docustitch/backend/pkg/stitch"
)

// Metrics scores a stitched summary. Metrics that need an input the run did
// not have (a reference summary, embedding vectors) stay nil rather than
// reporting a misleading zero.
type Metrics struct {
	// Coverage is the fraction of source sections that contributed at
	// least one gist to the summary.
	Coverage float64 `json:"coverage"`
	// Compression is summary tokens over source tokens.
	Compression float64 `json:"compression"`
	// Redundancy is the mean pairwise trigram overlap between included
	// gists; high values mean the diversity penalty failed to spread them.
	Redundancy float64 `json:"redundancy"`
	// RougeL is the LCS-based F1 against a reference summary, when one
	// was supplied.
	RougeL *float64 `json:"rouge_l,omitempty"`
	// SemanticSimilarity is the cosine between summary and source
	// embeddings, when an embedding backend produced them.
	SemanticSimilarity *float64 `json:"semantic_similarity,omitempty"`
}

// Inputs carries everything the evaluator can score against. Reference and
// the embedding pair are optional.
type Inputs struct {
	Result       stitch.Result
	SourceTokens int
	Reference    string
	SummaryVec   []float32
	SourceVec    []float32
}

// Evaluate computes all metrics the inputs allow.
func Evaluate(in Inputs) Metrics {
	m := Metrics{
		Coverage:   coverage(in.Result.Coverage),
		Redundancy: redundancy(in.Result.Included),
	}
	if in.SourceTokens > 0 {
		m.Compression = float64(in.Result.TokensUsed) / float64(in.SourceTokens)
	}
	if in.Reference != "" {
		score := RougeL(in.Result.Summary, in.Reference)
		m.RougeL = &score
	}
	if len(in.SummaryVec) > 0 && len(in.SourceVec) > 0 {
		score := cosine(in.SummaryVec, in.SourceVec)
		m.SemanticSimilarity = &score
	}
	return m
}

func coverage(records []stitch.Coverage) float64 {
	if len(records) == 0 {
		return 0
	}
	included := 0
	for _, c := range records {
		if c.Reason == stitch.CoverIncluded {
			included++
		}
	}
	return float64(included) / float64(len(records))
}

// redundancy averages the word-trigram Jaccard overlap over all gist pairs.
// A single gist is trivially non-redundant.
func redundancy(gists []gist.Gist) float64 {
	if len(gists) < 2 {
		return 0
	}
	grams := make([]map[string]bool, len(gists))
	for i, g := range gists {
		grams[i] = trigrams(g.Text)
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(grams); i++ {
		for j := i + 1; j < len(grams); j++ {
			sum += jaccard(grams[i], grams[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// RougeL is the F1 over the longest common word subsequence of candidate
// and reference, both lowercased.
func RougeL(candidate, reference string) float64 {
	cand := strings.Fields(strings.ToLower(candidate))
	ref := strings.Fields(strings.ToLower(reference))
	if len(cand) == 0 || len(ref) == 0 {
		return 0
	}
	lcs := lcsLength(cand, ref)
	if lcs == 0 {
		return 0
	}
	precision := float64(lcs) / float64(len(cand))
	recall := float64(lcs) / float64(len(ref))
	return 2 * precision * recall / (precision + recall)
}

// lcsLength runs the classic DP with two rolling rows.
func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func trigrams(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	grams := make(map[string]bool)
	for i := 0; i+2 < len(words); i++ {
		grams[words[i]+" "+words[i+1]+" "+words[i+2]] = true
	}
	return grams
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for g := range a {
		if b[g] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
