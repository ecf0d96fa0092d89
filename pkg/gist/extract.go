package gist

import (
	"math"
	"sort"
	"strings"

	"github.com/docustitch/backend/pkg/common"
)

// Candidate is one sentence of a section, scored for extraction. Index is
// the sentence's position within the section and defines document order.
type Candidate struct {
	SectionID string
	Index     int
	Text      string
	Relevance float64
	Vector    []float32
}

// Gist is an extracted sentence with the scores that selected it.
type Gist struct {
	SectionID        string  `json:"section_id"`
	Index            int     `json:"index"`
	Text             string  `json:"text"`
	Relevance        float64 `json:"relevance"`
	DiversityPenalty float64 `json:"diversity_penalty"`
	Tokens           int     `json:"tokens"`
}

// Params controls maximal-marginal-relevance extraction.
type Params struct {
	// Lambda trades relevance against redundancy: marginal score is
	// Lambda*relevance - (1-Lambda)*maxSimilarityToSelected.
	Lambda float64
	// MaxPerSection caps the gists extracted from one section.
	MaxPerSection int
	// Counter measures gist length; nil falls back to whitespace tokens.
	Counter common.TokenCounter
}

// DefaultParams returns the documented defaults: lambda 0.7, six gists
// per section.
func DefaultParams() Params {
	return Params{Lambda: 0.7, MaxPerSection: 6}
}

// BuildCandidates segments a section into sentences and scores each one's
// relevance. When per-sentence embedding vectors are supplied (parallel to
// the segmented sentences), relevance is cosine similarity to the section's
// vector centroid; otherwise a term-frequency cosine against the section's
// aggregate term profile stands in, so extraction degrades rather than
// fails without an embedding backend.
func BuildCandidates(sec common.Section, vectors [][]float32) []Candidate {
	sentences := Segment(sec.Text)
	if len(sentences) == 0 {
		return nil
	}
	candidates := make([]Candidate, len(sentences))
	for i, text := range sentences {
		candidates[i] = Candidate{SectionID: sec.ID, Index: i, Text: text}
		if i < len(vectors) && len(vectors[i]) > 0 {
			candidates[i].Vector = vectors[i]
		}
	}

	if embedded(candidates) {
		centroid := vectorCentroid(candidates)
		for i := range candidates {
			candidates[i].Relevance = cosine32(candidates[i].Vector, centroid)
		}
		return candidates
	}

	profiles := make([]map[string]float64, len(candidates))
	centroid := map[string]float64{}
	for i := range candidates {
		profiles[i] = termProfile(candidates[i].Text)
		for term, w := range profiles[i] {
			centroid[term] += w
		}
	}
	for i := range candidates {
		candidates[i].Relevance = cosineTerms(profiles[i], centroid)
	}
	return candidates
}

// Extract runs the MMR loop over a section's candidates: repeatedly take
// the candidate with the highest marginal score, stopping at the cap or as
// soon as no candidate has a positive marginal. Earlier sentences win score
// ties, so the same candidates always yield the same gists. The result is
// returned in document order.
func Extract(candidates []Candidate, params Params) []Gist {
	if len(candidates) == 0 {
		return nil
	}
	if params.Lambda <= 0 || params.Lambda > 1 {
		params.Lambda = DefaultParams().Lambda
	}
	if params.MaxPerSection <= 0 {
		params.MaxPerSection = DefaultParams().MaxPerSection
	}

	useVectors := embedded(candidates)
	var profiles []map[string]float64
	if !useVectors {
		profiles = make([]map[string]float64, len(candidates))
		for i := range candidates {
			profiles[i] = termProfile(candidates[i].Text)
		}
	}
	pairSim := func(a, b int) float64 {
		if useVectors {
			return cosine32(candidates[a].Vector, candidates[b].Vector)
		}
		return cosineTerms(profiles[a], profiles[b])
	}

	selected := make([]int, 0, params.MaxPerSection)
	picked := make([]bool, len(candidates))
	penalties := make([]float64, len(candidates))

	for len(selected) < params.MaxPerSection {
		bestIdx := -1
		bestMarginal := 0.0
		bestPenalty := 0.0
		for i := range candidates {
			if picked[i] {
				continue
			}
			maxSim := 0.0
			for _, s := range selected {
				if sim := pairSim(i, s); sim > maxSim {
					maxSim = sim
				}
			}
			penalty := (1 - params.Lambda) * maxSim
			marginal := params.Lambda*candidates[i].Relevance - penalty
			if marginal > bestMarginal ||
				(marginal == bestMarginal && bestIdx >= 0 && candidates[i].Index < candidates[bestIdx].Index) {
				bestIdx = i
				bestMarginal = marginal
				bestPenalty = penalty
			}
		}
		if bestIdx < 0 || bestMarginal <= 0 {
			break
		}
		picked[bestIdx] = true
		penalties[bestIdx] = bestPenalty
		selected = append(selected, bestIdx)
	}

	sort.Ints(selected)
	gists := make([]Gist, 0, len(selected))
	for _, i := range selected {
		c := candidates[i]
		gists = append(gists, Gist{
			SectionID:        c.SectionID,
			Index:            c.Index,
			Text:             c.Text,
			Relevance:        c.Relevance,
			DiversityPenalty: penalties[i],
			Tokens:           countTokens(c.Text, params.Counter),
		})
	}
	return gists
}

func countTokens(text string, counter common.TokenCounter) int {
	if counter != nil {
		return counter(text)
	}
	return len(strings.Fields(text))
}

func embedded(candidates []Candidate) bool {
	for _, c := range candidates {
		if len(c.Vector) == 0 {
			return false
		}
	}
	return len(candidates) > 0
}

func vectorCentroid(candidates []Candidate) []float32 {
	dim := len(candidates[0].Vector)
	centroid := make([]float32, dim)
	for _, c := range candidates {
		for i, x := range c.Vector {
			if i < dim {
				centroid[i] += x
			}
		}
	}
	for i := range centroid {
		centroid[i] /= float32(len(candidates))
	}
	return centroid
}

func cosine32(a, b []float32) float64 {
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

func termProfile(text string) map[string]float64 {
	profile := map[string]float64{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:()[]\"'§")
		if len(word) < 2 {
			continue
		}
		profile[word]++
	}
	return profile
}

func cosineTerms(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for term, wa := range a {
		na += wa * wa
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range b {
		nb += wb * wb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
