package graph

import "fmt"

// Config enumerates every tunable coefficient of the graph builder. All
// weights are explicit, validated fields; nothing is read from free-form
// maps. Zero values are replaced by the documented defaults via
// DefaultConfig, and Validate rejects blends that do not sum sensibly.
type Config struct {
	// ExplicitWeight is the contribution of citation evidence when an edge
	// has both signals. ImplicitWeight covers the similarity side; the two
	// must sum to 1.
	ExplicitWeight float64
	ImplicitWeight float64

	// SimilarityFloor drops implicit pairs scored below it. When <= 0 the
	// floor is derived from the observed distribution instead
	// (FloorPercentile of all positive scores).
	SimilarityFloor float64
	FloorPercentile float64

	// Importance blend. The three weights must sum to 1.
	CentralityWeight float64
	InDegreeWeight   float64
	LexiconWeight    float64

	// PageRank parameters for the centrality pass.
	Damping       float64
	MaxIterations int
	Tolerance     float64
}

// DefaultConfig returns the documented defaults: alpha 0.6 favoring
// structural citations, a top-decile similarity floor, and an importance
// blend of 0.45 centrality / 0.35 in-degree / 0.20 lexicon.
func DefaultConfig() Config {
	return Config{
		ExplicitWeight:   0.6,
		ImplicitWeight:   0.4,
		FloorPercentile:  0.90,
		CentralityWeight: 0.45,
		InDegreeWeight:   0.35,
		LexiconWeight:    0.20,
		Damping:          0.85,
		MaxIterations:    30,
		Tolerance:        1e-6,
	}
}

const blendTolerance = 1e-6

// Validate checks every coefficient range and that the two blends each sum
// to 1. Invalid configs are rejected before any graph is built.
func (c Config) Validate() error {
	inUnit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("graph config: %s must be in [0,1], got %g", name, v)
		}
		return nil
	}
	for name, v := range map[string]float64{
		"explicit_weight":   c.ExplicitWeight,
		"implicit_weight":   c.ImplicitWeight,
		"similarity_floor":  max(c.SimilarityFloor, 0),
		"floor_percentile":  c.FloorPercentile,
		"centrality_weight": c.CentralityWeight,
		"indegree_weight":   c.InDegreeWeight,
		"lexicon_weight":    c.LexiconWeight,
		"damping":           c.Damping,
	} {
		if err := inUnit(name, v); err != nil {
			return err
		}
	}
	if diff := c.ExplicitWeight + c.ImplicitWeight - 1; diff > blendTolerance || diff < -blendTolerance {
		return fmt.Errorf("graph config: explicit_weight + implicit_weight must sum to 1, got %g", c.ExplicitWeight+c.ImplicitWeight)
	}
	blend := c.CentralityWeight + c.InDegreeWeight + c.LexiconWeight
	if diff := blend - 1; diff > blendTolerance || diff < -blendTolerance {
		return fmt.Errorf("graph config: importance weights must sum to 1, got %g", blend)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("graph config: max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("graph config: tolerance must be positive, got %g", c.Tolerance)
	}
	return nil
}
