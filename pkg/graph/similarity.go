package graph

import (
	"context"
	"math"
	"sort"

	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/section"

	"golang.org/x/sync/errgroup"
)

// PairParams controls similarity-pair materialization.
type PairParams struct {
	// Floor drops pairs scored below it. <= 0 derives the floor from the
	// observed distribution (Percentile of all positive scores).
	Floor      float64
	Percentile float64
	// TopK bounds the neighbors kept per section (0 keeps all above floor).
	TopK int
	// Workers bounds the goroutines used for the pairwise scan.
	Workers int
}

// DefaultPairParams mirrors the graph config defaults: top-decile floor,
// five neighbors per section.
func DefaultPairParams() PairParams {
	return PairParams{Percentile: 0.90, TopK: 5, Workers: 4}
}

// MaterializePairs scores every section pair by cosine similarity of the
// externally supplied embedding vectors and returns the pairs that survive
// the floor and the per-section top-K cut. Sections without a vector are
// skipped. The scan is sharded across workers; each pair is independent,
// so the only coordination is collecting results.
//
// Output is deterministic: pairs are deduplicated with A < B by document
// order and sorted by (A, B).
func MaterializePairs(
	ctx context.Context,
	store *section.Store,
	vectors map[string][]float32,
	params PairParams,
) ([]common.SimilarityPair, error) {
	n := store.Len()
	if n < 2 || len(vectors) == 0 {
		return nil, nil
	}
	if params.Workers <= 0 {
		params.Workers = 1
	}

	// Unit-normalize once so cosine reduces to a dot product.
	normed := make([][]float32, n)
	for i := 0; i < n; i++ {
		if vec, ok := vectors[store.At(i).ID]; ok && len(vec) > 0 {
			normed[i] = unitVector(vec)
		}
	}

	type neighbor struct {
		other int
		score float64
	}
	perSection := make([][]neighbor, n)

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(params.Workers)
	for i := 0; i < n; i++ {
		anchor := i
		if normed[anchor] == nil {
			continue
		}
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			var neighbors []neighbor
			for j := 0; j < n; j++ {
				if j == anchor || normed[j] == nil {
					continue
				}
				score := dot(normed[anchor], normed[j])
				if score > 0 {
					neighbors = append(neighbors, neighbor{other: j, score: score})
				}
			}
			sort.SliceStable(neighbors, func(a, b int) bool {
				return neighbors[a].score > neighbors[b].score
			})
			if params.TopK > 0 && len(neighbors) > params.TopK {
				neighbors = neighbors[:params.TopK]
			}
			perSection[anchor] = neighbors
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	floor := params.Floor
	if floor <= 0 {
		var all []float64
		for _, neighbors := range perSection {
			for _, nb := range neighbors {
				all = append(all, nb.score)
			}
		}
		if len(all) == 0 {
			return nil, nil
		}
		sort.Float64s(all)
		p := params.Percentile
		if p <= 0 || p > 1 {
			p = 0.90
		}
		floor = all[int(p*float64(len(all)-1))]
	}

	type key struct{ a, b int }
	best := make(map[key]float64)
	for i, neighbors := range perSection {
		for _, nb := range neighbors {
			if nb.score < floor {
				continue
			}
			a, b := i, nb.other
			if a > b {
				a, b = b, a
			}
			if nb.score > best[key{a, b}] {
				best[key{a, b}] = nb.score
			}
		}
	}

	keys := make([]key, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(x, y int) bool {
		if keys[x].a != keys[y].a {
			return keys[x].a < keys[y].a
		}
		return keys[x].b < keys[y].b
	})

	pairs := make([]common.SimilarityPair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, common.SimilarityPair{
			SectionA: store.At(k.a).ID,
			SectionB: store.At(k.b).ID,
			Score:    best[k],
		})
	}
	return pairs, nil
}

func unitVector(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
