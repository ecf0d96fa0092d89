package graph

import (
	"sort"

	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/section"
)

// EdgeKind distinguishes citation-derived edges from similarity-derived ones.
type EdgeKind string

const (
	EdgeExplicit EdgeKind = "explicit"
	EdgeImplicit EdgeKind = "implicit"
)

// Edge is a weighted directed relation between two sections, addressed by
// arena index rather than id so traversal never chases pointers.
type Edge struct {
	Source     int
	Target     int
	Kind       EdgeKind
	Weight     float64
	Confidence float64
	Mentions   int
}

// Graph is the merged dependency graph over a document's sections. Node
// indices are the section store's document-order positions, so index i in
// every per-node slice refers to store.At(i).
//
// Importance scores are cached per graph instance and invalidated by any
// mutation; the cache is never shared across runs.
type Graph struct {
	store *section.Store
	edges []Edge
	out   [][]int // per node: indices into edges
	in    [][]int

	lexicon common.Lexicon
	config  Config

	scores      []float64
	scoresValid bool
}

// New creates an empty graph over the given section store.
func New(store *section.Store, lexicon common.Lexicon, config Config) *Graph {
	n := store.Len()
	return &Graph{
		store:   store,
		out:     make([][]int, n),
		in:      make([][]int, n),
		lexicon: lexicon,
		config:  config,
	}
}

// Store returns the section store the graph was built over.
func (g *Graph) Store() *section.Store {
	return g.store
}

// NodeCount returns the number of sections in the graph's arena.
func (g *Graph) NodeCount() int {
	return g.store.Len()
}

// EdgeCount returns the number of merged edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Edges returns all edges. Callers must not mutate the slice.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// OutEdges returns the edges leaving node i.
func (g *Graph) OutEdges(i int) []Edge {
	res := make([]Edge, 0, len(g.out[i]))
	for _, e := range g.out[i] {
		res = append(res, g.edges[e])
	}
	return res
}

// InEdges returns the edges entering node i.
func (g *Graph) InEdges(i int) []Edge {
	res := make([]Edge, 0, len(g.in[i]))
	for _, e := range g.in[i] {
		res = append(res, g.edges[e])
	}
	return res
}

// addEdge inserts or merges a directed edge. Self-loops are ignored.
// Duplicate (pair, kind) edges keep the maximum weight; an explicit and an
// implicit edge on the same pair merge into one blended explicit-backed
// edge. Any insertion invalidates the importance cache.
func (g *Graph) addEdge(edge Edge) {
	if edge.Source == edge.Target {
		return
	}
	g.scoresValid = false
	for _, ei := range g.out[edge.Source] {
		existing := &g.edges[ei]
		if existing.Target != edge.Target {
			continue
		}
		if existing.Kind == edge.Kind {
			if edge.Weight > existing.Weight {
				existing.Weight = edge.Weight
			}
			if edge.Confidence > existing.Confidence {
				existing.Confidence = edge.Confidence
			}
			existing.Mentions += edge.Mentions
			return
		}
		// Pair carries both signals: blend into a single edge. The blended
		// weight is alpha-scaled explicit evidence plus (1-alpha)-scaled
		// similarity, which both inputs already are.
		existing.Weight += edge.Weight
		existing.Kind = EdgeExplicit
		if edge.Confidence > existing.Confidence {
			existing.Confidence = edge.Confidence
		}
		existing.Mentions += edge.Mentions
		return
	}
	g.edges = append(g.edges, edge)
	ei := len(g.edges) - 1
	g.out[edge.Source] = append(g.out[edge.Source], ei)
	g.in[edge.Target] = append(g.in[edge.Target], ei)
}

// AddEdgeByID inserts a directed edge between two known sections, merging
// with any existing edge on the pair. The importance cache is invalidated.
func (g *Graph) AddEdgeByID(sourceID, targetID string, kind EdgeKind, weight, confidence float64) bool {
	src, okSrc := g.store.Index(sourceID)
	dst, okDst := g.store.Index(targetID)
	if !okSrc || !okDst {
		return false
	}
	g.addEdge(Edge{Source: src, Target: dst, Kind: kind, Weight: weight, Confidence: confidence})
	return true
}

// NodeSnapshot is one node of a persisted graph snapshot.
type NodeSnapshot struct {
	SectionID  string  `json:"section_id"`
	Heading    string  `json:"heading,omitempty"`
	Importance float64 `json:"importance"`
}

// EdgeSnapshot is one edge of a persisted graph snapshot.
type EdgeSnapshot struct {
	SourceID   string   `json:"source_id"`
	TargetID   string   `json:"target_id"`
	Kind       EdgeKind `json:"kind"`
	Weight     float64  `json:"weight"`
	Confidence float64  `json:"confidence"`
	Mentions   int      `json:"mentions,omitempty"`
}

// Snapshot is the persistable, deterministic projection of a graph: nodes
// in document order with their importance, edges sorted by (source, target).
type Snapshot struct {
	Nodes []NodeSnapshot `json:"nodes"`
	Edges []EdgeSnapshot `json:"edges"`
}

// Snapshot renders the graph into its persistable form. The same graph and
// lexicon always produce an identical snapshot.
func (g *Graph) Snapshot() Snapshot {
	scores := g.ImportanceScores()
	nodes := make([]NodeSnapshot, g.NodeCount())
	for i := range nodes {
		sec := g.store.At(i)
		nodes[i] = NodeSnapshot{
			SectionID:  sec.ID,
			Heading:    sec.Heading,
			Importance: scores[i],
		}
	}

	edges := make([]EdgeSnapshot, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, EdgeSnapshot{
			SourceID:   g.store.At(e.Source).ID,
			TargetID:   g.store.At(e.Target).ID,
			Kind:       e.Kind,
			Weight:     e.Weight,
			Confidence: e.Confidence,
			Mentions:   e.Mentions,
		})
	}
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].SourceID != edges[b].SourceID {
			return edges[a].SourceID < edges[b].SourceID
		}
		return edges[a].TargetID < edges[b].TargetID
	})

	return Snapshot{Nodes: nodes, Edges: edges}
}
