package stitch

import (
	"sort"
	"strings"

	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/gist"
	"github.com/docustitch/backend/pkg/graph"
	"github.com/docustitch/backend/pkg/logger"
	"github.com/docustitch/backend/pkg/waypoint"
)

// Coverage reasons, one per section of the source document.
const (
	CoverIncluded      = "included"       // at least one gist made the summary
	CoverBudget        = "budget"         // selected, but no gist fit the budget
	CoverGraphOrdering = "graph-ordering" // selected, excluded while breaking a citation cycle
	CoverNotSelected   = "not-selected"   // never selected as a waypoint
)

// Coverage records why a section did or did not contribute to the summary.
type Coverage struct {
	SectionID string `json:"section_id"`
	Reason    string `json:"reason"`
}

// Params controls stitching.
type Params struct {
	// Budget is the summary token budget. Headings count against it.
	Budget int
	// Counter measures rendered text; nil falls back to whitespace tokens.
	Counter common.TokenCounter
}

// Result is the stitched summary plus its full accounting.
type Result struct {
	Summary    string      `json:"summary"`
	Order      []string    `json:"order"`
	Included   []gist.Gist `json:"included"`
	Coverage   []Coverage  `json:"coverage"`
	Cyclic     []string    `json:"cyclic,omitempty"`
	TokensUsed int         `json:"tokens_used"`
	Budget     int         `json:"budget"`
	// BudgetTooSmall is set when the budget admitted nothing at all; the
	// summary is then empty rather than a truncated fragment.
	BudgetTooSmall bool `json:"budget_too_small,omitempty"`
}

// Stitch assembles the final summary from per-waypoint gists.
//
// Waypoints are ordered by the citation structure: a citing section
// precedes the sections it cites, so each anchor appears before the
// material it pulls in. Ordering is Kahn's algorithm over the explicit
// edges between waypoints, with document order breaking every tie;
// waypoints caught in a citation cycle cannot be ordered that way and are
// appended in document order instead, reported in Cyclic. Within a
// waypoint, gists stay in document order.
//
// The token budget is filled greedily in stitched order. A gist that does
// not fit is skipped whole, never truncated, and later smaller gists may
// still fit. When nothing fits, the summary is empty and BudgetTooSmall
// is set.
func Stitch(g *graph.Graph, waypoints []waypoint.Waypoint, gists map[string][]gist.Gist, params Params) Result {
	store := g.Store()
	ordered, cyclic := orderWaypoints(g, waypoints)

	result := Result{
		Budget: params.Budget,
		Cyclic: cyclic,
	}
	for _, wp := range ordered {
		result.Order = append(result.Order, wp.SectionID)
	}

	cyclicSet := make(map[string]bool, len(cyclic))
	for _, id := range cyclic {
		cyclicSet[id] = true
	}

	contributed := make(map[string]bool)
	var b strings.Builder
	used := 0
	for _, wp := range ordered {
		sectionGists := append([]gist.Gist(nil), gists[wp.SectionID]...)
		sort.SliceStable(sectionGists, func(a, c int) bool {
			return sectionGists[a].Index < sectionGists[c].Index
		})

		sec, _ := store.Get(wp.SectionID)
		header := renderHeader(sec)
		headerCost := countTokens(header, params.Counter)
		opened := false

		for _, gs := range sectionGists {
			cost := gs.Tokens
			if cost == 0 {
				cost = countTokens(gs.Text, params.Counter)
			}
			if !opened {
				cost += headerCost
			}
			if params.Budget <= 0 || used+cost > params.Budget {
				continue
			}
			if !opened {
				if b.Len() > 0 {
					b.WriteString("\n\n")
				}
				b.WriteString(header)
				b.WriteString("\n")
				opened = true
			} else {
				b.WriteString(" ")
			}
			b.WriteString(gs.Text)
			used += cost
			result.Included = append(result.Included, gs)
			contributed[wp.SectionID] = true
		}
	}

	result.Summary = b.String()
	result.TokensUsed = used
	if len(result.Included) == 0 {
		result.BudgetTooSmall = true
		result.Summary = ""
		logger.Warn("[Stitch] Budget admitted no gists", "budget", params.Budget)
	}

	waypointSet := make(map[string]bool, len(waypoints))
	for _, wp := range waypoints {
		waypointSet[wp.SectionID] = true
	}
	for _, sec := range store.All() {
		reason := CoverNotSelected
		switch {
		case contributed[sec.ID]:
			reason = CoverIncluded
		case waypointSet[sec.ID] && cyclicSet[sec.ID]:
			reason = CoverGraphOrdering
		case waypointSet[sec.ID]:
			reason = CoverBudget
		}
		result.Coverage = append(result.Coverage, Coverage{SectionID: sec.ID, Reason: reason})
	}

	return result
}

// orderWaypoints topologically sorts the waypoints along explicit citation
// edges, citing section first. The second return value lists the waypoints
// left unordered by a cycle, in document order; they are appended to the
// main order.
func orderWaypoints(g *graph.Graph, waypoints []waypoint.Waypoint) ([]waypoint.Waypoint, []string) {
	store := g.Store()

	byIndex := make(map[int]waypoint.Waypoint, len(waypoints))
	indices := make([]int, 0, len(waypoints))
	for _, wp := range waypoints {
		if i, ok := store.Index(wp.SectionID); ok {
			byIndex[i] = wp
			indices = append(indices, i)
		}
	}
	sort.Ints(indices)

	// successors[s] lists waypoints that s cites and so must come after it.
	// indeg counts how many citing waypoints each waypoint waits on.
	successors := make(map[int][]int, len(indices))
	indeg := make(map[int]int, len(indices))
	for _, i := range indices {
		indeg[i] += 0
		for _, e := range g.OutEdges(i) {
			if e.Kind != graph.EdgeExplicit {
				continue
			}
			if _, ok := byIndex[e.Target]; !ok {
				continue
			}
			successors[i] = append(successors[i], e.Target)
			indeg[e.Target]++
		}
	}

	var ready []int
	for _, i := range indices {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	ordered := make([]waypoint.Waypoint, 0, len(indices))
	done := make(map[int]bool, len(indices))
	for len(ready) > 0 {
		// Document order decides between simultaneously ready waypoints.
		i := ready[0]
		ready = ready[1:]
		done[i] = true
		ordered = append(ordered, byIndex[i])
		for _, succ := range successors[i] {
			indeg[succ]--
			if indeg[succ] == 0 {
				ready = insertSorted(ready, succ)
			}
		}
	}

	var cyclic []string
	for _, i := range indices {
		if !done[i] {
			cyclic = append(cyclic, byIndex[i].SectionID)
			ordered = append(ordered, byIndex[i])
		}
	}
	return ordered, cyclic
}

func insertSorted(s []int, v int) []int {
	pos := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[pos+1:], s[pos:])
	s[pos] = v
	return s
}

func renderHeader(sec common.Section) string {
	if sec.Heading == "" {
		return sec.ID
	}
	return sec.ID + " " + sec.Heading
}

func countTokens(text string, counter common.TokenCounter) int {
	if counter != nil {
		return counter(text)
	}
	return len(strings.Fields(text))
}
