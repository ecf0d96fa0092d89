package waypoint

import (
	"sort"

	"github.com/docustitch/backend/pkg/graph"
	"github.com/docustitch/backend/pkg/logger"
)

// Waypoint is a section selected as a high-value anchor for the summary,
// with the importance score that earned it and why it was picked.
type Waypoint struct {
	SectionID  string  `json:"section_id"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
	DocumentIx int     `json:"document_index"`
}

// Selection reasons.
const (
	ReasonOverview   = "overview"
	ReasonImportance = "importance"
)

// Params controls waypoint selection.
type Params struct {
	// MaxWaypoints bounds the selection. When 0 and Fraction > 0, the
	// bound is Fraction of the section count; when both are 0 the default
	// of 12 anchors applies.
	MaxWaypoints int
	Fraction     float64
	// SiblingGap is the importance gap two siblings must exceed for both
	// to be selected; below it the later sibling is skipped so anchors do
	// not cluster in one branch of the document tree.
	SiblingGap float64
}

// DefaultParams mirrors the documented defaults: 12 anchors, 0.15 gap.
func DefaultParams() Params {
	return Params{MaxWaypoints: 12, SiblingGap: 0.15}
}

// Select greedily picks the top-scored sections as waypoints.
//
// Candidates are ranked by importance with document order breaking ties, so
// the same graph and parameters always produce the same list in the same
// order. The sibling-spread rule suppresses a candidate whose sibling is
// already selected unless the importance gap between them exceeds
// SiblingGap, and the document's root-level overview section is always
// included when one exists. The result is bounded above by the configured
// count and may be smaller for short documents.
func Select(g *graph.Graph, params Params) []Waypoint {
	store := g.Store()
	scores := g.ImportanceScores()
	n := store.Len()

	limit := params.MaxWaypoints
	if limit <= 0 && params.Fraction > 0 {
		limit = int(params.Fraction * float64(n))
	}
	if limit <= 0 {
		limit = DefaultParams().MaxWaypoints
	}
	if limit > n {
		limit = n
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b] // earlier section wins the tie
	})

	selected := make([]Waypoint, 0, limit)
	taken := make(map[string]bool, limit)

	overviewID := ""
	if overview, ok := store.Overview(); ok {
		overviewID = overview.ID
	}

	for _, i := range order {
		if len(selected) == limit {
			break
		}
		sec := store.At(i)
		if sec.ID != overviewID && violatesSiblingSpread(g, selected, sec.ID, scores[i], params.SiblingGap) {
			continue
		}
		reason := ReasonImportance
		if sec.ID == overviewID {
			reason = ReasonOverview
		}
		selected = append(selected, Waypoint{
			SectionID:  sec.ID,
			Score:      scores[i],
			Reason:     reason,
			DocumentIx: i,
		})
		taken[sec.ID] = true
	}

	// The overview anchors the narrative: force it in, displacing the
	// weakest pick when the list is full.
	if overviewID != "" && !taken[overviewID] {
		i, _ := store.Index(overviewID)
		overview := Waypoint{
			SectionID:  overviewID,
			Score:      scores[i],
			Reason:     ReasonOverview,
			DocumentIx: i,
		}
		if len(selected) == limit && limit > 0 {
			logger.Debug("[Waypoint] Displacing weakest anchor for overview section",
				"displaced", selected[len(selected)-1].SectionID, "overview", overviewID)
			selected = selected[:len(selected)-1]
		}
		selected = append(selected, overview)
		sort.SliceStable(selected, func(a, b int) bool {
			if selected[a].Score != selected[b].Score {
				return selected[a].Score > selected[b].Score
			}
			return selected[a].DocumentIx < selected[b].DocumentIx
		})
	}

	return selected
}

// violatesSiblingSpread reports whether the candidate shares a parent with
// an already selected waypoint without the importance gap exceeding the
// threshold.
func violatesSiblingSpread(g *graph.Graph, selected []Waypoint, candidateID string, candidateScore, gap float64) bool {
	if gap <= 0 {
		return false
	}
	store := g.Store()
	for _, wp := range selected {
		if !store.Siblings(wp.SectionID, candidateID) {
			continue
		}
		diff := wp.Score - candidateScore
		if diff < 0 {
			diff = -diff
		}
		if diff <= gap {
			return true
		}
	}
	return false
}
