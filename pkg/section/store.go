package section

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/docustitch/backend/internal/util"
	"github.com/docustitch/backend/pkg/common"
)

// MalformedInputError wraps validation failures in the input sections. It is
// the only fatal error class in the pipeline: a store that fails to build
// aborts the run before any graph work starts.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: %s", e.Reason)
}

var overviewHeadingRe = regexp.MustCompile(`(?i)\b(purpose|scope|overview|general)\b`)

// Store is the normalized, read-only view of a document's sections. It is
// built once per document; everything downstream (graph, waypoints, gists,
// stitched summaries) is derived from it and recomputed per run.
type Store struct {
	sections []common.Section
	index    map[string]int
	children map[string][]string
	roots    []string
}

// NewStore validates and indexes the given sections. Section ids are
// canonicalized, the slice is ordered by ordinal, and parent links are
// checked to form a forest. Returns *MalformedInputError on missing ids,
// duplicate ids, or parents that do not exist.
func NewStore(sections []common.Section) (*Store, error) {
	if len(sections) == 0 {
		return nil, &MalformedInputError{Reason: "document has no sections"}
	}

	normalized := make([]common.Section, len(sections))
	copy(normalized, sections)
	for i := range normalized {
		normalized[i].ID = util.NormalizeSectionID(normalized[i].ID)
		normalized[i].ParentID = util.NormalizeSectionID(normalized[i].ParentID)
		if normalized[i].ID == "" {
			return nil, &MalformedInputError{Reason: fmt.Sprintf("section at input position %d has no id", i)}
		}
	}

	sort.SliceStable(normalized, func(a, b int) bool {
		return normalized[a].Ordinal < normalized[b].Ordinal
	})

	index := make(map[string]int, len(normalized))
	for i, sec := range normalized {
		if _, exists := index[sec.ID]; exists {
			return nil, &MalformedInputError{Reason: fmt.Sprintf("duplicate section id %q", sec.ID)}
		}
		index[sec.ID] = i
	}

	children := make(map[string][]string)
	var roots []string
	for _, sec := range normalized {
		if sec.ParentID == "" {
			roots = append(roots, sec.ID)
			continue
		}
		if _, ok := index[sec.ParentID]; !ok {
			return nil, &MalformedInputError{Reason: fmt.Sprintf("section %q references unknown parent %q", sec.ID, sec.ParentID)}
		}
		if sec.ParentID == sec.ID {
			return nil, &MalformedInputError{Reason: fmt.Sprintf("section %q is its own parent", sec.ID)}
		}
		children[sec.ParentID] = append(children[sec.ParentID], sec.ID)
	}

	return &Store{
		sections: normalized,
		index:    index,
		children: children,
		roots:    roots,
	}, nil
}

// Len returns the number of sections.
func (s *Store) Len() int {
	return len(s.sections)
}

// All returns the sections in document order. Callers must not mutate the
// returned slice.
func (s *Store) All() []common.Section {
	return s.sections
}

// Get returns the section with the given (canonicalized) id.
func (s *Store) Get(id string) (common.Section, bool) {
	i, ok := s.index[util.NormalizeSectionID(id)]
	if !ok {
		return common.Section{}, false
	}
	return s.sections[i], true
}

// Index returns the document-order position of the given section id.
func (s *Store) Index(id string) (int, bool) {
	i, ok := s.index[util.NormalizeSectionID(id)]
	return i, ok
}

// At returns the section at document-order position i.
func (s *Store) At(i int) common.Section {
	return s.sections[i]
}

// Children returns the ids of the direct children of the given section,
// in document order.
func (s *Store) Children(id string) []string {
	kids := s.children[util.NormalizeSectionID(id)]
	sorted := make([]string, len(kids))
	copy(sorted, kids)
	sort.Slice(sorted, func(a, b int) bool {
		return s.index[sorted[a]] < s.index[sorted[b]]
	})
	return sorted
}

// Parent returns the parent section, if any.
func (s *Store) Parent(id string) (common.Section, bool) {
	sec, ok := s.Get(id)
	if !ok || sec.ParentID == "" {
		return common.Section{}, false
	}
	return s.Get(sec.ParentID)
}

// Siblings reports whether two sections share the same non-empty parent.
func (s *Store) Siblings(a, b string) bool {
	sa, oka := s.Get(a)
	sb, okb := s.Get(b)
	if !oka || !okb || sa.ID == sb.ID {
		return false
	}
	return sa.ParentID != "" && sa.ParentID == sb.ParentID
}

// Roots returns the root-level section ids in document order.
func (s *Store) Roots() []string {
	return s.roots
}

// Overview returns the document's root-level overview section: the first
// root whose heading names the document's purpose or scope, or the first
// root section when no heading matches. Only a document without roots has
// no overview.
func (s *Store) Overview() (common.Section, bool) {
	for _, id := range s.roots {
		sec := s.sections[s.index[id]]
		if overviewHeadingRe.MatchString(sec.Heading) {
			return sec, true
		}
	}
	if len(s.roots) > 0 {
		return s.sections[s.index[s.roots[0]]], true
	}
	return common.Section{}, false
}
