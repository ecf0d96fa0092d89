package common

// Section is one immutable, normalized unit of a source document. Sections
// arrive pre-parsed from an upstream extractor; the core never touches raw
// XML or PDF.
//
// Ordinal defines document order and is a total order within a document.
// ParentID is empty for root-level sections; the parent links form a forest.
type Section struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Heading  string `json:"heading"`
	Text     string `json:"text"`
	Ordinal  int    `json:"ordinal"`
}

// CitationRef is a raw directed citation discovered by the upstream
// reference extractor. TargetID may point at an unknown section; the graph
// builder drops and reports such orphans instead of failing.
type CitationRef struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	RawText  string `json:"raw_text,omitempty"`
}

// SimilarityPair is an undirected semantic relation between two sections,
// scored in [0,1]. Pairs are either supplied directly or materialized from
// externally produced embedding vectors.
type SimilarityPair struct {
	SectionA string  `json:"section_a"`
	SectionB string  `json:"section_b"`
	Score    float64 `json:"score"`
}

// Lexicon maps a salient term to its externally mined weight. Terms are
// matched case-insensitively against section headings and bodies.
type Lexicon map[string]float64

// TokenCounter reports the token count of a text span. The exact counting
// scheme belongs to the consumer (usually a model tokenizer), so it is
// injected rather than fixed.
type TokenCounter func(text string) int
