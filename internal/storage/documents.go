package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pgvector/pgvector-go"

	"github.com/docustitch/backend/internal/util"
	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/logger"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists documents, their sections and relation evidence, and
// summarization runs.
type Store struct {
	conn *pgxpool.Pool
}

// NewStore creates a Store over an existing pool.
func NewStore(conn *pgxpool.Pool) *Store {
	return &Store{conn: conn}
}

// Document is a stored source document.
type Document struct {
	ID       int64  `json:"-"`
	PublicID string `json:"id"`
	Title    string `json:"title"`
	Sections int    `json:"sections"`
	// AvailableBudgets lists the distinct budgets of completed runs,
	// ascending, so a caller can pick a summary that already exists.
	AvailableBudgets []int     `json:"available_budgets"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// normalizeBudgets collapses raw run budgets into a sorted distinct list.
// Never nil, so the JSON shape stays an array.
func normalizeBudgets(raw []int32) []int {
	seen := make(map[int]bool, len(raw))
	budgets := make([]int, 0, len(raw))
	for _, b := range raw {
		v := int(b)
		if seen[v] {
			continue
		}
		seen[v] = true
		budgets = append(budgets, v)
	}
	sort.Ints(budgets)
	return budgets
}

// CreateDocument stores a document with its sections, citation refs and
// lexicon in one transaction, so a half-ingested document never becomes
// visible.
func (s *Store) CreateDocument(
	ctx context.Context,
	title string,
	sections []common.Section,
	citations []common.CitationRef,
	lexicon common.Lexicon,
) (*Document, error) {
	publicID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	doc := &Document{PublicID: publicID, Title: title, Sections: len(sections), AvailableBudgets: []int{}}
	err = tx.QueryRow(ctx,
		`INSERT INTO documents (public_id, title) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		publicID, title,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, sec := range sections {
		_, err = tx.Exec(ctx,
			`INSERT INTO sections (document_id, section_id, parent_id, heading, body, ordinal)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			doc.ID, sec.ID, sec.ParentID, sec.Heading, util.SanitizePostgresText(sec.Text), sec.Ordinal,
		)
		if err != nil {
			return nil, err
		}
	}
	for _, ref := range citations {
		_, err = tx.Exec(ctx,
			`INSERT INTO citation_refs (document_id, source_id, target_id, raw_text)
			 VALUES ($1, $2, $3, $4)`,
			doc.ID, ref.SourceID, ref.TargetID, util.SanitizePostgresText(ref.RawText),
		)
		if err != nil {
			return nil, err
		}
	}
	for term, weight := range lexicon {
		_, err = tx.Exec(ctx,
			`INSERT INTO lexicon_terms (document_id, term, weight) VALUES ($1, $2, $3)
			 ON CONFLICT (document_id, term) DO UPDATE SET weight = EXCLUDED.weight`,
			doc.ID, term, weight,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	logger.Debug("[Storage] Document created",
		"document", publicID, "sections", len(sections), "citations", len(citations))
	return doc, nil
}

// GetDocument resolves a document by its public id.
func (s *Store) GetDocument(ctx context.Context, publicID string) (*Document, error) {
	doc := &Document{}
	var budgets []int32
	err := s.conn.QueryRow(ctx,
		`SELECT d.id, d.public_id, d.title, d.created_at, d.updated_at,
		        (SELECT count(*) FROM sections s WHERE s.document_id = d.id),
		        (SELECT coalesce(array_agg(r.budget), '{}') FROM runs r
		         WHERE r.document_id = d.id AND r.status = 'completed')
		 FROM documents d WHERE d.public_id = $1`,
		publicID,
	).Scan(&doc.ID, &doc.PublicID, &doc.Title, &doc.CreatedAt, &doc.UpdatedAt, &doc.Sections, &budgets)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.AvailableBudgets = normalizeBudgets(budgets)
	return doc, nil
}

// ListDocuments returns all documents, newest first, each with the budgets
// its completed runs already cover.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT d.id, d.public_id, d.title, d.created_at, d.updated_at,
		        (SELECT count(*) FROM sections s WHERE s.document_id = d.id),
		        (SELECT coalesce(array_agg(r.budget), '{}') FROM runs r
		         WHERE r.document_id = d.id AND r.status = 'completed')
		 FROM documents d ORDER BY d.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var budgets []int32
		if err := rows.Scan(&doc.ID, &doc.PublicID, &doc.Title, &doc.CreatedAt, &doc.UpdatedAt, &doc.Sections, &budgets); err != nil {
			return nil, err
		}
		doc.AvailableBudgets = normalizeBudgets(budgets)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetSections returns a document's sections in document order.
func (s *Store) GetSections(ctx context.Context, documentID int64) ([]common.Section, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT section_id, parent_id, heading, body, ordinal
		 FROM sections WHERE document_id = $1 ORDER BY ordinal`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []common.Section
	for rows.Next() {
		var sec common.Section
		if err := rows.Scan(&sec.ID, &sec.ParentID, &sec.Heading, &sec.Text, &sec.Ordinal); err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// GetCitations returns a document's raw citation refs.
func (s *Store) GetCitations(ctx context.Context, documentID int64) ([]common.CitationRef, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT source_id, target_id, raw_text FROM citation_refs WHERE document_id = $1 ORDER BY id`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []common.CitationRef
	for rows.Next() {
		var ref common.CitationRef
		if err := rows.Scan(&ref.SourceID, &ref.TargetID, &ref.RawText); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// GetLexicon returns a document's mined lexicon, possibly empty.
func (s *Store) GetLexicon(ctx context.Context, documentID int64) (common.Lexicon, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT term, weight FROM lexicon_terms WHERE document_id = $1`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lexicon := common.Lexicon{}
	for rows.Next() {
		var term string
		var weight float64
		if err := rows.Scan(&term, &weight); err != nil {
			return nil, err
		}
		lexicon[term] = weight
	}
	return lexicon, rows.Err()
}

// SectionsMissingEmbedding lists section ids without a stored vector, in
// document order.
func (s *Store) SectionsMissingEmbedding(ctx context.Context, documentID int64) ([]string, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT section_id FROM sections
		 WHERE document_id = $1 AND embedding IS NULL ORDER BY ordinal`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveSectionEmbeddings stores vectors for the given sections in one
// transaction.
func (s *Store) SaveSectionEmbeddings(ctx context.Context, documentID int64, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for sectionID, vec := range vectors {
		_, err = tx.Exec(ctx,
			`UPDATE sections SET embedding = $3 WHERE document_id = $1 AND section_id = $2`,
			documentID, sectionID, pgvector.NewVector(vec))
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetSectionEmbeddings returns every stored section vector for a document.
func (s *Store) GetSectionEmbeddings(ctx context.Context, documentID int64) (map[string][]float32, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT section_id, embedding FROM sections
		 WHERE document_id = $1 AND embedding IS NOT NULL`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vectors := map[string][]float32{}
	for rows.Next() {
		var id string
		var vec pgvector.Vector
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, err
		}
		vectors[id] = vec.Slice()
	}
	return vectors, rows.Err()
}
