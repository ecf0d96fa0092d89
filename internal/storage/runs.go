package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/docustitch/backend/pkg/logger"
)

// Run statuses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one summarization request over a document and its persisted
// outcome. Params holds the requested stage parameters as JSON; Artifacts
// holds the full pipeline result (graph snapshot, waypoints, coverage,
// metrics) once the run completes.
type Run struct {
	ID             int64           `json:"-"`
	PublicID       string          `json:"id"`
	DocumentID     int64           `json:"-"`
	Status         string          `json:"status"`
	Budget         int             `json:"budget"`
	Params         json.RawMessage `json:"params,omitempty"`
	Summary        *string         `json:"summary,omitempty"`
	RefinedSummary *string         `json:"refined_summary,omitempty"`
	Artifacts      json.RawMessage `json:"artifacts,omitempty"`
	ErrorMessage   *string         `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
}

// CreateRun enqueues a pending run for a document.
func (s *Store) CreateRun(ctx context.Context, documentID int64, budget int, params json.RawMessage) (*Run, error) {
	publicID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}

	run := &Run{PublicID: publicID, DocumentID: documentID, Status: RunPending, Budget: budget, Params: params}
	err = s.conn.QueryRow(ctx,
		`INSERT INTO runs (public_id, document_id, budget, params)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		publicID, documentID, budget, params,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun resolves a run by public id.
func (s *Store) GetRun(ctx context.Context, publicID string) (*Run, error) {
	run := &Run{}
	err := s.conn.QueryRow(ctx,
		`SELECT id, public_id, document_id, status, budget, params,
		        summary, refined_summary, artifacts, error_message,
		        created_at, started_at, finished_at
		 FROM runs WHERE public_id = $1`,
		publicID,
	).Scan(&run.ID, &run.PublicID, &run.DocumentID, &run.Status, &run.Budget, &run.Params,
		&run.Summary, &run.RefinedSummary, &run.Artifacts, &run.ErrorMessage,
		&run.CreatedAt, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns a document's runs, newest first. Artifacts are omitted;
// they can be large and list views never need them.
func (s *Store) ListRuns(ctx context.Context, documentID int64) ([]Run, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, public_id, document_id, status, budget, error_message,
		        created_at, started_at, finished_at
		 FROM runs WHERE document_id = $1 ORDER BY created_at DESC`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.PublicID, &run.DocumentID, &run.Status, &run.Budget,
			&run.ErrorMessage, &run.CreatedAt, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkRunRunning transitions a pending run to running. Only pending runs
// transition, so a redelivered queue message cannot restart a finished run.
func (s *Store) MarkRunRunning(ctx context.Context, runID int64) (bool, error) {
	tag, err := s.conn.Exec(ctx,
		`UPDATE runs SET status = $2, started_at = now()
		 WHERE id = $1 AND status = $3`,
		runID, RunRunning, RunPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ResetRunToPending puts a failed in-flight run back in the queueable state
// before a retry redelivers it.
func (s *Store) ResetRunToPending(ctx context.Context, publicID string) error {
	_, err := s.conn.Exec(ctx,
		`UPDATE runs SET status = $2, started_at = NULL
		 WHERE public_id = $1 AND status = $3`,
		publicID, RunPending, RunRunning)
	return err
}

// CompleteRun stores the run's outputs and marks it completed.
func (s *Store) CompleteRun(ctx context.Context, runID int64, summary string, refined *string, artifacts any) error {
	encoded, err := json.Marshal(artifacts)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx,
		`UPDATE runs SET status = $2, summary = $3, refined_summary = $4,
		        artifacts = $5, finished_at = now()
		 WHERE id = $1`,
		runID, RunCompleted, summary, refined, encoded)
	if err != nil {
		return err
	}
	logger.Info("[Storage] Run completed", "run_id", runID)
	return nil
}

// FailRun records a terminal failure.
func (s *Store) FailRun(ctx context.Context, runID int64, cause error) error {
	_, err := s.conn.Exec(ctx,
		`UPDATE runs SET status = $2, error_message = $3, finished_at = now()
		 WHERE id = $1`,
		runID, RunFailed, cause.Error())
	return err
}
