package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docustitch/backend/internal/storage"
	"github.com/docustitch/backend/internal/util"
	"github.com/docustitch/backend/pkg/ai"
	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/eval"
	"github.com/docustitch/backend/pkg/leaselock"
	"github.com/docustitch/backend/pkg/logger"
	"github.com/docustitch/backend/pkg/pipeline"
	"github.com/docustitch/backend/pkg/tokens"
)

// SummarizeRunMsg is the payload on the summarize queue.
type SummarizeRunMsg struct {
	RunID string `json:"run_id"`
}

// RunParams are the per-run overrides a caller may set when creating a run.
// Zero values fall back to the stage defaults.
type RunParams struct {
	MaxWaypoints    int     `json:"max_waypoints,omitempty"`
	SiblingGap      float64 `json:"sibling_gap,omitempty"`
	Lambda          float64 `json:"lambda,omitempty"`
	MaxGists        int     `json:"max_gists,omitempty"`
	SimilarityFloor float64 `json:"similarity_floor,omitempty"`
	Reference       string  `json:"reference,omitempty"`
	// Refine reworders the stitched extract into flowing prose with the
	// chat model. The extractive summary is always kept alongside.
	Refine bool `json:"refine,omitempty"`
}

// runArtifacts is what CompleteRun persists as the run's artifacts JSONB.
type runArtifacts struct {
	*pipeline.Result
	Metrics eval.Metrics    `json:"metrics"`
	AIUsage ai.ModelMetrics `json:"ai_usage"`
}

// ProcessSummarize executes one summarization run end to end: claim the
// run, embed any sections still missing vectors, run the pipeline, refine
// if asked, and persist everything. The per-document lease keeps concurrent
// workers off the same document.
func ProcessSummarize(
	ctx context.Context,
	aiClient ai.Client,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(SummarizeRunMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("unmarshal summarize message: %w", err)
	}

	store := storage.NewStore(conn)
	run, err := store.GetRun(ctx, data.RunID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", data.RunID, err)
	}
	switch run.Status {
	case storage.RunCompleted, storage.RunFailed:
		logger.Info("[Summarize] Run already finished, skipping", "run", run.PublicID, "status", run.Status)
		return nil
	}

	locks := leaselock.New(conn)
	key := fmt.Sprintf("document:%d", run.DocumentID)
	return locks.WithLease(ctx, key, leaselock.Options{TTL: 10 * time.Minute, Wait: true}, func(ctx context.Context) error {
		claimed, err := store.MarkRunRunning(ctx, run.ID)
		if err != nil {
			return err
		}
		if !claimed {
			logger.Warn("[Summarize] Run not claimable, skipping", "run", run.PublicID)
			return nil
		}
		return executeRun(ctx, aiClient, store, run)
	})
}

func executeRun(ctx context.Context, aiClient ai.Client, store *storage.Store, run *storage.Run) error {
	var params RunParams
	if len(run.Params) > 0 {
		if err := json.Unmarshal(run.Params, &params); err != nil {
			return fmt.Errorf("decode run params: %w", err)
		}
	}

	sections, err := store.GetSections(ctx, run.DocumentID)
	if err != nil {
		return err
	}
	citations, err := store.GetCitations(ctx, run.DocumentID)
	if err != nil {
		return err
	}
	lexicon, err := store.GetLexicon(ctx, run.DocumentID)
	if err != nil {
		return err
	}

	vectors, err := ensureEmbeddings(ctx, aiClient, store, run.DocumentID, sections)
	if err != nil {
		return err
	}

	config := pipeline.DefaultConfig(run.Budget)
	if params.MaxWaypoints > 0 {
		config.Waypoints.MaxWaypoints = params.MaxWaypoints
	}
	if params.SiblingGap > 0 {
		config.Waypoints.SiblingGap = params.SiblingGap
	}
	if params.Lambda > 0 {
		config.Gists.Lambda = params.Lambda
	}
	if params.MaxGists > 0 {
		config.Gists.MaxPerSection = params.MaxGists
	}
	if params.SimilarityFloor > 0 {
		config.Graph.SimilarityFloor = params.SimilarityFloor
	}
	if counter, err := tokens.NewCounter(""); err == nil {
		config.Counter = counter
	}

	result, err := pipeline.Run(ctx, pipeline.Inputs{
		Sections:       sections,
		Citations:      citations,
		SectionVectors: vectors,
		Lexicon:        lexicon,
		Reference:      params.Reference,
	}, config)
	if err != nil {
		if failErr := store.FailRun(ctx, run.ID, err); failErr != nil {
			logger.Error("[Summarize] Failed to mark run failed", "run", run.PublicID, "err", failErr)
		}
		return err
	}

	metrics := enrichMetrics(ctx, aiClient, result, vectors, params.Reference)

	var refined *string
	if params.Refine && aiClient != nil && result.Stitch.Summary != "" {
		text, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (string, error) {
			return aiClient.GenerateCompletion(ctx,
				ai.RefinePrompt(result.Stitch.Summary),
				ai.WithSystemPrompts(ai.RefineSystemPrompt),
				ai.WithTemperature(0.2),
			)
		})
		if err != nil {
			logger.Error("[Summarize] Refinement failed, keeping extractive summary", "run", run.PublicID, "err", err)
		} else if text = strings.TrimSpace(text); text != "" {
			refined = &text
		}
	}

	artifacts := runArtifacts{Result: result, Metrics: metrics}
	if aiClient != nil {
		artifacts.AIUsage = aiClient.GetMetrics()
	}
	if err := store.CompleteRun(ctx, run.ID, result.Stitch.Summary, refined, artifacts); err != nil {
		return err
	}

	logger.Info("[Summarize] Run completed",
		"run", run.PublicID,
		"waypoints", len(result.Waypoints),
		"tokens", result.Stitch.TokensUsed,
		"coverage", metrics.Coverage,
	)
	return nil
}

// ensureEmbeddings loads stored section vectors and fills in any missing
// ones through the model, persisting what it computes. Without an AI client
// the pipeline runs on whatever vectors exist.
func ensureEmbeddings(
	ctx context.Context,
	aiClient ai.Client,
	store *storage.Store,
	documentID int64,
	sections []common.Section,
) (map[string][]float32, error) {
	vectors, err := store.GetSectionEmbeddings(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if aiClient == nil {
		return vectors, nil
	}

	missing, err := store.SectionsMissingEmbedding(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	byID := make(map[string]string, len(sections))
	for _, sec := range sections {
		byID[sec.ID] = sec.Heading + "\n" + sec.Text
	}

	inputs := make([][]byte, 0, len(missing))
	for _, id := range missing {
		inputs = append(inputs, []byte(byID[id]))
	}

	logger.Info("[Summarize] Embedding sections", "count", len(missing))
	embedded, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) ([][]float32, error) {
		return aiClient.GenerateEmbeddings(ctx, inputs)
	})
	if err != nil {
		return nil, fmt.Errorf("embed sections: %w", err)
	}

	computed := make(map[string][]float32, len(missing))
	for i, id := range missing {
		if i < len(embedded) {
			computed[id] = embedded[i]
			vectors[id] = embedded[i]
		}
	}
	if err := store.SaveSectionEmbeddings(ctx, documentID, computed); err != nil {
		return nil, err
	}
	return vectors, nil
}

// enrichMetrics re-evaluates with the semantic similarity the core pipeline
// cannot compute itself: summary embedding against the source centroid.
func enrichMetrics(
	ctx context.Context,
	aiClient ai.Client,
	result *pipeline.Result,
	vectors map[string][]float32,
	reference string,
) eval.Metrics {
	metrics := result.Metrics
	if aiClient == nil || result.Stitch.Summary == "" || len(vectors) == 0 {
		return metrics
	}

	summaryVec, err := aiClient.GenerateEmbedding(ctx, []byte(result.Stitch.Summary))
	if err != nil {
		logger.Warn("[Summarize] Could not embed summary for evaluation", "err", err)
		return metrics
	}

	var centroid []float32
	for _, vec := range vectors {
		if centroid == nil {
			centroid = make([]float32, len(vec))
		}
		for i, x := range vec {
			if i < len(centroid) {
				centroid[i] += x
			}
		}
	}
	for i := range centroid {
		centroid[i] /= float32(len(vectors))
	}

	sourceTokens := 0
	if metrics.Compression > 0 {
		sourceTokens = int(float64(result.Stitch.TokensUsed) / metrics.Compression)
	}
	return eval.Evaluate(eval.Inputs{
		Result:       result.Stitch,
		SourceTokens: sourceTokens,
		Reference:    reference,
		SummaryVec:   summaryVec,
		SourceVec:    centroid,
	})
}

func resetRunForRetry(ctx context.Context, conn *pgxpool.Pool, queueName string, msgBody []byte) {
	if queueName != SummarizeQueue {
		return
	}
	var data SummarizeRunMsg
	if err := json.Unmarshal(msgBody, &data); err != nil || data.RunID == "" {
		return
	}
	if err := storage.NewStore(conn).ResetRunToPending(ctx, data.RunID); err != nil {
		logger.Warn("[Queue] Failed to reset run for retry", "run", data.RunID, "err", err)
	}
}

func markRunFailed(ctx context.Context, conn *pgxpool.Pool, queueName string, msgBody []byte) {
	if queueName != SummarizeQueue {
		return
	}
	var data SummarizeRunMsg
	if err := json.Unmarshal(msgBody, &data); err != nil || data.RunID == "" {
		return
	}
	store := storage.NewStore(conn)
	run, err := store.GetRun(ctx, data.RunID)
	if err != nil {
		return
	}
	if err := store.FailRun(ctx, run.ID, fmt.Errorf("retries exhausted")); err != nil {
		logger.Warn("[Queue] Failed to mark run failed", "run", data.RunID, "err", err)
	}
}
