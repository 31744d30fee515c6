// Package pipeline orchestrates one upload event end to end: parse the blob
// path, resolve the owner, analyze the document, normalize the fields, and
// persist the record. Any step failure abandons the invocation; nothing is
// retried and nothing partial is written.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/facturave/receipt-ingest/internal/analysis"
	"github.com/facturave/receipt-ingest/internal/common"
	"github.com/facturave/receipt-ingest/internal/metrics"
	"github.com/facturave/receipt-ingest/internal/normalize"
	"github.com/facturave/receipt-ingest/internal/store"
)

// Analyzer submits document bytes to the analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, content []byte) (*analysis.Result, error)
}

// UserDirectory resolves a user id to a display name.
type UserDirectory interface {
	Username(ctx context.Context, userID string) (*string, error)
}

// Fetcher downloads blob content by container and path.
type Fetcher interface {
	Fetch(ctx context.Context, container, blobPath string) ([]byte, error)
}

// ReceiptStore persists one assembled record.
type ReceiptStore interface {
	Save(ctx context.Context, rec store.Record) (string, error)
}

// Event describes one created blob.
type Event struct {
	// Path is {container}/{userId}/{randomSubdirectory}/{filename}.
	Path string
	// URL is the source blob URL, stored alongside the record.
	URL string
}

// Processor coordinates the pipeline steps for one invocation.
type Processor struct {
	logger     *slog.Logger
	users      UserDirectory
	fetcher    Fetcher
	analyzer   Analyzer
	store      ReceiptStore
	normalizer *normalize.Normalizer
}

func NewProcessor(logger *slog.Logger, users UserDirectory, fetcher Fetcher, analyzer Analyzer, st ReceiptStore) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:     logger,
		users:      users,
		fetcher:    fetcher,
		analyzer:   analyzer,
		store:      st,
		normalizer: normalize.NewNormalizer(logger),
	}
}

// Process runs one invocation. The returned error describes why the
// invocation was abandoned; callers ack the event delivery either way, since
// failed invocations are logged and dropped, never redelivered.
func (p *Processor) Process(ctx context.Context, ev Event) error {
	if IsPlaceholder(ev.Path) {
		p.logger.Info("pipeline.placeholder_ignored", "path", ev.Path)
		metrics.RecordInvocation(metrics.OutcomeIgnored)
		return nil
	}

	reqID := uuid.New().String()
	log := p.logger.With("req_id", reqID, "path", ev.Path)
	start := time.Now()
	outcome := metrics.OutcomeAbandoned

	log.Info("pipeline.started")
	defer func() {
		metrics.RecordInvocation(outcome)
		metrics.ObserveProcessingDuration(time.Since(start))
		log.Info("pipeline.finished", "outcome", outcome, "elapsed_ms", time.Since(start).Milliseconds())
	}()

	bp, err := ParseBlobPath(ev.Path)
	if err != nil {
		log.Error("pipeline.path_parse_failed", "error", err)
		metrics.RecordStageFailure("parse")
		return err
	}
	log = log.With("user_id", bp.UserID, "directory", bp.Directory)

	// A lookup failure is recoverable: the record is stored without a
	// username rather than dropped.
	username, err := p.users.Username(ctx, bp.UserID)
	if err != nil {
		log.Warn("pipeline.user_lookup_failed", "error", err)
		username = nil
	}
	if username == nil {
		log.Warn("pipeline.proceeding_without_username")
	}

	content, err := p.fetcher.Fetch(ctx, bp.Container, bp.Blob())
	if err != nil {
		log.Error("pipeline.fetch_failed", "error", err)
		metrics.RecordStageFailure("fetch")
		return fmt.Errorf("%w: %v", common.ErrFetch, err)
	}

	res, err := p.analyzer.Analyze(ctx, content)
	if err != nil {
		log.Error("pipeline.analysis_failed", "error", err)
		metrics.RecordStageFailure("analysis")
		return fmt.Errorf("%w: %v", common.ErrAnalysis, err)
	}

	rec, err := p.normalizer.Normalize(res)
	if err != nil {
		if errors.Is(err, normalize.ErrMissingRequired) {
			log.Warn("pipeline.validation_failed", "error", err)
			metrics.RecordStageFailure("validation")
			return fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		log.Error("pipeline.normalize_failed", "error", err)
		metrics.RecordStageFailure("analysis")
		return fmt.Errorf("%w: %v", common.ErrAnalysis, err)
	}

	id, err := p.store.Save(ctx, store.Record{
		UserID:     bp.UserID,
		Username:   username,
		Directorio: bp.Directory,
		BlobURL:    ev.URL,
		Receipt:    rec,
	})
	if err != nil {
		log.Error("pipeline.persist_failed", "error", err)
		metrics.RecordStageFailure("persistence")
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	outcome = metrics.OutcomePersisted
	log.Info("pipeline.persisted", "document_id", id)
	return nil
}
