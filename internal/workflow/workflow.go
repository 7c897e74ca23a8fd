// Package workflow runs one end-to-end ingestion pass: scrape the listing,
// store new articles, then analyze everything pending.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"newswatch/internal/analysis"
	"newswatch/internal/scraper"
	"newswatch/internal/store"
)

// Source lists and fetches articles. Satisfied by *scraper.Scraper.
type Source interface {
	ListArticles(ctx context.Context) ([]scraper.ArticleRef, error)
	FetchArticle(ctx context.Context, ref scraper.ArticleRef) (*scraper.ArticleContent, error)
}

// AttachmentFetcher recovers text from attachment URLs. Satisfied by
// *scraper.Fetcher.
type AttachmentFetcher interface {
	FetchAttachmentText(ctx context.Context, url string) (string, error)
}

// Evaluator analyzes pending articles. Satisfied by *analysis.Analyzer.
type Evaluator interface {
	Run(ctx context.Context, limit int) (analysis.Summary, error)
}

// Report summarizes one workflow run.
type Report struct {
	RunID       string
	Listed      int
	New         int
	Skipped     int
	ScrapeFails int
	Analyzed    int
	AnalyzeFail int
}

// Workflow wires the stages together.
type Workflow struct {
	source      Source
	attachments AttachmentFetcher
	store       *store.Store
	evaluator   Evaluator
	limit       int
	logger      *zap.Logger
}

// New creates a workflow. attachments may be nil (attachments recorded by
// URL only); evaluator may be nil (scrape-only run).
func New(source Source, attachments AttachmentFetcher, st *store.Store, evaluator Evaluator, limit int, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		source:      source,
		attachments: attachments,
		store:       st,
		evaluator:   evaluator,
		limit:       limit,
		logger:      logger,
	}
}

// Run executes scrape then analyze. The scrape stage tolerates individual
// article failures; a listing failure or an analysis infrastructure failure
// aborts the run.
func (w *Workflow) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logger := w.logger.With(zap.String("run_id", report.RunID))

	logger.Info("workflow starting")

	if err := w.scrapeStage(ctx, report, logger); err != nil {
		return report, fmt.Errorf("scrape stage failed: %w", err)
	}

	if w.evaluator != nil {
		summary, err := w.evaluator.Run(ctx, w.limit)
		report.Analyzed = summary.Analyzed
		report.AnalyzeFail = summary.Failed
		if err != nil {
			return report, fmt.Errorf("analysis stage failed: %w", err)
		}
	}

	logger.Info("workflow complete",
		zap.Int("listed", report.Listed),
		zap.Int("new", report.New),
		zap.Int("skipped", report.Skipped),
		zap.Int("scrape_fails", report.ScrapeFails),
		zap.Int("analyzed", report.Analyzed),
		zap.Int("analyze_fails", report.AnalyzeFail))
	return report, nil
}

func (w *Workflow) scrapeStage(ctx context.Context, report *Report, logger *zap.Logger) error {
	refs, err := w.source.ListArticles(ctx)
	if err != nil {
		return err
	}
	report.Listed = len(refs)
	logger.Info("listing scraped", zap.Int("articles", len(refs)))

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}

		known, err := w.store.HasURL(ref.URL)
		if err != nil {
			return err
		}
		if known {
			report.Skipped++
			continue
		}

		if err := w.ingestArticle(ctx, ref); err != nil {
			report.ScrapeFails++
			logger.Warn("article scrape failed",
				zap.String("url", ref.URL), zap.Error(err))
			continue
		}
		report.New++
	}
	return nil
}

func (w *Workflow) ingestArticle(ctx context.Context, ref scraper.ArticleRef) error {
	content, err := w.source.FetchArticle(ctx, ref)
	if err != nil {
		return err
	}

	attachmentsText := w.collectAttachments(ctx, content.AttachmentURLs)

	_, err = w.store.InsertArticle(&store.Article{
		Title:           ref.Title,
		URL:             ref.URL,
		PublicationDate: ref.PublicationDate,
		ArticleText:     content.BodyMarkdown,
		AttachmentsText: attachmentsText,
	})
	if errors.Is(err, store.ErrDuplicateURL) {
		// Raced with another run between HasURL and insert; not a failure.
		return nil
	}
	return err
}

// collectAttachments concatenates whatever text the attachments yield, one
// section per URL. Download failures degrade to the URL alone.
func (w *Workflow) collectAttachments(ctx context.Context, urls []string) string {
	if len(urls) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, u := range urls {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- %s ---", u)

		if w.attachments == nil {
			continue
		}
		text, err := w.attachments.FetchAttachmentText(ctx, u)
		if err != nil {
			w.logger.Debug("attachment fetch failed", zap.String("url", u), zap.Error(err))
			continue
		}
		if text != "" {
			sb.WriteString("\n")
			sb.WriteString(text)
		}
	}
	return sb.String()
}
