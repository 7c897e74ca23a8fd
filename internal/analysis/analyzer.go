package analysis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newswatch/internal/orchestrator"
	"newswatch/internal/store"
)

const systemPrompt = `You are a financial news analyst. You are given one
exchange announcement. Respond with a single JSON object and nothing else:
{"evaluation": "positive"|"negative"|"neutral", "reasoning": "<one or two sentences>", "confidence": <0..1>}
The evaluation is the likely effect of the announcement on the company's
stock price.`

// maxSearchContextChars caps how much web-search text goes into the prompt.
const maxSearchContextChars = 4000

// SearchProvider supplies optional web-search context for a query.
type SearchProvider interface {
	SearchContext(ctx context.Context, query string, maxChars int) (string, error)
}

// Summary reports one analysis run.
type Summary struct {
	Analyzed int
	Failed   int
}

// Analyzer evaluates pending articles and persists verdicts.
type Analyzer struct {
	client       LLMClient
	store        *store.Store
	search       SearchProvider
	useWebSearch bool
	workers      int
	logger       *zap.Logger
}

// New creates an Analyzer. search may be nil, which disables web-search
// context regardless of the environment toggle.
func New(client LLMClient, st *store.Store, search SearchProvider, workers int, logger *zap.Logger) *Analyzer {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		client:       client,
		store:        st,
		search:       search,
		useWebSearch: UseWebSearchFromEnv(),
		workers:      workers,
		logger:       logger,
	}
}

// UseWebSearchFromEnv reports whether the workflow runner was started with
// web search enabled.
func UseWebSearchFromEnv() bool {
	return os.Getenv(orchestrator.EnvUseWebSearch) == "1"
}

// SetUseWebSearch overrides the environment toggle (used by tests and the
// analyze command's flag).
func (a *Analyzer) SetUseWebSearch(on bool) {
	a.useWebSearch = on
}

// Run analyzes up to limit pending articles (0 = all) with bounded
// parallelism. Individual article failures are recorded and do not abort
// the run; the error return covers infrastructure failures only.
func (a *Analyzer) Run(ctx context.Context, limit int) (Summary, error) {
	pending, err := a.store.PendingArticles(limit)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load pending articles: %w", err)
	}
	if len(pending) == 0 {
		a.logger.Info("no pending articles to analyze")
		return Summary{}, nil
	}

	a.logger.Info("starting analysis",
		zap.Int("articles", len(pending)),
		zap.Int("workers", a.workers),
		zap.Bool("web_search", a.useWebSearch && a.search != nil))

	var analyzed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, article := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := a.analyzeOne(gctx, article); err != nil {
				failed.Add(1)
				a.logger.Warn("article analysis failed",
					zap.Int64("id", article.ID),
					zap.String("url", article.URL),
					zap.Error(err))
				if markErr := a.store.MarkFailed(article.ID, err.Error()); markErr != nil {
					return markErr
				}
				return nil
			}
			analyzed.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{Analyzed: int(analyzed.Load()), Failed: int(failed.Load())}, err
	}

	summary := Summary{Analyzed: int(analyzed.Load()), Failed: int(failed.Load())}
	a.logger.Info("analysis complete",
		zap.Int("analyzed", summary.Analyzed),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, article store.Article) error {
	prompt, err := a.buildPrompt(ctx, article)
	if err != nil {
		return err
	}

	reply, err := a.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}

	verdict, err := ParseVerdict(reply)
	if err != nil {
		return err
	}

	return a.store.SaveEvaluation(article.ID, store.Evaluation{
		Verdict:    verdict.Evaluation,
		Reasoning:  verdict.Reasoning,
		Confidence: verdict.Confidence,
	})
}

func (a *Analyzer) buildPrompt(ctx context.Context, article store.Article) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", article.Title)
	if article.PublicationDate != "" {
		fmt.Fprintf(&sb, "Published: %s\n", article.PublicationDate)
	}
	fmt.Fprintf(&sb, "URL: %s\n\n", article.URL)
	sb.WriteString("Article:\n")
	sb.WriteString(article.ArticleText)
	if article.AttachmentsText != "" {
		sb.WriteString("\n\nAttachments:\n")
		sb.WriteString(article.AttachmentsText)
	}

	if a.useWebSearch && a.search != nil {
		searchCtx, err := a.search.SearchContext(ctx, article.Title, maxSearchContextChars)
		if err != nil {
			// Search is best-effort enrichment, analyze without it.
			a.logger.Debug("web search context unavailable",
				zap.String("title", article.Title), zap.Error(err))
		} else if searchCtx != "" {
			sb.WriteString("\n\nWeb search context:\n")
			sb.WriteString(searchCtx)
		}
	}
	return sb.String(), nil
}
