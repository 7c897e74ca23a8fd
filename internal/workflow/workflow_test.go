package workflow

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"newswatch/internal/analysis"
	"newswatch/internal/scraper"
	"newswatch/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeSource struct {
	refs     []scraper.ArticleRef
	content  map[string]*scraper.ArticleContent // URL -> content
	listErr  error
	fetchErr map[string]error // URL -> error
}

func (f *fakeSource) ListArticles(ctx context.Context) ([]scraper.ArticleRef, error) {
	return f.refs, f.listErr
}

func (f *fakeSource) FetchArticle(ctx context.Context, ref scraper.ArticleRef) (*scraper.ArticleContent, error) {
	if err := f.fetchErr[ref.URL]; err != nil {
		return nil, err
	}
	if c, ok := f.content[ref.URL]; ok {
		return c, nil
	}
	return &scraper.ArticleContent{BodyMarkdown: "body"}, nil
}

type fakeAttachments struct {
	text map[string]string
	err  map[string]error
}

func (f *fakeAttachments) FetchAttachmentText(ctx context.Context, url string) (string, error) {
	if err := f.err[url]; err != nil {
		return "", err
	}
	return f.text[url], nil
}

type fakeEvaluator struct {
	summary analysis.Summary
	err     error
	limit   int
	called  bool
}

func (f *fakeEvaluator) Run(ctx context.Context, limit int) (analysis.Summary, error) {
	f.called = true
	f.limit = limit
	return f.summary, f.err
}

func newWorkflowStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ref(n int) scraper.ArticleRef {
	return scraper.ArticleRef{
		Title:           fmt.Sprintf("Article %d", n),
		URL:             fmt.Sprintf("https://portal/news/%d", n),
		PublicationDate: "2026-02-01",
	}
}

func TestRunScrapesAndAnalyzes(t *testing.T) {
	s := newWorkflowStore(t)
	source := &fakeSource{refs: []scraper.ArticleRef{ref(1), ref(2)}}
	eval := &fakeEvaluator{summary: analysis.Summary{Analyzed: 2}}

	w := New(source, nil, s, eval, 0, nil)
	report, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.RunID == "" {
		t.Error("Report missing run ID")
	}
	if report.Listed != 2 || report.New != 2 || report.Skipped != 0 {
		t.Errorf("Report = %+v, want 2 listed / 2 new", report)
	}
	if !eval.called {
		t.Error("Evaluator never ran")
	}
	if report.Analyzed != 2 {
		t.Errorf("Analyzed = %d, want 2", report.Analyzed)
	}

	stats, _ := s.Stats()
	if stats[store.StatusPending] != 2 {
		t.Errorf("pending = %d, want 2 (fake evaluator does not update store)", stats[store.StatusPending])
	}
}

func TestRunSkipsKnownURLs(t *testing.T) {
	s := newWorkflowStore(t)
	if _, err := s.InsertArticle(&store.Article{Title: "old", URL: ref(1).URL}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	source := &fakeSource{refs: []scraper.ArticleRef{ref(1), ref(2)}}
	w := New(source, nil, s, nil, 0, nil)

	report, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Skipped != 1 || report.New != 1 {
		t.Errorf("Report = %+v, want 1 skipped / 1 new", report)
	}
}

func TestRunToleratesArticleFailures(t *testing.T) {
	s := newWorkflowStore(t)
	source := &fakeSource{
		refs:     []scraper.ArticleRef{ref(1), ref(2), ref(3)},
		fetchErr: map[string]error{ref(2).URL: fmt.Errorf("navigation timeout")},
	}
	w := New(source, nil, s, nil, 0, nil)

	report, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.New != 2 || report.ScrapeFails != 1 {
		t.Errorf("Report = %+v, want 2 new / 1 scrape fail", report)
	}
}

func TestRunAbortsOnListingFailure(t *testing.T) {
	s := newWorkflowStore(t)
	source := &fakeSource{listErr: fmt.Errorf("portal unreachable")}
	eval := &fakeEvaluator{}
	w := New(source, nil, s, eval, 0, nil)

	_, err := w.Run(context.Background())
	if err == nil {
		t.Fatal("Run should fail when listing fails")
	}
	if eval.called {
		t.Error("Analysis ran despite scrape stage failure")
	}
}

func TestRunAbortsOnAnalysisFailure(t *testing.T) {
	s := newWorkflowStore(t)
	source := &fakeSource{refs: []scraper.ArticleRef{ref(1)}}
	eval := &fakeEvaluator{err: fmt.Errorf("db locked")}
	w := New(source, nil, s, eval, 0, nil)

	if _, err := w.Run(context.Background()); err == nil {
		t.Fatal("Run should fail when analysis fails")
	}
}

func TestAttachmentCollection(t *testing.T) {
	s := newWorkflowStore(t)
	pdfURL := "https://portal/files/report.pdf"
	txtURL := "https://portal/files/notes.txt"

	source := &fakeSource{
		refs: []scraper.ArticleRef{ref(1)},
		content: map[string]*scraper.ArticleContent{
			ref(1).URL: {
				BodyMarkdown:   "# Heading\nbody",
				AttachmentURLs: []string{txtURL, pdfURL},
			},
		},
	}
	attachments := &fakeAttachments{
		text: map[string]string{txtURL: "quarterly notes"},
		err:  map[string]error{pdfURL: fmt.Errorf("403")},
	}

	w := New(source, attachments, s, nil, 0, nil)
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows, err := s.PendingArticles(0)
	if err != nil {
		t.Fatalf("PendingArticles: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}

	got := rows[0].AttachmentsText
	if !strings.Contains(got, txtURL) || !strings.Contains(got, "quarterly notes") {
		t.Errorf("AttachmentsText missing text attachment section: %q", got)
	}
	// Failed download still records the URL.
	if !strings.Contains(got, pdfURL) {
		t.Errorf("AttachmentsText missing failed attachment URL: %q", got)
	}
}

func TestEvaluatorReceivesLimit(t *testing.T) {
	s := newWorkflowStore(t)
	source := &fakeSource{}
	eval := &fakeEvaluator{}

	w := New(source, nil, s, eval, 5, nil)
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if eval.limit != 5 {
		t.Errorf("Evaluator limit = %d, want 5", eval.limit)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	s := newWorkflowStore(t)
	source := &fakeSource{refs: []scraper.ArticleRef{ref(1), ref(2)}}
	w := New(source, nil, s, nil, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.Run(ctx); err == nil {
		t.Fatal("Run should fail on canceled context")
	}
}
