package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	fetchUserAgent = "newswatch/1.0 (+https://github.com/newswatch)"

	// maxFetchBytes caps how much of any response body is read.
	maxFetchBytes = 4 << 20
)

// Fetcher is the plain-HTTP side of the scraper: attachment download, static
// page fallback, and the web-search context used by analysis.
type Fetcher struct {
	client    *http.Client
	searchURL string
	logger    *zap.Logger
}

// NewFetcher creates a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		searchURL: "https://html.duckduckgo.com/html/",
		logger:    logger,
	}
}

// Timeout returns the per-request deadline.
func (f *Fetcher) Timeout() time.Duration {
	return f.client.Timeout
}

// Fetch downloads url and returns its body and content type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// FetchAttachmentText downloads an attachment and returns any text it can
// recover. Binary formats (PDF, Office files) come back empty; those are
// recorded by URL only.
func (f *Fetcher) FetchAttachmentText(ctx context.Context, rawURL string) (string, error) {
	body, contentType, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	switch {
	case strings.Contains(contentType, "text/html"):
		return ExtractText(string(body)), nil
	case strings.Contains(contentType, "text/"),
		strings.Contains(contentType, "application/json"),
		strings.Contains(contentType, "application/xml"):
		return string(body), nil
	default:
		f.logger.Debug("skipping binary attachment",
			zap.String("url", rawURL),
			zap.String("content_type", contentType))
		return "", nil
	}
}

// SearchContext runs a lightweight HTML web search for query and returns the
// result page's text, truncated to maxChars. Used by analysis when
// USE_WEB_SEARCH is enabled.
func (f *Fetcher) SearchContext(ctx context.Context, query string, maxChars int) (string, error) {
	u := f.searchURL + "?q=" + url.QueryEscape(query)
	body, _, err := f.Fetch(ctx, u)
	if err != nil {
		return "", fmt.Errorf("web search failed: %w", err)
	}

	text := ExtractText(string(body))
	if maxChars > 0 {
		text = truncateOnRuneBoundary(text, maxChars)
	}
	return text, nil
}

// truncateOnRuneBoundary cuts s to at most n bytes without splitting a
// multi-byte rune.
func truncateOnRuneBoundary(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ExtractText strips tags from an HTML document, skipping script and style
// subtrees, and collapses whitespace.
func ExtractText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String())
}

// ExtractLinks returns all anchor hrefs in the document, resolved against
// base, in document order without duplicates.
func ExtractLinks(htmlStr, base string) []string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				u := ResolveURL(base, attr.Val)
				if u != "" && !seen[u] {
					seen[u] = true
					links = append(links, u)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

// ResolveURL joins a possibly-relative reference against base. Fragments and
// javascript: pseudo-links resolve to empty.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "javascript:") {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return refURL.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}
