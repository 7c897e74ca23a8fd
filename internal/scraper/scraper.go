package scraper

import (
	"context"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ArticleRef is one row of the news listing.
type ArticleRef struct {
	Title           string
	URL             string
	PublicationDate string
}

// ArticleContent is the scraped payload of a single article page.
type ArticleContent struct {
	BodyMarkdown   string
	AttachmentURLs []string
}

// Selectors describe where listing rows and article content live in the
// portal's DOM. Defaults target the exchange's news-and-reports pages.
type Selectors struct {
	Row      string // one listing entry
	Link     string // anchor inside a row (title + href)
	Date     string // publication date inside a row
	NextPage string // pagination "next" control
	Body     string // article body container
	Download string // attachment anchors on an article page
}

// DefaultSelectors returns the portal's selectors.
func DefaultSelectors() Selectors {
	return Selectors{
		Row:      "table.newsTable tbody tr",
		Link:     "a",
		Date:     "td.dateCol",
		NextPage: "a.pageNavNext:not(.disabled)",
		Body:     "div.articleBody, div#articleDetail",
		Download: "a[href*='/download'], a[href$='.pdf'], a[href$='.docx'], a[href$='.xlsx']",
	}
}

// Scraper walks the listing pages and opens article pages.
type Scraper struct {
	session  *Session
	sel      Selectors
	listing  string
	maxPages int
	logger   *zap.Logger
}

// New creates a Scraper over a started session. maxPages <= 0 walks every
// listing page.
func New(session *Session, listingURL string, sel Selectors, maxPages int, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		session:  session,
		sel:      sel,
		listing:  listingURL,
		maxPages: maxPages,
		logger:   logger,
	}
}

// ListArticles paginates through the listing and returns every article row
// found, in page order.
func (sc *Scraper) ListArticles(ctx context.Context) ([]ArticleRef, error) {
	page, err := sc.session.OpenPage(sc.listing)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	var refs []ArticleRef
	for pageNum := 1; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return refs, err
		}

		pageRefs, err := sc.collectRows(page)
		if err != nil {
			return refs, fmt.Errorf("failed to read listing page %d: %w", pageNum, err)
		}
		refs = append(refs, pageRefs...)
		sc.logger.Debug("listing page scraped",
			zap.Int("page", pageNum),
			zap.Int("articles", len(pageRefs)))

		if sc.maxPages > 0 && pageNum >= sc.maxPages {
			break
		}
		advanced, err := sc.nextPage(page)
		if err != nil {
			return refs, fmt.Errorf("failed to advance past page %d: %w", pageNum, err)
		}
		if !advanced {
			break
		}
	}
	return refs, nil
}

// collectRows reads the article rows visible on the current listing page.
func (sc *Scraper) collectRows(page *rod.Page) ([]ArticleRef, error) {
	rows, err := page.Elements(sc.sel.Row)
	if err != nil {
		return nil, err
	}

	var refs []ArticleRef
	for _, row := range rows {
		link, err := row.Element(sc.sel.Link)
		if err != nil {
			continue // header or spacer row
		}
		title, err := link.Text()
		if err != nil {
			continue
		}
		href, err := link.Attribute("href")
		if err != nil || href == nil || *href == "" {
			continue
		}

		ref := ArticleRef{
			Title: strings.TrimSpace(title),
			URL:   ResolveURL(sc.listing, *href),
		}
		if dateEl, err := row.Element(sc.sel.Date); err == nil {
			if date, err := dateEl.Text(); err == nil {
				ref.PublicationDate = strings.TrimSpace(date)
			}
		}
		if ref.Title == "" || ref.URL == "" {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// nextPage clicks the pagination control. Returns false when the listing has
// no further pages.
func (sc *Scraper) nextPage(page *rod.Page) (bool, error) {
	has, el, err := page.Has(sc.sel.NextPage)
	if err != nil {
		return false, err
	}
	if !has {
		return false, nil
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	if err := page.WaitLoad(); err != nil {
		return false, err
	}
	return true, nil
}

// FetchArticle opens one article page and extracts its body as markdown plus
// any attachment links.
func (sc *Scraper) FetchArticle(ctx context.Context, ref ArticleRef) (*ArticleContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := sc.session.OpenPage(ref.URL)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	bodyHTML, err := sc.bodyHTML(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract body of %s: %w", ref.URL, err)
	}

	markdown, err := htmltomarkdown.ConvertString(bodyHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to markdown: %w", ref.URL, err)
	}

	attachments, err := sc.attachmentLinks(page, ref.URL)
	if err != nil {
		sc.logger.Debug("attachment scan failed", zap.String("url", ref.URL), zap.Error(err))
	}

	return &ArticleContent{
		BodyMarkdown:   strings.TrimSpace(markdown),
		AttachmentURLs: attachments,
	}, nil
}

// bodyHTML prefers the article body container and falls back to the whole
// page when the portal changes its layout.
func (sc *Scraper) bodyHTML(page *rod.Page) (string, error) {
	has, el, err := page.Has(sc.sel.Body)
	if err == nil && has {
		if html, err := el.HTML(); err == nil {
			return html, nil
		}
	}
	return page.HTML()
}

func (sc *Scraper) attachmentLinks(page *rod.Page, base string) ([]string, error) {
	els, err := page.Elements(sc.sel.Download)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var urls []string
	for _, el := range els {
		href, err := el.Attribute("href")
		if err != nil || href == nil || *href == "" {
			continue
		}
		u := ResolveURL(base, *href)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls, nil
}
