package scraper

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"rag-worker/cmd/configs"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a page is read
const maxBodyBytes = 10 << 20

// skipped elements never contribute text
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Template: true,
	atom.Form:     true,
}

// blocks start a new paragraph in the extracted text
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Table: true, atom.Tr: true, atom.Blockquote: true, atom.Pre: true, atom.Br: true,
	atom.Hr: true, atom.Figcaption: true, atom.Aside: true,
}

// HTTPError is returned for non-2xx responses
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Scraper fetches a page and reduces it to readable text
type Scraper struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
}

func NewScraper(config *configs.Config) *Scraper {
	timeout := config.Pipeline.ScraperTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if config.Pipeline.ScraperRPS > 0 {
		limit = rate.Limit(config.Pipeline.ScraperRPS)
	}

	return &Scraper{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(limit, 1),
		userAgent:   config.Pipeline.ScraperUserAgent,
	}
}

// Scrape downloads url and returns its visible text, paragraphs separated by a blank line
func (s *Scraper) Scrape(ctx context.Context, url string) (string, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", url, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", url, err)
		}
		return normalize(string(raw)), nil
	}

	doc, err := html.Parse(body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", url, err)
	}
	return ExtractText(doc), nil
}

// ExtractText returns the visible text under n
func ExtractText(n *html.Node) string {
	var b strings.Builder
	walk(n, &b)
	return normalize(b.String())
}

func walk(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
	}

	block := n.Type == html.ElementNode && blocks[n.DataAtom]
	if block {
		b.WriteString("\n\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, b)
	}
	if block {
		b.WriteString("\n\n")
	}
}

// normalize collapses whitespace inside paragraphs and keeps one blank line between them
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
