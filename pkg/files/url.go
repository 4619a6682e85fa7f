package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
)

var (
	githubRepoRe = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/?$`)
	githubBlobRe = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/blob/(.+)$`)
	githubTreeRe = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/tree/([^/]+)/(.+)$`)
)

const maxURLBytes = 2 << 20

// URLResult is the outcome of URL ingestion.
type URLResult struct {
	Status         string   `json:"status"`
	URL            string   `json:"url"`
	ResolvedURL    string   `json:"resolved_url,omitempty"`
	Title          string   `json:"title,omitempty"`
	ChunksStored   int      `json:"chunks_stored"`
	FactsExtracted int      `json:"facts_extracted"`
	Entities       []string `json:"entities,omitempty"`
}

// IngestURL fetches a page and feeds its text into ingestion. GitHub
// repo links resolve to the README instead of the HTML shell, which is
// all JavaScript and chrome.
func (s *Service) IngestURL(ctx context.Context, rawURL, userContext string, tags []string, topic string) (*URLResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}

	resolved, candidates := resolveURL(rawURL)

	var (
		text  string
		title string
		used  string
		err   error
	)
	for _, candidate := range candidates {
		text, title, err = fetchPage(ctx, candidate)
		if err == nil && strings.TrimSpace(text) != "" {
			used = candidate
			break
		}
		slog.Debug("url candidate failed", "url", candidate, "error", err)
	}
	if strings.TrimSpace(text) == "" {
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
		}
		return nil, fmt.Errorf("no readable content at %s", rawURL)
	}

	ingestText := "[Source: " + rawURL + "]\n"
	if title != "" {
		ingestText += "[Title: " + title + "]\n"
	}
	if userContext != "" {
		ingestText += "[User context: " + userContext + "]\n"
	}
	ingestText += text

	ingestResult, err := s.pipeline.IngestText(ctx, ingestText, ingest.Options{
		SourceType: "url",
		Tags:       tags,
		Topic:      topic,
	})
	if err != nil {
		return nil, err
	}

	result := &URLResult{
		Status:         "ok",
		URL:            rawURL,
		Title:          title,
		ChunksStored:   ingestResult.ChunksStored,
		FactsExtracted: ingestResult.FactsExtracted,
		Entities:       ingestResult.Entities,
	}
	if used != rawURL || resolved {
		result.ResolvedURL = used
	}
	return result, nil
}

// resolveURL maps GitHub browse links to raw content URLs. Repo roots
// try the README on main then master.
func resolveURL(rawURL string) (bool, []string) {
	if m := githubRepoRe.FindStringSubmatch(rawURL); m != nil {
		base := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s", m[1], strings.TrimSuffix(m[2], ".git"))
		return true, []string{
			base + "/main/README.md",
			base + "/master/README.md",
		}
	}
	if m := githubBlobRe.FindStringSubmatch(rawURL); m != nil {
		return true, []string{
			fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", m[1], m[2], m[3]),
		}
	}
	if m := githubTreeRe.FindStringSubmatch(rawURL); m != nil {
		return true, []string{
			fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s/README.md", m[1], m[2], m[3], m[4]),
		}
	}
	return false, []string{rawURL}
}

// fetchPage downloads a URL and returns its readable text. Markdown and
// plain text pass through untouched; HTML is stripped of scripts,
// styles and navigation chrome.
func fetchPage(ctx context.Context, url string) (text, title string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", "life-rag/1.0")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxURLBytes))
	if err != nil {
		return "", "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return string(body), "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, nav, header, footer, noscript, iframe").Remove()

	var b strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		b.WriteString(sel.Text())
	})

	return collapseWhitespace(b.String()), title, nil
}

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
