package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/chatwire/chatwire/chat"
)

const fetchBodyLimit = 1 << 20

// FetchURLInput selects a URL and extraction mode.
type FetchURLInput struct {
	URL     string `json:"url" jsonschema:"required,description=URL to fetch"`
	Raw     bool   `json:"raw,omitempty" jsonschema:"description=Return raw HTML instead of stripped text"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds (default: 30)"`
}

// FetchURLOutput is the fetched page.
type FetchURLOutput struct {
	Content    string `json:"content"`
	StatusCode int    `json:"status_code"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url"`
}

// FetchURL returns a tool that fetches a web page. Bodies are capped at
// 1MB; by default HTML markup is stripped to text.
func FetchURL() chat.Tool {
	return chat.MustNewTool(
		"fetch_url",
		"Fetch content from a URL. Returns the page text, or raw HTML on request.",
		fetchURL,
	)
}

func fetchURL(ctx context.Context, in FetchURLInput) (FetchURLOutput, error) {
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, http.NoBody)
	if err != nil {
		return FetchURLOutput{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; chatwire/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return FetchURLOutput{}, fmt.Errorf("fetching URL: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyLimit))
	if err != nil {
		return FetchURLOutput{}, fmt.Errorf("reading response: %w", err)
	}

	content := string(body)
	out := FetchURLOutput{
		StatusCode: resp.StatusCode,
		Title:      pageTitle(content),
		URL:        resp.Request.URL.String(),
	}
	if in.Raw {
		out.Content = content
	} else {
		out.Content = stripHTML(content)
	}
	return out, nil
}

var (
	titleRe   = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	scriptRe  = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	blankRe   = regexp.MustCompile(`\n{3,}`)
)

func pageTitle(html string) string {
	if m := titleRe.FindStringSubmatch(html); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// stripHTML is a rough text extraction, good enough for feeding a page to
// a model. It is not an HTML parser.
func stripHTML(html string) string {
	html = scriptRe.ReplaceAllString(html, "")
	html = commentRe.ReplaceAllString(html, "")
	html = tagRe.ReplaceAllString(html, "\n")

	var lines []string
	for _, line := range strings.Split(html, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	text := strings.Join(lines, "\n")
	return blankRe.ReplaceAllString(text, "\n\n")
}
