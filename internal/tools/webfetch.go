package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/ports"
)

// maxFetchBytes bounds how much of a response body is read before the
// handler gives up converting it, so a misbehaving server can't exhaust
// memory through one tool call.
const maxFetchBytes = 2 << 20 // 2 MiB

// unwantedTags lists elements that are never part of a page's readable
// content.
var unwantedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"header": true, "footer": true, "nav": true, "aside": true, "form": true,
}

// WebFetchHandler implements ports.ToolHandler for the built-in
// "Fetch Web Page" command: GET a URL and return its readable text using
// a default User-Agent and a bounded client timeout. Extraction tries
// go-readability's article-scoring algorithm first, falling back to a
// plain html.Parse + tag-pruning + text-extraction pass when readability
// finds no article content (e.g. the page is mostly markup-free or too
// short to score). Deliberately a single plain HTTP GET rather than a
// headless-browser fetch, since this system dispatches tools by name
// through a JSON envelope rather than native provider tool calls, and
// has no reason to pay a headless-browser's cost for the common case of
// fetching static HTML.
type WebFetchHandler struct {
	client *http.Client
}

func NewWebFetchHandler() *WebFetchHandler {
	return &WebFetchHandler{client: &http.Client{Timeout: 10 * time.Second}}
}

// NewWebFetchHandlerWithClient lets the caller supply an instrumented
// client (e.g. one whose Transport is wrapped with otelhttp) instead of
// the handler's plain default.
func NewWebFetchHandlerWithClient(client *http.Client) *WebFetchHandler {
	if client == nil {
		return NewWebFetchHandler()
	}
	return &WebFetchHandler{client: client}
}

// WebFetchTool returns the Tool manifest entry for registration. client
// may be nil to use the handler's plain default.
func WebFetchTool(client *http.Client) Tool {
	return Tool{
		Schema: Schema{
			Name:         "fetch_web_page",
			FriendlyName: "Fetch Web Page",
			Description:  "Fetch a URL over HTTP(S) and return its readable text content.",
			Args: []ArgSpec{
				{Name: "url", Required: true, Description: "The HTTP or HTTPS URL to fetch."},
			},
		},
		Handler: NewWebFetchHandlerWithClient(client),
	}
}

func (h *WebFetchHandler) Invoke(ctx context.Context, args map[string]any, _ ports.ToolCallContext) (string, error) {
	raw, _ := args["url"].(string)
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", corerr.NewTool(corerr.ToolInvalidArgs, "url must be an absolute http(s) URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", corerr.NewTool(corerr.ToolInvalidArgs, "url scheme must be http or https")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", corerr.WrapTool(corerr.ToolHandlerFailed, "build request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; orchestrator-fetch/1.0)")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", corerr.WrapTool(corerr.ToolHandlerFailed, "fetch "+u.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("%s returned HTTP %d", u.String(), resp.StatusCode), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", corerr.WrapTool(corerr.ToolHandlerFailed, "read response body", err)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return strings.TrimSpace(string(body)), nil
	}

	if article, rerr := readability.FromReader(strings.NewReader(string(body)), u); rerr == nil && strings.TrimSpace(article.TextContent) != "" {
		return cleanWhitespace(article.TextContent), nil
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return strings.TrimSpace(string(body)), nil
	}
	pruneNonContentNodes(doc)

	var sb strings.Builder
	extractText(doc, &sb)
	return cleanWhitespace(sb.String()), nil
}

func pruneNonContentNodes(n *html.Node) {
	if n == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && unwantedTags[c.Data] {
			n.RemoveChild(c)
		} else {
			pruneNonContentNodes(c)
		}
		c = next
	}
}

func extractText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			sb.WriteString(t)
			sb.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb)
	}
}

var whitespaceRE = regexp.MustCompile(`[ \t]+`)

func cleanWhitespace(s string) string {
	s = whitespaceRE.ReplaceAllString(s, " ")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}
