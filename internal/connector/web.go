// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/kuraryu/deep-research/internal/httputil"
	"github.com/kuraryu/deep-research/pkg/types"
)

// duckduckgoBase is the DuckDuckGo HTML endpoint. Declared as a var so
// tests can substitute an httptest server.
var duckduckgoBase = "https://html.duckduckgo.com/html/"

// WebConnector searches the web through the DuckDuckGo HTML interface.
type WebConnector struct {
	Client     *http.Client
	MaxResults int
	UserAgent  string

	// SiteScope restricts results to a site (e.g. "kaggle.com/discussions").
	// Empty means the open web.
	SiteScope string
}

// Name returns the connector identifier.
func (c *WebConnector) Name() string {
	if c.SiteScope != "" {
		return "web:" + c.SiteScope
	}
	return "web"
}

// Kind returns the source kind for documents from this connector.
func (c *WebConnector) Kind() types.SourceKind { return types.SourceWeb }

// Search fetches one page of results and parses the result list.
func (c *WebConnector) Search(ctx context.Context, query string) ([]types.Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty web query")
	}
	if c.SiteScope != "" {
		query = "site:" + c.SiteScope + " " + query
	}

	reqURL := duckduckgoBase + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned HTTP %d", resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing result page: %w", err)
	}

	docs := parseResults(root)
	max := c.MaxResults
	if max <= 0 {
		max = 5
	}
	if len(docs) > max {
		docs = docs[:max]
	}
	return docs, nil
}

// parseResults walks the parsed page collecting result anchors
// (class "result__a") and their snippets (class "result__snippet").
func parseResults(root *html.Node) []types.Document {
	var docs []types.Document
	var current *types.Document

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				if current != nil {
					docs = append(docs, *current)
				}
				current = &types.Document{
					SourceKind: types.SourceWeb,
					Title:      textContent(n),
					URL:        resolveResultURL(attr(n, "href")),
				}
			case hasClass(n, "result__snippet") && current != nil:
				current.Summary = textContent(n)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	if current != nil {
		docs = append(docs, *current)
	}

	// Drop results without a usable URL; the URL is the dedup identity
	// for web documents.
	out := docs[:0]
	for _, d := range docs {
		if d.URL != "" {
			out = append(out, d)
		}
	}
	return out
}

// resolveResultURL unwraps DuckDuckGo redirect links of the form
// "//duckduckgo.com/l/?uddg=<encoded-target>".
func resolveResultURL(href string) string {
	if href == "" {
		return ""
	}
	if i := strings.Index(href, "uddg="); i >= 0 {
		target := href[i+len("uddg="):]
		if j := strings.IndexByte(target, '&'); j >= 0 {
			target = target[:j]
		}
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
