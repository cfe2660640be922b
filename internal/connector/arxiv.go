// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kuraryu/deep-research/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivConnector queries the arXiv Atom API.
type ArxivConnector struct {
	Client     *http.Client
	MaxResults int
	UserAgent  string
}

// Name returns the connector identifier.
func (c *ArxivConnector) Name() string { return "arxiv" }

// Kind returns the source kind for documents from this connector.
func (c *ArxivConnector) Kind() types.SourceKind { return types.SourceAcademic }

// Search queries arXiv sorted by relevance and maps entries to documents.
func (c *ArxivConnector) Search(ctx context.Context, query string) ([]types.Document, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty arXiv query")
	}

	maxResults := c.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	reqURL := fmt.Sprintf("%s?search_query=all:%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, strings.Join(terms, "+"), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var docs []types.Document
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		d := types.Document{
			Identifier: arxivID,
			SourceKind: types.SourceAcademic,
			Title:      strings.Join(strings.Fields(entry.Title), " "),
			Summary:    strings.TrimSpace(entry.Summary),
			URL:        entry.ID,
		}
		for _, a := range entry.Authors {
			d.Authors = append(d.Authors, strings.TrimSpace(a.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			d.Published = t
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// arxivFeed mirrors the Atom feed returned by the arXiv API.
type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the bare ID from an entry URL such as
// "http://arxiv.org/abs/2301.07041v2", dropping any version suffix.
func extractArxivID(entryURL string) string {
	idx := strings.LastIndex(entryURL, "/abs/")
	if idx < 0 {
		return ""
	}
	id := entryURL[idx+len("/abs/"):]
	if v := strings.LastIndex(id, "v"); v > 0 && isDigits(id[v+1:]) {
		id = id[:v]
	}
	return id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isArxivID reports whether a string looks like a modern arXiv ID
// (e.g. "2301.07041").
func isArxivID(s string) bool {
	if len(s) < 9 || s[4] != '.' {
		return false
	}
	return isDigits(s[:4]) && isDigits(s[5:9])
}
