// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kuraryu/deep-research/internal/httputil"
	"github.com/kuraryu/deep-research/pkg/types"
)

// semanticAPIBase is the Semantic Scholar graph API root. Declared as a var
// so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

const citationFields = "title,abstract,externalIds,year,publicationDate,authors,url"

// CitationConnector retrieves the papers citing a given paper through the
// Semantic Scholar graph API. It serves the deep-dive stage: the query is a
// document identifier rather than free text.
type CitationConnector struct {
	Client     *http.Client
	APIKey     string
	MaxResults int
	UserAgent  string
}

// NewCitationConnector builds the connector from the connector configuration.
func NewCitationConnector(cfg types.ConnectorConfig) *CitationConnector {
	return &CitationConnector{
		Client:     &http.Client{Timeout: cfg.Timeout},
		APIKey:     cfg.SemanticScholarAPIKey,
		MaxResults: cfg.MaxResults,
		UserAgent:  cfg.UserAgent,
	}
}

// Name returns the connector identifier.
func (c *CitationConnector) Name() string { return "semantic_scholar_citations" }

// Kind returns the source kind for documents from this connector.
func (c *CitationConnector) Kind() types.SourceKind { return types.SourceDeepDive }

// Search looks up the citations of the paper named by identifier. An
// identifier unknown to Semantic Scholar yields an empty result, not an
// error, so one dead branch never aborts a deep-dive level.
func (c *CitationConnector) Search(ctx context.Context, identifier string) ([]types.Document, error) {
	paperID := semanticPaperID(identifier)
	if paperID == "" {
		return nil, nil
	}

	max := c.MaxResults
	if max <= 0 {
		max = 5
	}

	reqURL := fmt.Sprintf("%s/paper/%s/citations?fields=%s&limit=%d",
		semanticAPIBase, paperID, citationFields, max)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("citation API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("citation API returned HTTP %d", resp.StatusCode)
	}

	var cr citationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("parsing citation response: %w", err)
	}

	var docs []types.Document
	for _, entry := range cr.Data {
		p := entry.CitingPaper
		if p.Title == "" {
			continue
		}
		d := types.Document{
			SourceKind: types.SourceDeepDive,
			Title:      p.Title,
			Summary:    p.Abstract,
			URL:        p.URL,
		}
		switch {
		case p.ExternalIDs.ArXiv != "":
			d.Identifier = p.ExternalIDs.ArXiv
		case p.ExternalIDs.DOI != "":
			d.Identifier = p.ExternalIDs.DOI
		default:
			d.Identifier = p.PaperID
		}
		for _, a := range p.Authors {
			d.Authors = append(d.Authors, a.Name)
		}
		if p.PublicationDate != "" {
			if t, parseErr := time.Parse("2006-01-02", p.PublicationDate); parseErr == nil {
				d.Published = t
			}
		} else if p.Year > 0 {
			d.Published = time.Date(p.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// semanticPaperID maps our document identifiers to Semantic Scholar paper
// ID syntax: arXiv IDs get the ARXIV: prefix, DOIs the DOI: prefix. Kaggle
// and bare-URL identifiers have no citation graph and map to empty.
func semanticPaperID(identifier string) string {
	id := strings.TrimSpace(identifier)
	switch {
	case id == "":
		return ""
	case isArxivID(id):
		return "ARXIV:" + id
	case strings.HasPrefix(id, "10."):
		return "DOI:" + id
	case strings.HasPrefix(id, "kaggle-"):
		return ""
	case strings.Contains(id, "/") || strings.Contains(id, ":"):
		return ""
	default:
		// Assume a native Semantic Scholar paper ID.
		return id
	}
}

type citationsResponse struct {
	Data []struct {
		CitingPaper semanticPaper `json:"citingPaper"`
	} `json:"data"`
}

type semanticPaper struct {
	PaperID         string `json:"paperId"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	URL             string `json:"url"`
	Year            int    `json:"year"`
	PublicationDate string `json:"publicationDate"`
	ExternalIDs     struct {
		ArXiv string `json:"ArXiv"`
		DOI   string `json:"DOI"`
	} `json:"externalIds"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}
