// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kuraryu/deep-research/internal/httputil"
	"github.com/kuraryu/deep-research/pkg/types"
)

// kaggleAPIBase is the Kaggle public API root. Declared as a var so tests
// can substitute an httptest server.
var kaggleAPIBase = "https://www.kaggle.com/api/v1"

// kaggleClient holds shared Kaggle API access for the dataset and
// competition connectors. Without credentials every search returns empty,
// matching the unauthenticated behavior of the Kaggle client.
type kaggleClient struct {
	Client     *http.Client
	Username   string
	Key        string
	MaxResults int
	UserAgent  string
}

func (k *kaggleClient) authenticated() bool {
	return k.Username != "" && k.Key != ""
}

func (k *kaggleClient) get(ctx context.Context, path, query string, v any) error {
	reqURL := kaggleAPIBase + path + "?search=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(k.Username, k.Key)
	req.Header.Set("User-Agent", k.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, k.Client, req, 0)
	if err != nil {
		return fmt.Errorf("kaggle API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kaggle API returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing kaggle response: %w", err)
	}
	return nil
}

// NewKaggleConnectors builds the dataset, competition, and notebook
// connectors from the connector configuration.
func NewKaggleConnectors(cfg types.ConnectorConfig) (*KaggleDatasetConnector, *KaggleCompetitionConnector, *KaggleNotebookConnector) {
	client := &kaggleClient{
		Client:     &http.Client{Timeout: cfg.Timeout},
		Username:   cfg.KaggleUsername,
		Key:        cfg.KaggleKey,
		MaxResults: cfg.MaxResults,
		UserAgent:  cfg.UserAgent,
	}
	return &KaggleDatasetConnector{client}, &KaggleCompetitionConnector{client}, &KaggleNotebookConnector{client}
}

// KaggleDatasetConnector searches Kaggle datasets.
type KaggleDatasetConnector struct {
	*kaggleClient
}

// Name returns the connector identifier.
func (c *KaggleDatasetConnector) Name() string { return "kaggle-dataset" }

// Kind returns the source kind for documents from this connector.
func (c *KaggleDatasetConnector) Kind() types.SourceKind { return types.SourceDataset }

type kaggleDataset struct {
	Ref           string `json:"ref"`
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	LastUpdated   string `json:"lastUpdated"`
	TotalBytes    int64  `json:"totalBytes"`
	DownloadCount int    `json:"downloadCount"`
}

// Search queries the dataset list endpoint.
func (c *KaggleDatasetConnector) Search(ctx context.Context, query string) ([]types.Document, error) {
	if !c.authenticated() {
		return nil, nil
	}

	var datasets []kaggleDataset
	if err := c.get(ctx, "/datasets/list", query, &datasets); err != nil {
		return nil, err
	}

	var docs []types.Document
	for _, ds := range datasets {
		if len(docs) >= c.max() {
			break
		}
		d := types.Document{
			Identifier: "kaggle-dataset:" + ds.Ref,
			SourceKind: types.SourceDataset,
			Title:      ds.Title,
			Summary:    fmt.Sprintf("%s | Size: %d bytes | Downloads: %d", ds.Subtitle, ds.TotalBytes, ds.DownloadCount),
			URL:        "https://www.kaggle.com/datasets/" + ds.Ref,
		}
		if t, err := parseKaggleTime(ds.LastUpdated); err == nil {
			d.Published = t
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// KaggleCompetitionConnector searches Kaggle competitions.
type KaggleCompetitionConnector struct {
	*kaggleClient
}

// Name returns the connector identifier.
func (c *KaggleCompetitionConnector) Name() string { return "kaggle-competition" }

// Kind returns the source kind for documents from this connector.
func (c *KaggleCompetitionConnector) Kind() types.SourceKind { return types.SourceCompetition }

type kaggleCompetition struct {
	Ref         string `json:"ref"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	Reward      string `json:"reward"`
	EnabledDate string `json:"enabledDate"`
}

// Search queries the competition list endpoint.
func (c *KaggleCompetitionConnector) Search(ctx context.Context, query string) ([]types.Document, error) {
	if !c.authenticated() {
		return nil, nil
	}

	var comps []kaggleCompetition
	if err := c.get(ctx, "/competitions/list", query, &comps); err != nil {
		return nil, err
	}

	var docs []types.Document
	for _, comp := range comps {
		if len(docs) >= c.max() {
			break
		}
		// Competition refs come back as full URLs or bare slugs.
		slug := comp.Ref
		if i := strings.LastIndex(slug, "/"); i >= 0 {
			slug = slug[i+1:]
		}
		d := types.Document{
			Identifier: "kaggle-competition:" + slug,
			SourceKind: types.SourceCompetition,
			Title:      comp.Title,
			Summary:    fmt.Sprintf("%s | Deadline: %s | Reward: %s", comp.Description, comp.Deadline, comp.Reward),
			URL:        "https://www.kaggle.com/competitions/" + slug,
		}
		if t, err := parseKaggleTime(comp.EnabledDate); err == nil {
			d.Published = t
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// KaggleNotebookConnector searches Kaggle notebooks (kernels).
type KaggleNotebookConnector struct {
	*kaggleClient
}

// Name returns the connector identifier.
func (c *KaggleNotebookConnector) Name() string { return "kaggle-notebook" }

// Kind returns the source kind for documents from this connector.
func (c *KaggleNotebookConnector) Kind() types.SourceKind { return types.SourceNotebook }

type kaggleKernel struct {
	Ref         string `json:"ref"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	TotalVotes  int    `json:"totalVotes"`
	Language    string `json:"language"`
	LastRunTime string `json:"lastRunTime"`
}

// Search queries the kernels list endpoint.
func (c *KaggleNotebookConnector) Search(ctx context.Context, query string) ([]types.Document, error) {
	if !c.authenticated() {
		return nil, nil
	}

	var kernels []kaggleKernel
	if err := c.get(ctx, "/kernels/list", query, &kernels); err != nil {
		return nil, err
	}

	var docs []types.Document
	for _, k := range kernels {
		if len(docs) >= c.max() {
			break
		}
		d := types.Document{
			Identifier: "kaggle-notebook:" + k.Ref,
			SourceKind: types.SourceNotebook,
			Title:      k.Title,
			Summary:    fmt.Sprintf("Author: %s | Votes: %d | Language: %s", k.Author, k.TotalVotes, k.Language),
			URL:        "https://www.kaggle.com/code/" + k.Ref,
		}
		if k.Author != "" {
			d.Authors = []string{k.Author}
		}
		if t, err := parseKaggleTime(k.LastRunTime); err == nil {
			d.Published = t
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (k *kaggleClient) max() int {
	if k.MaxResults <= 0 {
		return 5
	}
	return k.MaxResults
}

// parseKaggleTime accepts the timestamp formats the Kaggle API emits.
func parseKaggleTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999Z", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
