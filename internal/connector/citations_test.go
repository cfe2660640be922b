// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuraryu/deep-research/pkg/types"
)

func TestCitationSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/ARXIV:1706.03762/citations", r.URL.Path)
		w.Write([]byte(`{"data": [
			{"citingPaper": {"paperId": "abc123", "title": "BERT", "abstract": "Bidirectional encoders.",
				"url": "https://s2.example/abc123", "year": 2018, "publicationDate": "2018-10-11",
				"externalIds": {"ArXiv": "1810.04805"}, "authors": [{"name": "J. Devlin"}]}},
			{"citingPaper": {"paperId": "def456", "title": "DOI-only Paper",
				"externalIds": {"DOI": "10.1000/xyz"}, "year": 2019}},
			{"citingPaper": {"paperId": "", "title": ""}}
		]}`))
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	c := &CitationConnector{Client: ts.Client(), MaxResults: 5, UserAgent: "test/0.1"}
	docs, err := c.Search(context.Background(), "1706.03762")
	require.NoError(t, err)
	require.Len(t, docs, 2, "entries without a title should be dropped")

	assert.Equal(t, "1810.04805", docs[0].Identifier, "arXiv ID preferred over paper ID")
	assert.Equal(t, types.SourceDeepDive, docs[0].SourceKind)
	assert.Equal(t, []string{"J. Devlin"}, docs[0].Authors)
	assert.Equal(t, 2018, docs[0].Published.Year())

	assert.Equal(t, "10.1000/xyz", docs[1].Identifier, "DOI preferred when no arXiv ID")
	assert.Equal(t, 2019, docs[1].Published.Year(), "year fallback when no publication date")
}

func TestCitationSearchUnknownPaper(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	c := &CitationConnector{Client: ts.Client()}
	docs, err := c.Search(context.Background(), "1706.03762")
	require.NoError(t, err, "a 404 is a dead branch, not an error")
	assert.Empty(t, docs)
}

func TestSemanticPaperID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1706.03762", "ARXIV:1706.03762"},
		{"10.1000/xyz", "DOI:10.1000/xyz"},
		{"kaggle-dataset:heptapod/titanic", ""},
		{"example.com/page", ""},
		{"649def34f8be52c8b66281af98ae884c09aef38b", "649def34f8be52c8b66281af98ae884c09aef38b"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, semanticPaperID(tt.in), tt.in)
	}
}
