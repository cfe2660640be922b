// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kuraryu/deep-research/pkg/types"
)

type mockConnector struct {
	name string
	kind types.SourceKind
	docs []types.Document
	err  error
}

func (m *mockConnector) Name() string          { return m.name }
func (m *mockConnector) Kind() types.SourceKind { return m.kind }

func (m *mockConnector) Search(_ context.Context, _ string) ([]types.Document, error) {
	return m.docs, m.err
}

func TestSearchAllMergesResults(t *testing.T) {
	a := &mockConnector{name: "a", kind: types.SourceAcademic, docs: []types.Document{
		{Identifier: "1", Title: "one"},
	}}
	b := &mockConnector{name: "b", kind: types.SourceWeb, docs: []types.Document{
		{URL: "https://example.com/x", Title: "two"},
		{URL: "https://example.com/y", Title: "three"},
	}}

	docs := SearchAll(context.Background(), []Connector{a, b}, "q", nil)
	assert.Len(t, docs, 3)
}

func TestSearchAllToleratesFailingConnector(t *testing.T) {
	failing := &mockConnector{name: "failing", err: fmt.Errorf("network error")}
	working := &mockConnector{name: "working", docs: []types.Document{{Identifier: "1"}}}

	docs := SearchAll(context.Background(), []Connector{failing, working}, "q", nil)
	assert.Len(t, docs, 1, "a failing connector must degrade to empty, not abort")
}

func TestSearchAllAllConnectorsFail(t *testing.T) {
	failing := &mockConnector{name: "failing", err: fmt.Errorf("down")}

	docs := SearchAll(context.Background(), []Connector{failing}, "q", nil)
	assert.Empty(t, docs)
}
