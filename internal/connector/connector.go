// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package connector retrieves documents from external sources: arXiv, the
// web, Kaggle datasets and competitions, and Semantic Scholar citations for
// deep-dive expansion. Connector failures are never fatal to the workflow;
// they degrade to empty result sets with a logged warning.
package connector

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kuraryu/deep-research/pkg/types"
)

// Connector searches a single external source. Each source implements this
// interface per the Strategy pattern.
type Connector interface {
	Name() string
	Kind() types.SourceKind
	Search(ctx context.Context, query string) ([]types.Document, error)
}

// SearchAll fans a query out to every connector concurrently and merges the
// results. A failing connector contributes an empty slice and a warning;
// SearchAll itself never fails. Results carry no origin or depth — the
// caller stamps those before merging into state.
func SearchAll(ctx context.Context, connectors []Connector, query string, log *zap.Logger) []types.Document {
	if log == nil {
		log = zap.NewNop()
	}

	type sourceResult struct {
		docs []types.Document
		err  error
		name string
	}

	ch := make(chan sourceResult, len(connectors))
	var wg sync.WaitGroup

	for _, c := range connectors {
		wg.Add(1)
		go func(c Connector) {
			defer wg.Done()
			docs, err := c.Search(ctx, query)
			ch <- sourceResult{docs: docs, err: err, name: c.Name()}
		}(c)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.Document
	for sr := range ch {
		if sr.err != nil {
			log.Warn("connector failed",
				zap.String("connector", sr.name),
				zap.String("query", query),
				zap.Error(sr.err))
			continue
		}
		all = append(all, sr.docs...)
	}
	return all
}
