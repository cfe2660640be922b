// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const timestampLayout = "20060102_150405"

// Save writes the rendered report into dir with a timestamped filename and
// returns the full path.
func Save(dir, content string) (string, error) {
	return saveAt(dir, content, time.Now())
}

func saveAt(dir, content string, t time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("research_report_%s.md", t.Format(timestampLayout)))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
