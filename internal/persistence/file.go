package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coinsift/coinsift/internal/model"
)

const (
	resultsFile    = "scan_results.json"
	lastUpdateFile = "last_update.txt"
)

// FileSink writes the latest scan to a directory as scan_results.json plus a
// last_update.txt timestamp, the layout consumed by the static results page.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink rooted at dir. The directory is created on the
// first write.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Write replaces the result files with the given scan.
func (s *FileSink) Write(result *model.ScanResult) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(s.dir, resultsFile))
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Records); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	stamp := result.Timestamp.UTC().Format(time.RFC3339)
	if err := os.WriteFile(filepath.Join(s.dir, lastUpdateFile), []byte(stamp), 0644); err != nil {
		return fmt.Errorf("failed to write last update: %w", err)
	}
	return nil
}
