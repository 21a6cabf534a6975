package lattes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Reader loads curriculum JSON files produced by the external curriculum
// extractor.
type Reader struct {
	Logger *zap.Logger
}

// NewReader creates a curriculum reader.
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{Logger: logger}
}

// Read parses a single curriculum file.
func (r *Reader) Read(path string) (*Curriculum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading curriculum %s: %w", path, err)
	}
	var c Curriculum
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing curriculum %s: %w", path, err)
	}
	return &c, nil
}

// ReadDir parses every .json file in dir. Unparseable files are logged
// and skipped so one bad export does not block the batch.
func (r *Reader) ReadDir(dir string) ([]*Curriculum, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing curricula dir %s: %w", dir, err)
	}
	var out []*Curriculum
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		c, err := r.Read(filepath.Join(dir, entry.Name()))
		if err != nil {
			r.Logger.Warn("Skipping unreadable curriculum",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		out = append(out, c)
	}
	r.Logger.Info("Curricula loaded", zap.String("dir", dir), zap.Int("count", len(out)))
	return out, nil
}
