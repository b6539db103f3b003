package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gapraoguy/rag-advance/pkg/types"
)

const testQueriesKey = "test_queries"

// ErrMissingTestQueries is returned when a fixture lacks the test_queries key
var ErrMissingTestQueries = errors.New("test_queries key not found")

type fixture struct {
	TestQueries *[]types.TestQuery `json:"test_queries" yaml:"test_queries"`
}

// LoadTestQueries reads a test-query fixture. Files ending in .yaml or .yml
// are decoded as YAML, everything else as JSON.
func LoadTestQueries(path string) ([]types.TestQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load test queries: %w", err)
	}

	var doc fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
	}

	if doc.TestQueries == nil {
		return nil, fmt.Errorf("invalid test query file %s: %w", path, ErrMissingTestQueries)
	}

	queries := *doc.TestQueries
	seen := make(map[string]struct{}, len(queries))
	for i, q := range queries {
		if q.QueryID == "" {
			return nil, fmt.Errorf("test query %d in %s: %w", i, path, types.ErrMissingEntityID)
		}
		if _, dup := seen[q.QueryID]; dup {
			return nil, fmt.Errorf("duplicate test query id %q in %s", q.QueryID, path)
		}
		seen[q.QueryID] = struct{}{}
	}
	return queries, nil
}
