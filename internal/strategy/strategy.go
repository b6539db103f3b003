package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gapraoguy/rag-advance/pkg/types"
)

// Strategy names
const (
	Unified         = "unified"
	Section         = "section"
	Granular        = "granular"
	QAPair          = "qa_pair"
	QASeparate      = "qa_separate"
	CategoryUnified = "category_unified"
)

var (
	// ErrUnknownStrategy is returned when a strategy name is not registered
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrUnsupportedOperation is returned when an FAQ strategy is called on
	// the entry point it does not implement
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// ProductStrategy converts one catalog item into chunks
type ProductStrategy interface {
	Name() string
	Chunks(item types.CatalogItem) ([]types.Chunk, error)
}

// FAQStrategy converts FAQ entries into chunks. Grouped reports which entry
// point the strategy implements: false for ChunksForEntry, true for
// ChunksForGroups.
type FAQStrategy interface {
	Name() string
	Grouped() bool
	ChunksForEntry(entry types.FAQEntry) ([]types.Chunk, error)
	ChunksForGroups(groups []CategoryGroup) ([]types.Chunk, error)
}

// UnknownStrategyError names the rejected strategy and the available options
type UnknownStrategyError struct {
	Family    string
	Name      string
	Available []string
}

func (e *UnknownStrategyError) Error() string {
	label := "strategy"
	if e.Family != "" {
		label = e.Family + " strategy"
	}
	return fmt.Sprintf("unknown %s: %s. available strategies: %s",
		label, e.Name, strings.Join(e.Available, ", "))
}

// Is matches ErrUnknownStrategy
func (e *UnknownStrategyError) Is(target error) bool {
	return target == ErrUnknownStrategy
}

var productRegistry = []ProductStrategy{
	UnifiedStrategy{},
	SectionStrategy{},
	GranularStrategy{},
}

var faqRegistry = []FAQStrategy{
	QAPairStrategy{},
	QASeparateStrategy{},
	CategoryUnifiedStrategy{},
}

// ProductStrategies returns the registered product strategy names in
// registration order
func ProductStrategies() []string {
	names := make([]string, len(productRegistry))
	for i, s := range productRegistry {
		names[i] = s.Name()
	}
	return names
}

// FAQStrategies returns the registered FAQ strategy names in registration order
func FAQStrategies() []string {
	names := make([]string, len(faqRegistry))
	for i, s := range faqRegistry {
		names[i] = s.Name()
	}
	return names
}

// LookupProduct resolves a product strategy by name
func LookupProduct(name string) (ProductStrategy, error) {
	for _, s := range productRegistry {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, &UnknownStrategyError{Name: name, Available: ProductStrategies()}
}

// LookupFAQ resolves an FAQ strategy by name
func LookupFAQ(name string) (FAQStrategy, error) {
	for _, s := range faqRegistry {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, &UnknownStrategyError{Family: "FAQ", Name: name, Available: FAQStrategies()}
}
