package benchmark

import (
	"fmt"
	"strings"

	"github.com/gapraoguy/rag-advance/internal/strategy"
)

// Mode selects what a benchmark indexes per candidate
type Mode string

const (
	// ModeProducts indexes products only, one product strategy per candidate
	ModeProducts Mode = "products"
	// ModeCombined indexes products and FAQs together per candidate
	ModeCombined Mode = "combined"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeProducts, ModeCombined:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown benchmark mode %q: expected products or combined", s)
	}
}

// Candidate is one strategy selection under test
type Candidate struct {
	Name            string `json:"name"`
	ProductStrategy string `json:"product_strategy"`
	FAQStrategy     string `json:"faq_strategy,omitempty"`
}

// Combined reports whether the candidate indexes FAQs too
func (c Candidate) Combined() bool {
	return c.FAQStrategy != ""
}

// ProductCandidate builds a products-only candidate named after its strategy
func ProductCandidate(name string) Candidate {
	return Candidate{Name: name, ProductStrategy: name}
}

// CombinedCandidate builds a product+FAQ candidate named "product+faq"
func CombinedCandidate(productStrategy, faqStrategy string) Candidate {
	return Candidate{
		Name:            productStrategy + "+" + faqStrategy,
		ProductStrategy: productStrategy,
		FAQStrategy:     faqStrategy,
	}
}

// DefaultProductCandidates covers every product strategy
func DefaultProductCandidates() []Candidate {
	names := strategy.ProductStrategies()
	out := make([]Candidate, len(names))
	for i, n := range names {
		out[i] = ProductCandidate(n)
	}
	return out
}

// IntegratedCandidates are the product+FAQ combinations compared in
// combined mode
func IntegratedCandidates() []Candidate {
	return []Candidate{
		CombinedCandidate(strategy.Unified, strategy.QAPair),
		CombinedCandidate(strategy.Section, strategy.QAPair),
		CombinedCandidate(strategy.Granular, strategy.QAPair),
		CombinedCandidate(strategy.Section, strategy.QASeparate),
		CombinedCandidate(strategy.Granular, strategy.QASeparate),
		CombinedCandidate(strategy.Unified, strategy.CategoryUnified),
	}
}

// DefaultBaseline returns the baseline candidate name for mode
func DefaultBaseline(mode Mode) string {
	if mode == ModeCombined {
		return CombinedCandidate(strategy.Unified, strategy.QAPair).Name
	}
	return strategy.Unified
}

// ParseCandidates resolves a list of names for mode. Products mode takes
// product strategy names; combined mode takes "product+faq" pairs. An empty
// list selects the defaults of the mode.
func ParseCandidates(mode Mode, names []string) ([]Candidate, error) {
	if len(names) == 0 {
		if mode == ModeCombined {
			return IntegratedCandidates(), nil
		}
		return DefaultProductCandidates(), nil
	}

	out := make([]Candidate, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		var c Candidate
		if mode == ModeCombined {
			product, faq, ok := strings.Cut(name, "+")
			if !ok {
				return nil, fmt.Errorf("invalid combined candidate %q: expected product+faq", name)
			}
			if _, err := strategy.LookupFAQ(faq); err != nil {
				return nil, err
			}
			c = CombinedCandidate(product, faq)
		} else {
			c = ProductCandidate(name)
		}
		if _, err := strategy.LookupProduct(c.ProductStrategy); err != nil {
			return nil, err
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("duplicate candidate %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
