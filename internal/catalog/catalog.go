package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gapraoguy/rag-advance/pkg/types"
)

const (
	productsKey = "products"
	faqsKey     = "faqs"
)

var (
	// ErrMissingKey is returned when a source document lacks its top-level key
	ErrMissingKey = errors.New("required top-level key not found")
	// ErrNotFound is returned when an entity id is not in the snapshot
	ErrNotFound = errors.New("entity not found")
)

// Options locates the source documents
type Options struct {
	DataDir      string
	ProductsFile string
	FAQFile      string
	// OptionalFAQs allows a missing FAQ file, yielding an empty FAQ set
	OptionalFAQs bool
}

// Snapshot is the loaded, read-only view of both sources
type Snapshot struct {
	products     []types.CatalogItem
	faqs         []types.FAQEntry
	productIndex map[string]int
	faqIndex     map[string]int
}

// Load reads both source documents
func Load(opts Options) (*Snapshot, error) {
	products, err := LoadProducts(filepath.Join(opts.DataDir, opts.ProductsFile))
	if err != nil {
		return nil, err
	}

	faqPath := filepath.Join(opts.DataDir, opts.FAQFile)
	faqs, err := LoadFAQs(faqPath)
	if err != nil {
		if !(opts.OptionalFAQs && errors.Is(err, os.ErrNotExist)) {
			return nil, err
		}
		faqs = nil
	}

	return NewSnapshot(products, faqs), nil
}

// NewSnapshot builds a snapshot from already decoded entities
func NewSnapshot(products []types.CatalogItem, faqs []types.FAQEntry) *Snapshot {
	s := &Snapshot{
		products:     products,
		faqs:         faqs,
		productIndex: make(map[string]int, len(products)),
		faqIndex:     make(map[string]int, len(faqs)),
	}
	for i, p := range products {
		if _, dup := s.productIndex[p.ID]; !dup {
			s.productIndex[p.ID] = i
		}
	}
	for i, f := range faqs {
		if _, dup := s.faqIndex[f.ID]; !dup {
			s.faqIndex[f.ID] = i
		}
	}
	return s
}

// LoadProducts decodes a products document
func LoadProducts(path string) ([]types.CatalogItem, error) {
	var items []types.CatalogItem
	if err := decodeDocument(path, productsKey, &items); err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Price < 0 {
			return nil, fmt.Errorf("invalid product %s in %s: %w", item.ID, path, types.ErrNegativePrice)
		}
	}
	return items, nil
}

// LoadFAQs decodes an FAQ document
func LoadFAQs(path string) ([]types.FAQEntry, error) {
	var entries []types.FAQEntry
	if err := decodeDocument(path, faqsKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func decodeDocument(path, key string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s file: %w", key, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}

	raw, ok := doc[key]
	if !ok {
		return fmt.Errorf("invalid %s file format %s: %w: %q", key, path, ErrMissingKey, key)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid %s entries in %s: %w", key, path, err)
	}
	return nil
}

// Products returns all catalog items in source order
func (s *Snapshot) Products(ctx context.Context) ([]types.CatalogItem, error) {
	return s.products, nil
}

// Product returns the catalog item with the given id
func (s *Snapshot) Product(id string) (types.CatalogItem, error) {
	i, ok := s.productIndex[id]
	if !ok {
		return types.CatalogItem{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return s.products[i], nil
}

// ProductsByCategory returns the items of one category in source order
func (s *Snapshot) ProductsByCategory(category string) []types.CatalogItem {
	out := make([]types.CatalogItem, 0)
	for _, p := range s.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// ProductCategories returns the distinct product categories, sorted
func (s *Snapshot) ProductCategories() []string {
	cats := make([]string, 0, len(s.products))
	for _, p := range s.products {
		cats = append(cats, p.Category)
	}
	return distinctSorted(cats)
}

// FAQs returns all FAQ entries in source order
func (s *Snapshot) FAQs(ctx context.Context) ([]types.FAQEntry, error) {
	return s.faqs, nil
}

// FAQ returns the entry with the given id
func (s *Snapshot) FAQ(id string) (types.FAQEntry, error) {
	i, ok := s.faqIndex[id]
	if !ok {
		return types.FAQEntry{}, fmt.Errorf("faq %s: %w", id, ErrNotFound)
	}
	return s.faqs[i], nil
}

// FAQsByCategory returns the entries of one category in source order
func (s *Snapshot) FAQsByCategory(category string) []types.FAQEntry {
	out := make([]types.FAQEntry, 0)
	for _, f := range s.faqs {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// FAQCategories returns the distinct FAQ categories, sorted
func (s *Snapshot) FAQCategories() []string {
	cats := make([]string, 0, len(s.faqs))
	for _, f := range s.faqs {
		cats = append(cats, f.Category)
	}
	return distinctSorted(cats)
}

// Counts returns the number of products and FAQ entries
func (s *Snapshot) Counts() (products, faqs int) {
	return len(s.products), len(s.faqs)
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
