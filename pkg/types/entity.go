package types

import "fmt"

// CatalogItem is a product record from the catalog source
type CatalogItem struct {
	ID             string         `json:"product_id"`
	Name           string         `json:"product_name"`
	Category       string         `json:"category"`
	Price          int64          `json:"price"`
	Description    string         `json:"description"`
	Features       []string       `json:"features"`
	Specifications Specifications `json:"specifications"`
}

// Validate checks the invariants of a catalog item
func (c CatalogItem) Validate() error {
	if c.ID == "" {
		return ErrMissingEntityID
	}
	if c.Price < 0 {
		return fmt.Errorf("%w: product %s has price %d", ErrNegativePrice, c.ID, c.Price)
	}
	return nil
}

// FAQEntry is a question/answer record from the FAQ source
type FAQEntry struct {
	ID       string `json:"faq_id"`
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Validate checks the invariants of an FAQ entry
func (f FAQEntry) Validate() error {
	if f.ID == "" {
		return ErrMissingEntityID
	}
	return nil
}
