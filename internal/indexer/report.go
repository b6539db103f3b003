package indexer

import (
	"encoding/json"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Report kinds
const (
	KindProducts = "products"
	KindFAQs     = "faqs"
	KindCombined = "combined"
)

// Report summarizes one index build
type Report struct {
	Kind            string
	Strategy        string // products and faqs builds
	ProductStrategy string // combined builds
	FAQStrategy     string // combined builds
	TotalProducts   int
	TotalFAQs       int
	TotalChunks     int
	ProductChunks   int
	FAQChunks       int
	Skipped         []string // entity ids dropped during chunk generation
	Success         bool
	Duration        time.Duration
}

// ChunksPerProduct is the product chunk to product ratio
func (r *Report) ChunksPerProduct() float64 {
	if r.TotalProducts == 0 {
		return 0
	}
	return float64(r.ProductChunks) / float64(r.TotalProducts)
}

// ChunksPerFAQ is the FAQ chunk to FAQ ratio
func (r *Report) ChunksPerFAQ() float64 {
	if r.TotalFAQs == 0 {
		return 0
	}
	return float64(r.FAQChunks) / float64(r.TotalFAQs)
}

// MarshalJSON writes the key set that matches the build kind
func (r *Report) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, any]()
	switch r.Kind {
	case KindFAQs:
		om.Set("strategy", r.Strategy)
		om.Set("total_faqs", r.TotalFAQs)
		om.Set("total_chunks", r.TotalChunks)
		om.Set("chunks_per_faq", r.ChunksPerFAQ())
	case KindCombined:
		om.Set("product_strategy", r.ProductStrategy)
		om.Set("faq_strategy", r.FAQStrategy)
		om.Set("total_products", r.TotalProducts)
		om.Set("total_faqs", r.TotalFAQs)
		om.Set("total_chunks", r.TotalChunks)
		om.Set("product_chunks", r.ProductChunks)
		om.Set("faq_chunks", r.FAQChunks)
	default:
		om.Set("strategy", r.Strategy)
		om.Set("total_products", r.TotalProducts)
		om.Set("total_chunks", r.TotalChunks)
		om.Set("chunks_per_product", r.ChunksPerProduct())
	}
	if len(r.Skipped) > 0 {
		om.Set("skipped", r.Skipped)
	}
	om.Set("success", r.Success)
	return json.Marshal(om)
}

// Range is a min/max/avg summary
type Range struct {
	Min int     `json:"min"`
	Max int     `json:"max"`
	Avg float64 `json:"avg"`
}

func summarize(values []int) Range {
	if len(values) == 0 {
		return Range{}
	}
	r := Range{Min: values[0], Max: values[0]}
	total := 0
	for _, v := range values {
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
		total += v
	}
	r.Avg = float64(total) / float64(len(values))
	return r
}

// ChunkStats describes the chunks a strategy produces without indexing them
type ChunkStats struct {
	Kind            string // products or faqs
	Strategy        string
	TotalEntities   int
	TotalChunks     int
	ChunksPerEntity Range
	TextLength      Range // in characters
	// Grouped is set for strategies that chunk per category; ChunksPerEntity
	// then ranges over categories.
	Grouped bool
}

// MarshalJSON names the entity fields after the kind
func (s *ChunkStats) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, any]()
	om.Set("strategy", s.Strategy)
	if s.Kind == KindFAQs {
		om.Set("total_faqs", s.TotalEntities)
		om.Set("total_chunks", s.TotalChunks)
		om.Set("chunks_per_faq", s.ChunksPerEntity)
	} else {
		om.Set("total_products", s.TotalEntities)
		om.Set("total_chunks", s.TotalChunks)
		om.Set("chunks_per_product", s.ChunksPerEntity)
	}
	om.Set("text_length", s.TextLength)
	if s.Grouped {
		om.Set("grouped_by_category", true)
	}
	return json.Marshal(om)
}
