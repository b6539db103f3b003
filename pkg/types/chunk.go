package types

import (
	"fmt"
	"strings"
)

// Metadata keys shared by chunk strategies, the index and the evaluator
const (
	MetaChunkType     = "chunk_type"
	MetaChunkSection  = "chunk_section"
	MetaDataType      = "data_type"
	MetaProductID     = "product_id"
	MetaProductName   = "product_name"
	MetaCategory      = "category"
	MetaPrice         = "price"
	MetaFAQID         = "faq_id"
	MetaFAQIDs        = "faq_ids"
	MetaFAQCount      = "faq_count"
	MetaQuestion      = "question"
	MetaAnswer        = "answer"
	MetaRelatedAnswer = "related_answer"
	MetaRelatedQ      = "related_question"
	MetaFeatureIndex  = "feature_index"
	MetaFeature       = "feature_content"
	MetaSpecKey       = "specification_key"
	MetaSpecContent   = "specification_content"
)

// Data type discriminators for mixed corpora
const (
	DataTypeProduct = "product"
	DataTypeFAQ     = "faq"
)

// Metadata is the flat attribute map attached to a chunk
type Metadata map[string]any

// String returns the value under key formatted as text. Missing keys report
// false; non-string values are rendered with fmt.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Clone returns a shallow copy of the metadata
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Chunk is a unit of text plus metadata submitted to the index as one
// retrievable item
type Chunk struct {
	Text     string
	ID       string
	Metadata Metadata
}

// NewChunk builds a validated chunk
func NewChunk(text, id string, metadata Metadata) (Chunk, error) {
	c := Chunk{Text: text, ID: id, Metadata: metadata}
	if err := c.Validate(); err != nil {
		return Chunk{}, err
	}
	if c.Metadata == nil {
		c.Metadata = Metadata{}
	}
	return c, nil
}

// Validate checks that text and id are present
func (c Chunk) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyText
	}
	if c.ID == "" {
		return ErrEmptyID
	}
	return nil
}

// ChunkType returns the strategy name recorded in metadata
func (c Chunk) ChunkType() string {
	s, _ := c.Metadata.String(MetaChunkType)
	return s
}
