// Package types provides the shared entity model for ragbench.
//
// The types in this package are plain values passed between the chunk
// strategies, the indexing pipeline, the vector index and the evaluation
// engine. They carry no behavior beyond validation and small accessors.
//
// # Source Entities
//
// CatalogItem and FAQEntry mirror the records of the product catalog and the
// FAQ database:
//
//	item := types.CatalogItem{
//	    ID:       "P001",
//	    Name:     "Wireless Mouse",
//	    Category: "Peripherals",
//	    Price:    1980,
//	    Features: []string{"Bluetooth 5.0", "Silent click"},
//	}
//
// Specifications keep the key order of the source document. Each value is a
// SpecValue, a small recursive sum type with three kinds: scalar, list and
// mapping. Formatting rules switch on SpecValue.Kind and never inspect raw
// interface{} values.
//
// # Chunks
//
// A Chunk is one retrievable unit: text, identifier and metadata. NewChunk
// rejects empty text and empty identifiers:
//
//	chunk, err := types.NewChunk("Q: ...\n\nA: ...", "F001_qa_pair", types.Metadata{
//	    types.MetaChunkType: "qa_pair",
//	    types.MetaDataType:  types.DataTypeFAQ,
//	    types.MetaFAQID:     "F001",
//	})
//
// Metadata always carries chunk_type. Chunks destined for a mixed index also
// carry data_type and the identifier of their source entity.
//
// # Retrieval and Evaluation
//
// RetrievedDocument is what a vector index returns for a query. TestQuery is a
// labeled query with expected product or FAQ identifiers; when ExpectedFAQs is
// non-empty it governs scoring, otherwise ExpectedProducts does.
package types
