// Package catalog loads the product catalog and the FAQ database into an
// immutable in-memory Snapshot.
//
// Both sources are JSON documents with a top-level array key:
//
//	{"products": [{"product_id": "P001", "product_name": "...", ...}]}
//	{"faqs": [{"faq_id": "F001", "category": "...", "question": "...", "answer": "..."}]}
//
// A missing file, malformed JSON or a missing top-level key is a fatal load
// error. The snapshot is built once at startup and shared read-only; a new
// process (or a new Load) is needed to observe edits to the files.
package catalog
