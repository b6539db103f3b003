// Package strategy implements the chunk strategies that turn catalog items and
// FAQ entries into retrievable chunks.
//
// Two closed families exist. Product strategies map one CatalogItem to chunks:
//
//   - unified: one chunk with the full rendered record
//   - section: three chunks (basic info, features, specifications)
//   - granular: one basic-info chunk, one chunk per feature and one chunk per
//     flattened specification entry
//
// FAQ strategies have two entry points. ChunksForEntry handles a single entry
// and ChunksForGroups handles entries grouped by category. Each FAQ strategy
// supports exactly one of them and rejects the other with
// ErrUnsupportedOperation:
//
//   - qa_pair: one "Q: ...\n\nA: ..." chunk per entry
//   - qa_separate: a question chunk and an answer chunk per entry
//   - category_unified: one numbered Q/A list per category (groups only)
//
// Strategies are stateless and safe for concurrent use. Lookups go through
// LookupProduct and LookupFAQ, which reject unknown names with an error that
// lists the available options.
//
// Chunk text is rendered with Japanese field labels (商品名, カテゴリ, 価格,
// ...) because the catalog and the test queries are Japanese; the embedding
// model sees the same surface form as the queries.
package strategy
