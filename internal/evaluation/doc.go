// Package evaluation scores retrieval quality against labeled test queries.
//
// Each test query is issued against a Retriever (normally a
// vectorindex.Index). Retrieved documents are split into product ids and
// FAQ ids by their data_type tag, and the governing expected set of the
// query (FAQs when present, products otherwise) is compared with the
// matching bucket:
//
//	precision = |expected ∩ found| / |found|      (0 when found is empty)
//	recall    = |expected ∩ found| / |expected|   (0 when expected is empty)
//	f1        = 2pr / (p + r)                     (0 when p + r is 0)
//
// Aggregates are macro-averaged over the queries that evaluated without
// error, overall and per query_type.
//
// Documents without a data_type tag are scored as products. Install a hook
// with WithUntaggedHook to observe them.
package evaluation
