// Package indexer coordinates the indexing pipeline for product catalogs and
// FAQ collections.
//
// The indexer fetches entities from a Source, chunks them with a named
// strategy and bulk-loads the resulting (text, metadata, id) triples into a
// Sink, normally a vectorindex.Index.
//
// # Basic Usage
//
//	idx := indexer.New(snapshot, logger)
//
//	report, err := idx.IndexProducts(ctx, index, strategy.Section)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("indexed %d chunks from %d products\n", report.TotalChunks, report.TotalProducts)
//
// # Combined Indexing
//
// IndexCombined unions product chunks and FAQ chunks into a single insert so
// that one collection can answer both kinds of query. Either source may be
// empty; an empty union is an error.
//
// # Failure Handling
//
// Entities that fail chunk generation are logged and listed in
// Report.Skipped; the remaining chunks are still indexed. Errors returned
// by the pipeline are wrapped with the kind of indexing that failed.
//
// # Concurrency
//
// IndexLock guards exclusive operations that rebuild shared collections.
// Callers acquire it before indexing and release it when done:
//
//	release, err := lock.Acquire()
//	if err != nil {
//	    return err // ErrIndexBusy
//	}
//	defer release()
package indexer
