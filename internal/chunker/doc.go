// Package chunker generates chunks for collections of catalog items and FAQ
// entries using a named strategy.
//
// # Basic Usage
//
//	svc, err := chunker.NewProductService("granular", logger)
//	if err != nil {
//	    return err // unknown strategy, lists the available names
//	}
//
//	batch := svc.GenerateAll(items)
//	for _, f := range batch.Failures {
//	    fmt.Printf("skipped %s: %v\n", f.EntityID, f.Err)
//	}
//
// # Failure Isolation
//
// GenerateAll never aborts on a single bad record. A failing entity is
// logged at WARN, recorded in Batch.Failures and skipped; chunks of the
// remaining entities are returned in input order.
//
// # Grouped FAQ Strategies
//
// For strategies that work on category groups (category_unified),
// FAQService.GenerateAll groups the entries by category first and then hands
// each group to the strategy. Failure isolation applies per category.
//
// # Token Estimation
//
// EstimateTokens uses a simple heuristic (runes/TokensPerRune) and is only used
// for chunk statistics. It is not a tokenizer.
package chunker
