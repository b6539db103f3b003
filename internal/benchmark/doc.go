// Package benchmark compares chunk strategies by retrieval quality.
//
// A Runner takes an ordered list of candidates. For each one, sequentially,
// it clears the candidate's own index namespace, indexes the catalog with
// the candidate's strategies and evaluates the result against the test
// queries. Candidates that fail are recorded and excluded from the
// comparison.
//
// The comparison picks the best candidate per metric and computes the
// percentage improvement of every candidate over the baseline ("unified",
// or "unified+qa_pair" in combined mode). F1 improvements are banded:
//
//	> 10%     recommended
//	(0, 10%]  marginal improvement
//	<= 0%     no improvement
//
// Reports are written as JSON under {data_dir}/benchmark_results and can be
// recorded in storage. Per-candidate results are also exported as
// Prometheus gauges.
package benchmark
