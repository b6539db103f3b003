package vectorindex

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gapraoguy/rag-advance/internal/embedder"
	"github.com/gapraoguy/rag-advance/internal/storage"
	"github.com/gapraoguy/rag-advance/pkg/types"
)

// SearchMode defines how a query is matched against the collection
type SearchMode string

const (
	SearchModeVector  SearchMode = "vector"  // Vector similarity only
	SearchModeKeyword SearchMode = "keyword" // BM25 text search only
	SearchModeHybrid  SearchMode = "hybrid"  // Vector + BM25 with RRF
)

// ParseSearchMode validates a mode name
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(s)) {
	case SearchModeVector:
		return SearchModeVector, nil
	case SearchModeKeyword:
		return SearchModeKeyword, nil
	case SearchModeHybrid:
		return SearchModeHybrid, nil
	default:
		return "", fmt.Errorf("unsupported search mode: %s (expected vector, keyword or hybrid)", s)
	}
}

// Request contains parameters for a search operation
type Request struct {
	Query    string
	Limit    int
	Mode     SearchMode // empty uses the index mode
	Filters  *storage.SearchFilters
	UseCache bool
}

// Response contains ranked documents and search metadata
type Response struct {
	Documents     []types.RetrievedDocument
	Mode          SearchMode
	Duration      time.Duration
	CacheHit      bool
	VectorResults int
	TextResults   int
}

// cacheEntry represents a cached response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// rankedResult represents a chunk with its relevance score
type rankedResult struct {
	chunkID int64
	score   float64
}

// Search runs a query in the requested mode
func (i *Index) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if req.Limit < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, req.Limit)
	}
	if req.Mode == "" {
		req.Mode = i.opts.Mode
	}

	if req.UseCache {
		if cached := i.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	collectionID, err := i.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	var (
		ranked []rankedResult
		resp   = &Response{Mode: req.Mode}
	)
	switch req.Mode {
	case SearchModeVector:
		vr, err := i.vectorSearch(ctx, collectionID, req)
		if err != nil {
			return nil, err
		}
		ranked = fromVectorResults(vr)
		resp.VectorResults = len(vr)
	case SearchModeKeyword:
		tr, err := i.keywordSearch(ctx, collectionID, req.Query, req.Limit, req.Filters)
		if err != nil {
			return nil, err
		}
		ranked = fromTextResults(tr)
		resp.TextResults = len(tr)
	case SearchModeHybrid:
		ranked, resp.VectorResults, resp.TextResults, err = i.hybridSearch(ctx, collectionID, req)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode)
	}

	docs, err := i.fetchDocuments(ctx, ranked, req.Limit)
	if err != nil {
		return nil, err
	}
	resp.Documents = docs
	resp.Duration = time.Since(start)

	if req.UseCache && len(docs) > 0 {
		i.storeInCache(req, resp)
	}

	i.logger.Debug("search complete",
		zap.String("mode", string(req.Mode)),
		zap.Int("results", len(docs)),
		zap.Duration("duration", resp.Duration))
	return resp, nil
}

func (i *Index) embedQuery(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := i.withTimeout(ctx)
	defer cancel()

	emb, err := i.embedder.GenerateEmbedding(callCtx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	return emb.Vector, nil
}

func (i *Index) vectorSearch(ctx context.Context, collectionID int64, req Request) ([]storage.VectorResult, error) {
	return i.vectorSearchN(ctx, collectionID, req.Query, req.Limit, req.Filters)
}

func (i *Index) vectorSearchN(ctx context.Context, collectionID int64, query string, limit int, filters *storage.SearchFilters) ([]storage.VectorResult, error) {
	vector, err := i.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := i.withTimeout(ctx)
	defer cancel()
	return i.storage.SearchVector(callCtx, collectionID, vector, limit, filters)
}

// keywordSearch treats a query with no matchable terms as an empty result
func (i *Index) keywordSearch(ctx context.Context, collectionID int64, query string, limit int, filters *storage.SearchFilters) ([]storage.TextResult, error) {
	callCtx, cancel := i.withTimeout(ctx)
	defer cancel()

	results, err := i.storage.SearchText(callCtx, collectionID, query, limit, filters)
	if errors.Is(err, storage.ErrEmptyQuery) {
		return []storage.TextResult{}, nil
	}
	return results, err
}

// searchResult holds results from concurrent search operations
type searchResult struct {
	vectorResults []storage.VectorResult
	textResults   []storage.TextResult
	err           error
}

// hybridSearch runs vector and BM25 search concurrently and fuses the
// rankings. One side may fail; both failing is an error.
func (i *Index) hybridSearch(ctx context.Context, collectionID int64, req Request) ([]rankedResult, int, int, error) {
	vectorChan := make(chan searchResult, 1)
	textChan := make(chan searchResult, 1)

	go func() {
		var res searchResult
		res.vectorResults, res.err = i.vectorSearchN(ctx, collectionID, req.Query, req.Limit*2, req.Filters)
		vectorChan <- res
	}()
	go func() {
		var res searchResult
		res.textResults, res.err = i.keywordSearch(ctx, collectionID, req.Query, req.Limit*2, req.Filters)
		textChan <- res
	}()

	var vectorRes, textRes searchResult
	var vectorDone, textDone bool
	for !vectorDone || !textDone {
		select {
		case vectorRes = <-vectorChan:
			vectorDone = true
		case textRes = <-textChan:
			textDone = true
		case <-ctx.Done():
			return nil, 0, 0, ctx.Err()
		}
	}

	if vectorRes.err != nil && textRes.err != nil {
		return nil, 0, 0, fmt.Errorf("both searches failed: vector=%w, text=%v", vectorRes.err, textRes.err)
	}
	if vectorRes.err != nil {
		i.logger.Warn("vector search failed, using keyword results only", zap.Error(vectorRes.err))
	}
	if textRes.err != nil {
		i.logger.Warn("keyword search failed, using vector results only", zap.Error(textRes.err))
	}

	fused := applyRRF(vectorRes.vectorResults, textRes.textResults, i.opts.RRFConstant)
	return fused, len(vectorRes.vectorResults), len(textRes.textResults), nil
}

func fromVectorResults(results []storage.VectorResult) []rankedResult {
	ranked := make([]rankedResult, len(results))
	for n, r := range results {
		ranked[n] = rankedResult{chunkID: r.ChunkID, score: r.SimilarityScore}
	}
	return ranked
}

func fromTextResults(results []storage.TextResult) []rankedResult {
	ranked := make([]rankedResult, len(results))
	for n, r := range results {
		ranked[n] = rankedResult{chunkID: r.ChunkID, score: r.BM25Score}
	}
	return ranked
}

// applyRRF combines rankings with Reciprocal Rank Fusion:
// RRF(d) = sum over lists of 1/(k + rank(d))
func applyRRF(vectorResults []storage.VectorResult, textResults []storage.TextResult, k float64) []rankedResult {
	if k == 0 {
		k = DefaultRRFConstant
	}

	scores := make(map[int64]float64)
	order := make([]int64, 0, len(vectorResults)+len(textResults))
	add := func(chunkID int64, rank int) {
		if _, seen := scores[chunkID]; !seen {
			order = append(order, chunkID)
		}
		scores[chunkID] += 1.0 / (k + float64(rank+1))
	}

	for rank, vr := range vectorResults {
		add(vr.ChunkID, rank)
	}
	for rank, tr := range textResults {
		add(tr.ChunkID, rank)
	}

	results := make([]rankedResult, len(order))
	for n, chunkID := range order {
		results[n] = rankedResult{chunkID: chunkID, score: scores[chunkID]}
	}

	// stable so equal scores keep first-seen order
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})
	return results
}

// fetchDocuments loads chunk text and metadata for the top ranked results
func (i *Index) fetchDocuments(ctx context.Context, ranked []rankedResult, limit int) ([]types.RetrievedDocument, error) {
	if limit > len(ranked) {
		limit = len(ranked)
	}
	ranked = ranked[:limit]

	ids := make([]int64, len(ranked))
	for n, r := range ranked {
		ids[n] = r.chunkID
	}

	callCtx, cancel := i.withTimeout(ctx)
	defer cancel()

	chunks, err := i.storage.GetChunks(callCtx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*storage.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	docs := make([]types.RetrievedDocument, 0, len(ranked))
	for _, r := range ranked {
		chunk, ok := byID[r.chunkID]
		if !ok {
			continue // removed between search and fetch
		}
		metadata, err := decodeMetadata(chunk.Metadata)
		if err != nil {
			i.logger.Warn("skipping chunk with unreadable metadata",
				zap.String("chunk_id", chunk.ChunkKey), zap.Error(err))
			continue
		}
		docs = append(docs, types.RetrievedDocument{
			ID:       chunk.ChunkKey,
			Text:     chunk.Content,
			Metadata: metadata,
			Score:    r.score,
		})
	}
	return docs, nil
}

// checkCache returns a copy of a live cached response, or nil
func (i *Index) checkCache(req Request) *Response {
	hash := i.computeQueryHash(req)
	now := time.Now()

	i.cacheMu.RLock()
	entry, found := i.cache.Get(hash)
	if !found {
		i.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		i.cacheMu.RUnlock()

		i.cacheMu.Lock()
		i.cache.Remove(hash)
		i.cacheMu.Unlock()
		return nil
	}

	response := copyResponse(entry.response)
	i.cacheMu.RUnlock()
	return response
}

func (i *Index) storeInCache(req Request, resp *Response) {
	entry := &cacheEntry{
		response:  copyResponse(resp),
		expiresAt: time.Now().Add(i.opts.CacheTTL),
	}

	i.cacheMu.Lock()
	i.cache.Add(i.computeQueryHash(req), entry)
	i.cacheMu.Unlock()
}

// invalidateCache drops every cached response. Called after writes.
func (i *Index) invalidateCache() {
	i.cacheMu.Lock()
	i.cache.Purge()
	i.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (i *Index) CacheLen() int {
	i.cacheMu.RLock()
	defer i.cacheMu.RUnlock()
	return i.cache.Len()
}

// copyResponse deep-copies a response so cached entries are never shared
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Documents = make([]types.RetrievedDocument, len(src.Documents))
	for n, doc := range src.Documents {
		doc.Metadata = doc.Metadata.Clone()
		dst.Documents[n] = doc
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func (i *Index) computeQueryHash(req Request) [32]byte {
	var data strings.Builder
	data.WriteString(i.name)
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(fmt.Sprintf("%d", req.Limit))

	if req.Filters != nil {
		data.WriteString("|filters:")
		data.WriteString(strings.Join(req.Filters.ChunkTypes, ","))
		data.WriteString("|")
		data.WriteString(strings.Join(req.Filters.DataTypes, ","))
		data.WriteString("|")
		data.WriteString(fmt.Sprintf("%.2f", req.Filters.MinRelevance))
	}

	return sha256.Sum256([]byte(data.String()))
}
