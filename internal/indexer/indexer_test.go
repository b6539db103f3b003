package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gapraoguy/rag-advance/internal/catalog"
	"github.com/gapraoguy/rag-advance/internal/strategy"
	"github.com/gapraoguy/rag-advance/pkg/types"
)

// recordingSink captures every Insert call
type recordingSink struct {
	mu    sync.Mutex
	calls int
	texts []string
	metas []types.Metadata
	ids   []string
	err   error
}

func (s *recordingSink) Insert(ctx context.Context, texts []string, metadatas []types.Metadata, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, texts...)
	s.metas = append(s.metas, metadatas...)
	s.ids = append(s.ids, ids...)
	return nil
}

type failingSource struct{ err error }

func (f failingSource) Products(ctx context.Context) ([]types.CatalogItem, error) { return nil, f.err }
func (f failingSource) FAQs(ctx context.Context) ([]types.FAQEntry, error)        { return nil, f.err }

func sampleProducts() []types.CatalogItem {
	return []types.CatalogItem{
		{
			ID:       "P001",
			Name:     "ワイヤレスマウス",
			Category: "周辺機器",
			Price:    1980,
			Features: []string{"静音クリック", "長時間バッテリー"},
			Specifications: types.Specifications{
				types.Entry("接続", types.Scalar("Bluetooth")),
				types.Entry("重量", types.Scalar("85g")),
			},
		},
		{
			ID:       "P002",
			Name:     "メカニカルキーボード",
			Category: "周辺機器",
			Price:    12800,
			Features: []string{"青軸"},
		},
	}
}

func sampleFAQs() []types.FAQEntry {
	return []types.FAQEntry{
		{ID: "FAQ001", Category: "返品", Question: "返品はできますか？", Answer: "30日以内なら可能です。"},
		{ID: "FAQ002", Category: "配送", Question: "送料はいくらですか？", Answer: "全国一律500円です。"},
		{ID: "FAQ003", Category: "返品", Question: "返金方法は？", Answer: "元の支払い方法に返金します。"},
	}
}

func newTestIndexer(t *testing.T, products []types.CatalogItem, faqs []types.FAQEntry) *Indexer {
	t.Helper()
	return New(catalog.NewSnapshot(products, faqs), zaptest.NewLogger(t))
}

func TestIndexProducts(t *testing.T) {
	tests := []struct {
		name       string
		strategy   string
		wantChunks int
	}{
		{name: "unified", strategy: strategy.Unified, wantChunks: 2},
		{name: "section", strategy: strategy.Section, wantChunks: 6},
		// P001: 1 + 2 features + 2 specs, P002: 1 + 1 feature
		{name: "granular", strategy: strategy.Granular, wantChunks: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newTestIndexer(t, sampleProducts(), nil)
			sink := &recordingSink{}

			report, err := idx.IndexProducts(context.Background(), sink, tt.strategy)
			require.NoError(t, err)

			assert.True(t, report.Success)
			assert.Equal(t, KindProducts, report.Kind)
			assert.Equal(t, tt.strategy, report.Strategy)
			assert.Equal(t, 2, report.TotalProducts)
			assert.Equal(t, tt.wantChunks, report.TotalChunks)
			assert.Equal(t, 1, sink.calls, "chunks must be loaded in one bulk insert")
			assert.Len(t, sink.ids, tt.wantChunks)
			assert.Len(t, sink.texts, tt.wantChunks)
			assert.Len(t, sink.metas, tt.wantChunks)
			assert.InDelta(t, float64(tt.wantChunks)/2, report.ChunksPerProduct(), 1e-9)

			for _, md := range sink.metas {
				assert.Equal(t, tt.strategy, md[types.MetaChunkType])
			}
		})
	}
}

func TestIndexProducts_UnknownStrategy(t *testing.T) {
	idx := newTestIndexer(t, sampleProducts(), nil)
	sink := &recordingSink{}

	_, err := idx.IndexProducts(context.Background(), sink, "bogus")
	require.Error(t, err)
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)
	assert.Contains(t, err.Error(), "product indexing failed")
	assert.Zero(t, sink.calls)
}

func TestIndexProducts_Empty(t *testing.T) {
	idx := newTestIndexer(t, nil, sampleFAQs())
	sink := &recordingSink{}

	_, err := idx.IndexProducts(context.Background(), sink, strategy.Unified)
	assert.ErrorIs(t, err, ErrNoEntities)
	assert.Zero(t, sink.calls)
}

func TestIndexProducts_SkipsInvalidEntities(t *testing.T) {
	products := append(sampleProducts(), types.CatalogItem{Name: "no id"})
	idx := newTestIndexer(t, products, nil)
	sink := &recordingSink{}

	report, err := idx.IndexProducts(context.Background(), sink, strategy.Unified)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalProducts)
	assert.Equal(t, 2, report.TotalChunks)
	assert.Equal(t, []string{""}, report.Skipped)
}

func TestIndexProducts_SinkError(t *testing.T) {
	idx := newTestIndexer(t, sampleProducts(), nil)
	sinkErr := errors.New("disk full")
	sink := &recordingSink{err: sinkErr}

	_, err := idx.IndexProducts(context.Background(), sink, strategy.Unified)
	require.Error(t, err)
	assert.ErrorIs(t, err, sinkErr)
	assert.Contains(t, err.Error(), "product indexing failed")
}

func TestIndexProducts_SourceError(t *testing.T) {
	srcErr := errors.New("catalog unavailable")
	idx := New(failingSource{err: srcErr}, zaptest.NewLogger(t))

	_, err := idx.IndexProducts(context.Background(), &recordingSink{}, strategy.Unified)
	assert.ErrorIs(t, err, srcErr)
}

func TestIndexFAQs(t *testing.T) {
	tests := []struct {
		name       string
		strategy   string
		wantChunks int
	}{
		{name: "qa pair", strategy: strategy.QAPair, wantChunks: 3},
		{name: "qa separate", strategy: strategy.QASeparate, wantChunks: 6},
		{name: "category unified", strategy: strategy.CategoryUnified, wantChunks: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newTestIndexer(t, nil, sampleFAQs())
			sink := &recordingSink{}

			report, err := idx.IndexFAQs(context.Background(), sink, tt.strategy)
			require.NoError(t, err)

			assert.Equal(t, KindFAQs, report.Kind)
			assert.Equal(t, 3, report.TotalFAQs)
			assert.Equal(t, tt.wantChunks, report.TotalChunks)
			assert.Len(t, sink.ids, tt.wantChunks)
			assert.InDelta(t, float64(tt.wantChunks)/3, report.ChunksPerFAQ(), 1e-9)
		})
	}
}

func TestIndexFAQs_Empty(t *testing.T) {
	idx := newTestIndexer(t, sampleProducts(), nil)

	_, err := idx.IndexFAQs(context.Background(), &recordingSink{}, strategy.QAPair)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEntities)
	assert.Contains(t, err.Error(), "FAQ indexing failed")
}

func TestIndexCombined(t *testing.T) {
	idx := newTestIndexer(t, sampleProducts(), sampleFAQs())
	sink := &recordingSink{}

	report, err := idx.IndexCombined(context.Background(), sink, strategy.Section, strategy.QAPair)
	require.NoError(t, err)

	assert.Equal(t, KindCombined, report.Kind)
	assert.Equal(t, strategy.Section, report.ProductStrategy)
	assert.Equal(t, strategy.QAPair, report.FAQStrategy)
	assert.Equal(t, 6, report.ProductChunks)
	assert.Equal(t, 3, report.FAQChunks)
	assert.Equal(t, 9, report.TotalChunks)
	assert.Equal(t, 1, sink.calls)

	// products come first, then FAQs
	assert.Equal(t, "P001_basic_info", sink.ids[0])
	assert.Equal(t, "FAQ001", sink.metas[6][types.MetaFAQID])
}

func TestIndexCombined_OneSideEmpty(t *testing.T) {
	idx := newTestIndexer(t, nil, sampleFAQs())
	sink := &recordingSink{}

	report, err := idx.IndexCombined(context.Background(), sink, strategy.Unified, strategy.QAPair)
	require.NoError(t, err)
	assert.Zero(t, report.ProductChunks)
	assert.Equal(t, 3, report.FAQChunks)
}

func TestIndexCombined_NothingToIndex(t *testing.T) {
	idx := newTestIndexer(t, nil, nil)
	sink := &recordingSink{}

	_, err := idx.IndexCombined(context.Background(), sink, strategy.Unified, strategy.QAPair)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEntities)
	assert.Contains(t, err.Error(), "indexing failed")
	assert.Zero(t, sink.calls)
}

func TestIndexCombined_UnknownFAQStrategy(t *testing.T) {
	idx := newTestIndexer(t, sampleProducts(), sampleFAQs())
	sink := &recordingSink{}

	_, err := idx.IndexCombined(context.Background(), sink, strategy.Unified, "bogus")
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)
	assert.Zero(t, sink.calls)
}

func TestProjection(t *testing.T) {
	md := types.Metadata{"k": "v"}
	chunks := []types.Chunk{
		{ID: "a", Text: "one", Metadata: md},
		{ID: "b", Text: "two", Metadata: md},
	}

	p := Project(chunks)
	require.NoError(t, p.Validate())
	assert.Equal(t, []string{"a", "b"}, p.IDs)
	assert.Equal(t, []string{"one", "two"}, p.Texts)

	p.IDs = p.IDs[:1]
	assert.ErrorIs(t, p.Validate(), ErrLengthMismatch)
}

func TestProductChunkStatistics(t *testing.T) {
	idx := newTestIndexer(t, sampleProducts(), nil)

	stats, err := idx.ProductChunkStatistics(context.Background(), strategy.Granular)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalEntities)
	assert.Equal(t, 7, stats.TotalChunks)
	assert.Equal(t, 2, stats.ChunksPerEntity.Min)
	assert.Equal(t, 5, stats.ChunksPerEntity.Max)
	assert.InDelta(t, 3.5, stats.ChunksPerEntity.Avg, 1e-9)
	assert.Positive(t, stats.TextLength.Min)

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"chunks_per_product"`)
	assert.Contains(t, string(data), `"text_length"`)
}

func TestFAQChunkStatistics_Grouped(t *testing.T) {
	idx := newTestIndexer(t, nil, sampleFAQs())

	stats, err := idx.FAQChunkStatistics(context.Background(), strategy.CategoryUnified)
	require.NoError(t, err)

	assert.True(t, stats.Grouped)
	assert.Equal(t, 3, stats.TotalEntities)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, 1, stats.ChunksPerEntity.Max)

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"chunks_per_faq"`)
	assert.Contains(t, string(data), `"grouped_by_category":true`)
}

func TestFAQChunkStatistics_PerEntry(t *testing.T) {
	idx := newTestIndexer(t, nil, sampleFAQs())

	stats, err := idx.FAQChunkStatistics(context.Background(), strategy.QASeparate)
	require.NoError(t, err)
	assert.False(t, stats.Grouped)
	assert.Equal(t, 6, stats.TotalChunks)
	assert.Equal(t, 2, stats.ChunksPerEntity.Min)
	assert.Equal(t, 2, stats.ChunksPerEntity.Max)
}

func TestReportJSON(t *testing.T) {
	product := &Report{Kind: KindProducts, Strategy: "unified", TotalProducts: 4, TotalChunks: 4, Success: true}
	data, err := json.Marshal(product)
	require.NoError(t, err)
	assert.JSONEq(t, `{"strategy":"unified","total_products":4,"total_chunks":4,"chunks_per_product":1,"success":true}`, string(data))

	combined := &Report{
		Kind: KindCombined, ProductStrategy: "section", FAQStrategy: "qa_pair",
		TotalProducts: 1, TotalFAQs: 2, TotalChunks: 5, ProductChunks: 3, FAQChunks: 2,
		Success: true,
	}
	data, err = json.Marshal(combined)
	require.NoError(t, err)
	assert.JSONEq(t, `{"product_strategy":"section","faq_strategy":"qa_pair","total_products":1,"total_faqs":2,"total_chunks":5,"product_chunks":3,"faq_chunks":2,"success":true}`, string(data))
}

func TestIndexLock(t *testing.T) {
	var lock IndexLock

	assert.True(t, lock.TryAcquire())
	assert.False(t, lock.TryAcquire())
	lock.Release()

	release, err := lock.Acquire()
	require.NoError(t, err)

	_, err = lock.Acquire()
	assert.ErrorIs(t, err, ErrIndexBusy)

	release()
	assert.True(t, lock.TryAcquire())
	lock.Release()
}

func TestIndexLock_Concurrent(t *testing.T) {
	var lock IndexLock
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lock.TryAcquire() {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, acquired)
}
