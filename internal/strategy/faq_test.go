package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapraoguy/rag-advance/pkg/types"
)

var sampleFAQs = []types.FAQEntry{
	{ID: "F001", Category: "Shipping", Question: "Q1", Answer: "A1"},
	{ID: "F002", Category: "Returns Policy", Question: "Q2", Answer: "A2"},
	{ID: "F003", Category: "Shipping", Question: "Q3", Answer: "A3"},
}

func TestQAPairStrategy(t *testing.T) {
	chunks, err := QAPairStrategy{}.ChunksForEntry(sampleFAQs[0])
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "Q: Q1\n\nA: A1", chunks[0].Text)
	assert.Equal(t, "F001_qa_pair", chunks[0].ID)
	assert.Equal(t, types.DataTypeFAQ, chunks[0].Metadata[types.MetaDataType])
	assert.Equal(t, "F001", chunks[0].Metadata[types.MetaFAQID])
	assert.Equal(t, "A1", chunks[0].Metadata[types.MetaAnswer])

	_, err = QAPairStrategy{}.ChunksForGroups(GroupByCategory(sampleFAQs))
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestQASeparateStrategy(t *testing.T) {
	chunks, err := QASeparateStrategy{}.ChunksForEntry(sampleFAQs[0])
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "F001_question", chunks[0].ID)
	assert.Equal(t, "FAQ質問: Q1\nカテゴリ: Shipping\nFAQ ID: F001", chunks[0].Text)
	assert.Equal(t, "A1", chunks[0].Metadata[types.MetaRelatedAnswer])

	assert.Equal(t, "F001_answer", chunks[1].ID)
	assert.Equal(t, "FAQ回答: A1\n関連質問: Q1\nカテゴリ: Shipping\nFAQ ID: F001", chunks[1].Text)
	assert.Equal(t, "Q1", chunks[1].Metadata[types.MetaRelatedQ])
	assert.Equal(t, SectionAnswer, chunks[1].Metadata[types.MetaChunkSection])

	_, err = QASeparateStrategy{}.ChunksForGroups(nil)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestCategoryUnifiedStrategy(t *testing.T) {
	groups := GroupByCategory(sampleFAQs)
	require.Len(t, groups, 2)
	assert.Equal(t, "Shipping", groups[0].Category)
	assert.Len(t, groups[0].Entries, 2)

	chunks, err := CategoryUnifiedStrategy{}.ChunksForGroups(groups)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "category_shipping_unified", chunks[0].ID)
	assert.Equal(t, "カテゴリ: Shipping\n\n1. Q: Q1\nA: A1\n2. Q: Q3\nA: A3", chunks[0].Text)
	assert.Equal(t, "F001,F003", chunks[0].Metadata[types.MetaFAQIDs])
	assert.Equal(t, 2, chunks[0].Metadata[types.MetaFAQCount])

	assert.Equal(t, "category_returns_policy_unified", chunks[1].ID)

	_, err = CategoryUnifiedStrategy{}.ChunksForEntry(sampleFAQs[0])
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestCategoryUnifiedStrategy_SkipsEmptyGroups(t *testing.T) {
	chunks, err := CategoryUnifiedStrategy{}.ChunksForGroups([]CategoryGroup{{Category: "Empty"}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestLookupFAQ(t *testing.T) {
	s, err := LookupFAQ(QASeparate)
	require.NoError(t, err)
	assert.False(t, s.Grouped())

	s, err = LookupFAQ(CategoryUnified)
	require.NoError(t, err)
	assert.True(t, s.Grouped())

	_, err = LookupFAQ("unified")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Contains(t, err.Error(), "unknown FAQ strategy: unified")
	assert.Contains(t, err.Error(), "qa_pair, qa_separate, category_unified")
}
