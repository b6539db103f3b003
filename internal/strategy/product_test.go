package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapraoguy/rag-advance/pkg/types"
)

func sampleItem() types.CatalogItem {
	return types.CatalogItem{
		ID:          "P001",
		Name:        "ワイヤレスマウス",
		Category:    "周辺機器",
		Price:       1980,
		Description: "静音設計のマウス",
		Features:    []string{"f1", "f2"},
		Specifications: types.Specifications{
			types.Entry("color", types.Scalar("red")),
			types.Entry("size", types.Mapping(
				types.Entry("w", types.Scalar("10")),
				types.Entry("h", types.Scalar("5")),
			)),
		},
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "¥1,980", formatPrice(1980))
	assert.Equal(t, "¥0", formatPrice(0))
	assert.Equal(t, "¥1,234,567", formatPrice(1234567))
}

func TestUnifiedStrategy(t *testing.T) {
	chunks, err := UnifiedStrategy{}.Chunks(sampleItem())
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	want := "商品名: ワイヤレスマウス\n" +
		"カテゴリ: 周辺機器\n" +
		"価格: ¥1,980\n" +
		"説明: 静音設計のマウス\n\n" +
		"特徴:\n・f1\n・f2\n\n" +
		"仕様:\ncolor: red\nsize:\n  w: 10\n  h: 5"

	c := chunks[0]
	assert.Equal(t, want, c.Text)
	assert.Equal(t, "P001_unified", c.ID)
	assert.Equal(t, Unified, c.Metadata[types.MetaChunkType])
	assert.Equal(t, SectionAll, c.Metadata[types.MetaChunkSection])
	assert.Equal(t, "P001", c.Metadata[types.MetaProductID])
	assert.Equal(t, int64(1980), c.Metadata[types.MetaPrice])
}

func TestSectionStrategy(t *testing.T) {
	chunks, err := SectionStrategy{}.Chunks(sampleItem())
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "P001_basic_info", chunks[0].ID)
	assert.Equal(t, "P001_features", chunks[1].ID)
	assert.Equal(t, "P001_specifications", chunks[2].ID)

	assert.Equal(t, "商品名: ワイヤレスマウス\nカテゴリ: 周辺機器\n価格: ¥1,980\n説明: 静音設計のマウス", chunks[0].Text)
	assert.Equal(t, "商品名: ワイヤレスマウス\n\n特徴:\n・f1\n・f2", chunks[1].Text)
	assert.Equal(t, "商品名: ワイヤレスマウス\n\n仕様:\ncolor: red\nsize:\n  w: 10\n  h: 5", chunks[2].Text)

	for _, c := range chunks {
		assert.Equal(t, Section, c.Metadata[types.MetaChunkType])
		assert.Equal(t, "P001", c.Metadata[types.MetaProductID])
	}
	assert.Equal(t, SectionFeatures, chunks[1].Metadata[types.MetaChunkSection])
}

func TestGranularStrategy_ChunkCount(t *testing.T) {
	chunks, err := GranularStrategy{}.Chunks(sampleItem())
	require.NoError(t, err)

	// basic info + 2 features + color + size_w + size_h
	require.Len(t, chunks, 6)

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{
		"P001_basic_info",
		"P001_feature_0",
		"P001_feature_1",
		"P001_spec_color",
		"P001_spec_size_w",
		"P001_spec_size_h",
	}, ids)

	assert.Equal(t, "商品名: ワイヤレスマウス\n\n特徴: f2", chunks[2].Text)
	assert.Equal(t, 1, chunks[2].Metadata[types.MetaFeatureIndex])
	assert.Equal(t, "f2", chunks[2].Metadata[types.MetaFeature])

	assert.Equal(t, "商品名: ワイヤレスマウス\n\n仕様: size - w: 10", chunks[4].Text)
	assert.Equal(t, "size_w", chunks[4].Metadata[types.MetaSpecKey])
	assert.Equal(t, SectionSpecification, chunks[4].Metadata[types.MetaChunkSection])
}

func TestGranularStrategy_ListsAndSanitizedKeys(t *testing.T) {
	item := types.CatalogItem{
		ID:   "P9",
		Name: "Cable",
		Specifications: types.Specifications{
			types.Entry("usb-c.version", types.Scalar("3.2")),
			types.Entry("ports", types.List(types.Scalar("A"), types.Scalar("C"))),
			types.Entry("empty", types.Mapping()),
		},
	}

	chunks, err := GranularStrategy{}.Chunks(item)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "P9_spec_usb_c_version", chunks[1].ID)
	assert.Equal(t, "usb-c.version", chunks[1].Metadata[types.MetaSpecKey])
	assert.Equal(t, "商品名: Cable\n\n仕様: ports: A, C", chunks[2].Text)
}

func TestProductStrategies_RejectMissingID(t *testing.T) {
	item := sampleItem()
	item.ID = ""
	for _, name := range ProductStrategies() {
		s, err := LookupProduct(name)
		require.NoError(t, err)
		_, err = s.Chunks(item)
		assert.ErrorIs(t, err, types.ErrMissingEntityID, name)
	}
}

func TestLookupProduct_Unknown(t *testing.T) {
	_, err := LookupProduct("paragraph")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Equal(t, "unknown strategy: paragraph. available strategies: unified, section, granular", err.Error())
}
