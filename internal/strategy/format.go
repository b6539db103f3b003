package strategy

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gapraoguy/rag-advance/pkg/types"
)

// Field labels used in rendered chunk text
const (
	labelName        = "商品名"
	labelCategory    = "カテゴリ"
	labelPrice       = "価格"
	labelDescription = "説明"
	labelFeatures    = "特徴"
	labelSpecs       = "仕様"
	featureBullet    = "・"
)

// formatPrice renders a price in yen with thousands separators, e.g. ¥1,980
func formatPrice(price int64) string {
	p := message.NewPrinter(language.English)
	return "¥" + p.Sprintf("%d", price)
}

// basicInfoText renders name, category, price and description
func basicInfoText(item types.CatalogItem) string {
	return labelName + ": " + item.Name + "\n" +
		labelCategory + ": " + item.Category + "\n" +
		labelPrice + ": " + formatPrice(item.Price) + "\n" +
		labelDescription + ": " + item.Description
}

// formatFeatures renders one bulleted line per feature
func formatFeatures(features []string) string {
	lines := make([]string, len(features))
	for i, f := range features {
		lines[i] = featureBullet + f
	}
	return strings.Join(lines, "\n")
}

// formatSpecifications renders specifications one entry per line. Nested
// mappings get a "key:" header followed by indented "  sub: value" lines.
func formatSpecifications(specs types.Specifications) string {
	lines := make([]string, 0, len(specs))
	for _, e := range specs {
		switch e.Value.Kind() {
		case types.SpecMapping:
			lines = append(lines, e.Key+":")
			for _, sub := range e.Value.Entries() {
				lines = append(lines, "  "+sub.Key+": "+sub.Value.String())
			}
		default:
			lines = append(lines, e.Key+": "+e.Value.String())
		}
	}
	return strings.Join(lines, "\n")
}

// specLeaf is one flattened specification entry used by granular chunking
type specLeaf struct {
	key  string
	text string
}

// flattenSpecifications expands nested mappings into one leaf per inner key.
// Lists and scalars become a single leaf.
func flattenSpecifications(specs types.Specifications) []specLeaf {
	leaves := make([]specLeaf, 0, len(specs))
	for _, e := range specs {
		switch e.Value.Kind() {
		case types.SpecMapping:
			for _, sub := range e.Value.Entries() {
				leaves = append(leaves, specLeaf{
					key:  e.Key + "_" + sub.Key,
					text: e.Key + " - " + sub.Key + ": " + sub.Value.String(),
				})
			}
		default:
			leaves = append(leaves, specLeaf{key: e.Key, text: e.Key + ": " + e.Value.String()})
		}
	}
	return leaves
}

var specKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// sanitizeSpecKey makes a specification key safe for use inside a chunk id
func sanitizeSpecKey(key string) string {
	return specKeyReplacer.Replace(key)
}

// productMetadata returns the metadata shared by every product chunk
func productMetadata(item types.CatalogItem, chunkType string) types.Metadata {
	return types.Metadata{
		types.MetaProductID:   item.ID,
		types.MetaProductName: item.Name,
		types.MetaCategory:    item.Category,
		types.MetaPrice:       item.Price,
		types.MetaChunkType:   chunkType,
		types.MetaDataType:    types.DataTypeProduct,
	}
}
