package strategy

import (
	"fmt"
	"strconv"

	"github.com/gapraoguy/rag-advance/pkg/types"
)

// Chunk sections recorded under chunk_section
const (
	SectionAll            = "all"
	SectionBasicInfo      = "basic_info"
	SectionFeatures       = "features"
	SectionSpecifications = "specifications"
	SectionFeature        = "feature"
	SectionSpecification  = "specification"
	SectionQuestion       = "question"
	SectionAnswer         = "answer"
)

// UnifiedStrategy renders the whole catalog item into a single chunk
type UnifiedStrategy struct{}

func (UnifiedStrategy) Name() string { return Unified }

// Chunks returns exactly one chunk with id {item_id}_unified
func (UnifiedStrategy) Chunks(item types.CatalogItem) ([]types.Chunk, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	text := basicInfoText(item) + "\n\n" +
		labelFeatures + ":\n" + formatFeatures(item.Features) + "\n\n" +
		labelSpecs + ":\n" + formatSpecifications(item.Specifications)

	md := productMetadata(item, Unified)
	md[types.MetaChunkSection] = SectionAll

	chunk, err := types.NewChunk(text, item.ID+"_unified", md)
	if err != nil {
		return nil, fmt.Errorf("failed to build unified chunk: %w", err)
	}
	return []types.Chunk{chunk}, nil
}

// SectionStrategy splits a catalog item into basic info, features and
// specifications
type SectionStrategy struct{}

func (SectionStrategy) Name() string { return Section }

// Chunks returns exactly three chunks
func (SectionStrategy) Chunks(item types.CatalogItem) ([]types.Chunk, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	nameLine := labelName + ": " + item.Name + "\n\n"
	parts := []struct {
		section string
		text    string
	}{
		{SectionBasicInfo, basicInfoText(item)},
		{SectionFeatures, nameLine + labelFeatures + ":\n" + formatFeatures(item.Features)},
		{SectionSpecifications, nameLine + labelSpecs + ":\n" + formatSpecifications(item.Specifications)},
	}

	chunks := make([]types.Chunk, 0, len(parts))
	for _, p := range parts {
		md := productMetadata(item, Section)
		md[types.MetaChunkSection] = p.section

		chunk, err := types.NewChunk(p.text, item.ID+"_"+p.section, md)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s chunk: %w", p.section, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// GranularStrategy emits one chunk per feature and per flattened
// specification entry, plus a basic-info chunk
type GranularStrategy struct{}

func (GranularStrategy) Name() string { return Granular }

// Chunks returns 1 + len(features) + number of flattened specification leaves
func (GranularStrategy) Chunks(item types.CatalogItem) ([]types.Chunk, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	leaves := flattenSpecifications(item.Specifications)
	chunks := make([]types.Chunk, 0, 1+len(item.Features)+len(leaves))

	md := productMetadata(item, Granular)
	md[types.MetaChunkSection] = SectionBasicInfo
	basic, err := types.NewChunk(basicInfoText(item), item.ID+"_"+SectionBasicInfo, md)
	if err != nil {
		return nil, fmt.Errorf("failed to build basic info chunk: %w", err)
	}
	chunks = append(chunks, basic)

	nameLine := labelName + ": " + item.Name + "\n\n"

	for idx, feature := range item.Features {
		md := productMetadata(item, Granular)
		md[types.MetaChunkSection] = SectionFeature
		md[types.MetaFeatureIndex] = idx
		md[types.MetaFeature] = feature

		id := item.ID + "_feature_" + strconv.Itoa(idx)
		chunk, err := types.NewChunk(nameLine+labelFeatures+": "+feature, id, md)
		if err != nil {
			return nil, fmt.Errorf("failed to build feature chunk %d: %w", idx, err)
		}
		chunks = append(chunks, chunk)
	}

	for _, leaf := range leaves {
		md := productMetadata(item, Granular)
		md[types.MetaChunkSection] = SectionSpecification
		md[types.MetaSpecKey] = leaf.key
		md[types.MetaSpecContent] = leaf.text

		id := item.ID + "_spec_" + sanitizeSpecKey(leaf.key)
		chunk, err := types.NewChunk(nameLine+labelSpecs+": "+leaf.text, id, md)
		if err != nil {
			return nil, fmt.Errorf("failed to build specification chunk %s: %w", leaf.key, err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}
