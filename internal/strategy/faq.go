package strategy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gapraoguy/rag-advance/pkg/types"
)

// CategoryGroup is the FAQ entries of one category in source order
type CategoryGroup struct {
	Category string
	Entries  []types.FAQEntry
}

// GroupByCategory groups entries by category. Groups appear in order of the
// first entry of each category.
func GroupByCategory(entries []types.FAQEntry) []CategoryGroup {
	index := make(map[string]int)
	groups := make([]CategoryGroup, 0)
	for _, e := range entries {
		i, ok := index[e.Category]
		if !ok {
			i = len(groups)
			index[e.Category] = i
			groups = append(groups, CategoryGroup{Category: e.Category})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

func faqMetadata(entry types.FAQEntry, chunkType string) types.Metadata {
	return types.Metadata{
		types.MetaFAQID:     entry.ID,
		types.MetaCategory:  entry.Category,
		types.MetaChunkType: chunkType,
		types.MetaDataType:  types.DataTypeFAQ,
	}
}

func unsupported(strategy, op string) error {
	return fmt.Errorf("%w: %s strategy does not support %s", ErrUnsupportedOperation, strategy, op)
}

// QAPairStrategy keeps question and answer together in one chunk
type QAPairStrategy struct{}

func (QAPairStrategy) Name() string  { return QAPair }
func (QAPairStrategy) Grouped() bool { return false }

// ChunksForEntry returns one chunk "Q: {question}\n\nA: {answer}"
func (QAPairStrategy) ChunksForEntry(entry types.FAQEntry) ([]types.Chunk, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	md := faqMetadata(entry, QAPair)
	md[types.MetaQuestion] = entry.Question
	md[types.MetaAnswer] = entry.Answer

	chunk, err := types.NewChunk("Q: "+entry.Question+"\n\nA: "+entry.Answer, entry.ID+"_qa_pair", md)
	if err != nil {
		return nil, fmt.Errorf("failed to build qa_pair chunk: %w", err)
	}
	return []types.Chunk{chunk}, nil
}

func (QAPairStrategy) ChunksForGroups([]CategoryGroup) ([]types.Chunk, error) {
	return nil, unsupported(QAPair, "grouped chunking")
}

// QASeparateStrategy indexes the question and the answer as separate chunks
type QASeparateStrategy struct{}

func (QASeparateStrategy) Name() string  { return QASeparate }
func (QASeparateStrategy) Grouped() bool { return false }

// ChunksForEntry returns a question chunk followed by an answer chunk
func (QASeparateStrategy) ChunksForEntry(entry types.FAQEntry) ([]types.Chunk, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	qmd := faqMetadata(entry, QASeparate)
	qmd[types.MetaChunkSection] = SectionQuestion
	qmd[types.MetaQuestion] = entry.Question
	qmd[types.MetaRelatedAnswer] = entry.Answer

	qText := "FAQ質問: " + entry.Question + "\n" +
		labelCategory + ": " + entry.Category + "\n" +
		"FAQ ID: " + entry.ID

	question, err := types.NewChunk(qText, entry.ID+"_question", qmd)
	if err != nil {
		return nil, fmt.Errorf("failed to build question chunk: %w", err)
	}

	amd := faqMetadata(entry, QASeparate)
	amd[types.MetaChunkSection] = SectionAnswer
	amd[types.MetaAnswer] = entry.Answer
	amd[types.MetaRelatedQ] = entry.Question

	aText := "FAQ回答: " + entry.Answer + "\n" +
		"関連質問: " + entry.Question + "\n" +
		labelCategory + ": " + entry.Category + "\n" +
		"FAQ ID: " + entry.ID

	answer, err := types.NewChunk(aText, entry.ID+"_answer", amd)
	if err != nil {
		return nil, fmt.Errorf("failed to build answer chunk: %w", err)
	}

	return []types.Chunk{question, answer}, nil
}

func (QASeparateStrategy) ChunksForGroups([]CategoryGroup) ([]types.Chunk, error) {
	return nil, unsupported(QASeparate, "grouped chunking")
}

// CategoryUnifiedStrategy renders every entry of a category into one chunk
type CategoryUnifiedStrategy struct{}

func (CategoryUnifiedStrategy) Name() string  { return CategoryUnified }
func (CategoryUnifiedStrategy) Grouped() bool { return true }

func (CategoryUnifiedStrategy) ChunksForEntry(types.FAQEntry) ([]types.Chunk, error) {
	return nil, unsupported(CategoryUnified, "single entry chunking")
}

// ChunksForGroups returns one chunk per non-empty group
func (CategoryUnifiedStrategy) ChunksForGroups(groups []CategoryGroup) ([]types.Chunk, error) {
	chunks := make([]types.Chunk, 0, len(groups))
	for _, g := range groups {
		if len(g.Entries) == 0 {
			continue
		}

		pairs := make([]string, len(g.Entries))
		ids := make([]string, len(g.Entries))
		for i, e := range g.Entries {
			pairs[i] = strconv.Itoa(i+1) + ". Q: " + e.Question + "\nA: " + e.Answer
			ids[i] = e.ID
		}

		text := labelCategory + ": " + g.Category + "\n\n" + strings.Join(pairs, "\n")
		md := types.Metadata{
			types.MetaCategory:  g.Category,
			types.MetaChunkType: CategoryUnified,
			types.MetaDataType:  types.DataTypeFAQ,
			types.MetaFAQIDs:    strings.Join(ids, ","),
			types.MetaFAQCount:  len(g.Entries),
		}

		chunk, err := types.NewChunk(text, categoryChunkID(g.Category), md)
		if err != nil {
			return nil, fmt.Errorf("failed to build chunk for category %q: %w", g.Category, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func categoryChunkID(category string) string {
	return "category_" + strings.ToLower(strings.ReplaceAll(category, " ", "_")) + "_unified"
}
