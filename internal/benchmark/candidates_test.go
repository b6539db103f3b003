package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapraoguy/rag-advance/internal/strategy"
)

func TestParseCandidates_Products(t *testing.T) {
	got, err := ParseCandidates(ModeProducts, []string{"unified", " granular "})
	require.NoError(t, err)
	assert.Equal(t, []Candidate{ProductCandidate("unified"), ProductCandidate("granular")}, got)

	got, err = ParseCandidates(ModeProducts, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "unified", got[0].Name)

	_, err = ParseCandidates(ModeProducts, []string{"bogus"})
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)

	_, err = ParseCandidates(ModeProducts, []string{"unified", "unified"})
	assert.ErrorContains(t, err, "duplicate")
}

func TestParseCandidates_Combined(t *testing.T) {
	got, err := ParseCandidates(ModeCombined, []string{"granular+qa_separate"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "granular", got[0].ProductStrategy)
	assert.Equal(t, "qa_separate", got[0].FAQStrategy)
	assert.True(t, got[0].Combined())

	_, err = ParseCandidates(ModeCombined, []string{"granular"})
	assert.Error(t, err)

	_, err = ParseCandidates(ModeCombined, []string{"granular+bogus"})
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)

	got, err = ParseCandidates(ModeCombined, nil)
	require.NoError(t, err)
	assert.Equal(t, IntegratedCandidates(), got)
}

func TestIntegratedCandidates(t *testing.T) {
	names := make([]string, 0)
	for _, c := range IntegratedCandidates() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"unified+qa_pair",
		"section+qa_pair",
		"granular+qa_pair",
		"section+qa_separate",
		"granular+qa_separate",
		"unified+category_unified",
	}, names)
	assert.Equal(t, "unified+qa_pair", DefaultBaseline(ModeCombined))
	assert.Equal(t, "unified", DefaultBaseline(ModeProducts))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("combined")
	require.NoError(t, err)
	assert.Equal(t, ModeCombined, m)

	_, err = ParseMode("faqs")
	assert.Error(t, err)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "products_unified", CollectionName("products", "unified"))
	assert.Equal(t, "products_granular_qa_pair", CollectionName("products", "granular+qa_pair"))
}
