package abl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinSizes(t *testing.T) {
	assert.Equal(t, 20, FastBinBytes(1))
	assert.Equal(t, 32, BigBinBytes(1))
	assert.Equal(t, 64, BigBinBytes(3))
	assert.Equal(t, 40, SplitPositionBytes(1))
	assert.Equal(t, 56, TreeNodeBytes(1))
}

func TestComputeBudgets(t *testing.T) {
	features := []Feature{{CountBins: 3}, {CountBins: 2}, {CountBins: 4}, {CountBins: 1}}

	for _, testCase := range []struct {
		name            string
		dimensionCounts []int
		featureIndices  []int
		countScores     int
		expected        scratchBudgets
	}{
		{
			name:            "main effects only",
			dimensionCounts: []int{1, 1},
			featureIndices:  []int{0, 2},
			countScores:     1,
			expected:        scratchBudgets{fastBins: 4 * 20, bigBins: 4 * 32, splitPositions: 3 * 40, treeNodes: 7 * 56},
		},
		{
			name:            "interaction with a single bin dimension",
			dimensionCounts: []int{3},
			featureIndices:  []int{0, 3, 1},
			countScores:     2,
			expected: scratchBudgets{
				fastBins:       6 * FastBinBytes(2),
				bigBins:        (6 + 4*3 - 6) * BigBinBytes(2),
				splitPositions: 2 * SplitPositionBytes(2),
				treeNodes:      5 * TreeNodeBytes(2),
			},
		},
		{
			name:            "no scores",
			dimensionCounts: []int{2},
			featureIndices:  []int{0, 2},
			countScores:     0,
		},
		{
			name:            "single bin features",
			dimensionCounts: []int{1},
			featureIndices:  []int{3},
			countScores:     1,
			expected:        scratchBudgets{fastBins: 20, bigBins: 32},
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			terms, err := NewTerms(features, testCase.dimensionCounts, testCase.featureIndices)
			require.NoError(t, err)
			defer FreeTerms(terms)

			budgets, err := computeBudgets(terms, testCase.countScores)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, budgets)
		})
	}
}

func TestCountScores(t *testing.T) {
	assert.Equal(t, 1, CountScores(Regression, LinkFlagDefault))
	assert.Equal(t, 1, CountScores(Regression, LinkFlagBinaryAsMulticlass))
	assert.Equal(t, 0, CountScores(0, LinkFlagDefault))
	assert.Equal(t, 0, CountScores(1, LinkFlagBinaryAsMulticlass))
	assert.Equal(t, 1, CountScores(2, LinkFlagDefault))
	assert.Equal(t, 2, CountScores(2, LinkFlagBinaryAsMulticlass))
	assert.Equal(t, 5, CountScores(5, LinkFlagDefault))

	assert.False(t, IsClassification(Regression))
	assert.True(t, IsClassification(0))
}
