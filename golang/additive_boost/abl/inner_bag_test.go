package abl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInnerBagsWithoutSampling(t *testing.T) {
	baseline := LiveAllocations()
	bags, err := GenerateInnerBags(NewRandomDeterministic(1), []float64{1, 2, 0.5}, 3, 0)
	require.NoError(t, err)

	require.Len(t, bags, 1)
	assert.Equal(t, []int{1, 1, 1}, bags[0].Counts)
	assert.Equal(t, []float64{1, 2, 0.5}, bags[0].Weights)
	assert.Equal(t, 3.5, bags[0].WeightTotal)

	FreeInnerBags(bags)
	assert.Equal(t, baseline, LiveAllocations())
}

func TestGenerateInnerBagsIsDeterministic(t *testing.T) {
	first, err := GenerateInnerBags(NewRandomDeterministic(7), nil, 50, 4)
	require.NoError(t, err)
	defer FreeInnerBags(first)
	second, err := GenerateInnerBags(NewRandomDeterministic(7), nil, 50, 4)
	require.NoError(t, err)
	defer FreeInnerBags(second)

	require.Len(t, first, 4)
	for i := range first {
		assert.Equal(t, first[i].Counts, second[i].Counts)

		draws := 0
		for p, count := range first[i].Counts {
			draws += count
			assert.Equal(t, float64(count), first[i].Weights[p])
		}
		assert.Equal(t, 50, draws)
		assert.Equal(t, 50.0, first[i].WeightTotal)
	}
	assert.NotEqual(t, first[0].Counts, first[1].Counts)
}

func TestGenerateInnerBagsWeighted(t *testing.T) {
	weights := []float64{2, 0, 3, 1}
	bags, err := GenerateInnerBags(NewRandomDeterministic(3), weights, len(weights), 2)
	require.NoError(t, err)
	defer FreeInnerBags(bags)

	for _, bag := range bags {
		total := 0.0
		for p, count := range bag.Counts {
			assert.Equal(t, float64(count)*weights[p], bag.Weights[p])
			total += bag.Weights[p]
		}
		assert.InDelta(t, total, bag.WeightTotal, 1e-12)
	}
}

func TestGenerateInnerBagsRejectsBadInput(t *testing.T) {
	_, err := GenerateInnerBags(nil, nil, 3, 2)
	assert.ErrorIs(t, err, ErrIllegalParamVal)
	_, err = GenerateInnerBags(NewRandomDeterministic(1), nil, 3, -1)
	assert.ErrorIs(t, err, ErrIllegalParamVal)
	_, err = GenerateInnerBags(NewRandomDeterministic(1), []float64{1}, 3, 1)
	assert.ErrorIs(t, err, ErrIllegalParamVal)
}

func TestGenerateInnerBagsReleasesOnFailure(t *testing.T) {
	baseline := LiveAllocations()
	defer failAllocationAfter(0)
	for failAt := int64(1); failAt <= 7; failAt++ {
		failAllocationAfter(failAt)
		bags, err := GenerateInnerBags(NewRandomDeterministic(1), nil, 10, 2)
		require.ErrorIs(t, err, ErrOutOfMemory)
		require.Nil(t, bags)
		require.Equal(t, baseline, LiveAllocations())
	}
}

func TestShuffleIndicesIsPermutation(t *testing.T) {
	indices := shuffleIndices(NewRandomDeterministic(11), 20)
	seen := make(map[int]bool)
	for _, index := range indices {
		require.True(t, index >= 0 && index < 20)
		seen[index] = true
	}
	assert.Len(t, seen, 20)
}
