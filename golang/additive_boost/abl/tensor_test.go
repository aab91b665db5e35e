package abl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interactionTerm(t *testing.T) ([]*Term, func()) {
	t.Helper()
	features := []Feature{{CountBins: 2}, {CountBins: 4}}
	terms, err := NewTerms(features, []int{2}, []int{0, 1})
	require.NoError(t, err)
	return terms, func() { FreeTerms(terms) }
}

func TestTensorShapeAndAddressing(t *testing.T) {
	terms, free := interactionTerm(t)
	defer free()

	tensor, err := NewTensor(terms[0], 2)
	require.NoError(t, err)
	defer tensor.free()

	assert.Equal(t, []int{4, 2, 2}, tensor.Shape())
	assert.Len(t, tensor.Scores(), 16)
	assert.Equal(t, 16, tensor.Dense().Shape().TotalSize())

	for b1 := 0; b1 < 4; b1++ {
		for b0 := 0; b0 < 2; b0++ {
			for s := 0; s < 2; s++ {
				tensor.Scores()[(b0+b1*2)*2+s] = float64(100*b1 + 10*b0 + s)
			}
		}
	}
	for b1 := 0; b1 < 4; b1++ {
		for b0 := 0; b0 < 2; b0++ {
			for s := 0; s < 2; s++ {
				value, err := tensor.At([]int{b0, b1}, s)
				require.NoError(t, err)
				require.Equal(t, float64(100*b1+10*b0+s), value)
			}
		}
	}

	_, err = tensor.At([]int{2, 0}, 0)
	assert.ErrorIs(t, err, ErrIllegalParamVal)
}

func TestTensorAbsentForEmptyTermsAndScores(t *testing.T) {
	features := []Feature{{CountBins: 0}, {CountBins: 3}}
	terms, err := NewTerms(features, []int{1, 1}, []int{0, 1})
	require.NoError(t, err)
	defer FreeTerms(terms)

	empty, err := NewTensor(terms[0], 1)
	require.NoError(t, err)
	assert.Nil(t, empty)

	noScores, err := NewTensor(terms[1], 0)
	require.NoError(t, err)
	assert.Nil(t, noScores)
}

func TestTensorCopyAndReset(t *testing.T) {
	terms, free := interactionTerm(t)
	defer free()

	tensors, err := InitializeTensors(terms, 1)
	require.NoError(t, err)
	defer DeleteTensors(tensors)
	other, err := InitializeTensors(terms, 1)
	require.NoError(t, err)
	defer DeleteTensors(other)

	for i := range tensors[0].Scores() {
		tensors[0].Scores()[i] = float64(i)
	}
	require.NoError(t, other[0].Copy(tensors[0]))
	assert.Equal(t, tensors[0].Scores(), other[0].Scores())

	tensors[0].Scores()[0] = 42
	assert.Zero(t, other[0].Scores()[0])

	other[0].Reset()
	assert.Equal(t, make([]float64, 8), other[0].Scores())

	wider, err := NewTensor(terms[0], 3)
	require.NoError(t, err)
	defer wider.free()
	assert.ErrorIs(t, wider.Copy(tensors[0]), ErrIllegalParamVal)
}

func TestTensorAddWithBadValueProtection(t *testing.T) {
	features := []Feature{{CountBins: 4}}
	terms, err := NewTerms(features, []int{1}, []int{0})
	require.NoError(t, err)
	defer FreeTerms(terms)

	tensor, err := NewTensor(terms[0], 1)
	require.NoError(t, err)
	defer tensor.free()
	copy(tensor.Scores(), []float64{1, 2, math.MaxFloat64, -math.MaxFloat64})

	require.NoError(t, tensor.AddWithBadValueProtection([]float64{0.5, math.NaN(), math.MaxFloat64, -math.MaxFloat64}))
	assert.Equal(t, []float64{1.5, 2, math.MaxFloat64, -math.MaxFloat64}, tensor.Scores())

	assert.ErrorIs(t, tensor.AddWithBadValueProtection([]float64{1}), ErrIllegalParamVal)
}

func TestInitializeTensorsReleasesOnFailure(t *testing.T) {
	features := []Feature{{CountBins: 3}, {CountBins: 2}}
	terms, err := NewTerms(features, []int{1, 1}, []int{0, 1})
	require.NoError(t, err)
	defer FreeTerms(terms)

	baseline := LiveAllocations()
	defer failAllocationAfter(0)
	for failAt := int64(1); failAt <= 3; failAt++ {
		failAllocationAfter(failAt)
		tensors, err := InitializeTensors(terms, 1)
		require.ErrorIs(t, err, ErrOutOfMemory)
		require.Nil(t, tensors)
		require.Equal(t, baseline, LiveAllocations())
	}
}
