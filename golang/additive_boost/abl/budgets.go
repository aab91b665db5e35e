package abl

import "github.com/pkg/errors"

// A bin is a sample count, a weight and a gradient/hessian pair per score.
// Fast bins use float32 values, big bins float64.
const (
	countBytesFloatFast = 4
	countBytesFloatBig  = 8
	countBytesIndex     = 8
)

func binBytes(floatBytes, countScores int) int {
	return countBytesIndex + floatBytes + countScores*2*floatBytes
}

//FastBinBytes returns the size of one histogram bin at float32 precision.
func FastBinBytes(countScores int) int {
	return binBytes(countBytesFloatFast, countScores)
}

//BigBinBytes returns the size of one histogram bin at float64 precision.
func BigBinBytes(countScores int) int {
	return binBytes(countBytesFloatBig, countScores)
}

//SplitPositionBytes returns the size of one candidate split: its position and the sums left of it.
func SplitPositionBytes(countScores int) int {
	return countBytesIndex + BigBinBytes(countScores)
}

//TreeNodeBytes returns the size of one tree node: two child indices, its gain and its sums.
func TreeNodeBytes(countScores int) int {
	return 2*countBytesIndex + countBytesFloatBig + BigBinBytes(countScores)
}

//scratchBudgets are the byte sizes the boosting loop preallocates once per session.
type scratchBudgets struct {
	fastBins       int
	bigBins        int
	splitPositions int
	treeNodes      int
}

//auxiliaryBins returns the extra big bins needed to build cumulative totals for interactions.
func auxiliaryBins(term *Term) (int, bool) {
	if term.CountRealDimensions < 2 {
		return 0, true
	}
	withTotals := 1
	for _, termFeature := range term.TermFeatures {
		bins := termFeature.Feature.CountBins
		if bins <= 1 {
			continue
		}
		if multiplyOverflows(withTotals, bins+1) {
			return 0, false
		}
		withTotals *= bins + 1
	}
	return withTotals - term.CountTensorBins, true
}

func multiplyBudget(count, itemBytes int) (int, error) {
	if multiplyOverflows(count, itemBytes) {
		return 0, errors.Wrapf(ErrOutOfMemory, "%d items of %d bytes overflow", count, itemBytes)
	}
	return count * itemBytes, nil
}

//computeBudgets sizes the histogram, split and tree-node scratch buffers for the largest term.
func computeBudgets(terms []*Term, countScores int) (scratchBudgets, error) {
	var budgets scratchBudgets
	if countScores == 0 {
		return budgets, nil
	}

	maxTensorBins, maxBigBins, maxDimensionBins := 0, 0, 0
	for _, term := range terms {
		if maxTensorBins < term.CountTensorBins {
			maxTensorBins = term.CountTensorBins
		}
		aux, ok := auxiliaryBins(term)
		if !ok || addOverflows(term.CountTensorBins, aux) {
			return budgets, errors.Wrapf(ErrOutOfMemory, "auxiliary bins of term %d overflow", term.Index)
		}
		if maxBigBins < term.CountTensorBins+aux {
			maxBigBins = term.CountTensorBins + aux
		}
		if maxDimensionBins < term.MaxDimensionBins() {
			maxDimensionBins = term.MaxDimensionBins()
		}
	}

	var err error
	if budgets.fastBins, err = multiplyBudget(maxTensorBins, FastBinBytes(countScores)); err != nil {
		return budgets, err
	}
	if budgets.bigBins, err = multiplyBudget(maxBigBins, BigBinBytes(countScores)); err != nil {
		return budgets, err
	}
	if maxDimensionBins >= 2 {
		if budgets.splitPositions, err = multiplyBudget(maxDimensionBins-1, SplitPositionBytes(countScores)); err != nil {
			return budgets, err
		}
		if budgets.treeNodes, err = multiplyBudget(2*maxDimensionBins-1, TreeNodeBytes(countScores)); err != nil {
			return budgets, err
		}
	}
	return budgets, nil
}
