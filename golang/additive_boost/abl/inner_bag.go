package abl

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

//InnerBag is one bootstrap resample of the training set. Counts holds how many times each
//training sample was drawn and Weights the per-sample weight after resampling.
type InnerBag struct {
	Counts      []int
	Weights     []float64
	WeightTotal float64
}

func (bag *InnerBag) free() {
	if bag == nil {
		return
	}
	if bag.Counts != nil {
		releaseOwned()
		bag.Counts = nil
	}
	if bag.Weights != nil {
		releaseOwned()
		bag.Weights = nil
	}
	releaseOwned()
}

//newInnerBag draws countSamples samples with replacement. A nil rng keeps every sample once.
func newInnerBag(rng RandomDeterministic, sampleWeights []float64, countSamples int) (*InnerBag, error) {
	bag, err := ownedObject[InnerBag]()
	if err != nil {
		return nil, err
	}
	if bag.Counts, err = ownedSlice[int](countSamples); err != nil {
		bag.free()
		return nil, err
	}
	if bag.Weights, err = ownedSlice[float64](countSamples); err != nil {
		bag.free()
		return nil, err
	}

	if rng == nil {
		for i := range bag.Counts {
			bag.Counts[i] = 1
		}
	} else {
		for draw := 0; draw < countSamples; draw++ {
			bag.Counts[rng.Intn(countSamples)]++
		}
	}

	for i, count := range bag.Counts {
		bag.Weights[i] = float64(count)
	}
	if sampleWeights != nil {
		floats.Mul(bag.Weights, sampleWeights)
	}
	bag.WeightTotal = floats.Sum(bag.Weights)
	return bag, nil
}

//GenerateInnerBags builds countInnerBags resamples of the training set. With no bags requested
//a single unsampled bag is returned so the boosting loop always has bag 0 to read.
func GenerateInnerBags(rng RandomDeterministic, sampleWeights []float64, countSamples, countInnerBags int) ([]*InnerBag, error) {
	if countInnerBags < 0 {
		return nil, errors.Wrapf(ErrIllegalParamVal, "negative inner bag count %d", countInnerBags)
	}
	if sampleWeights != nil && len(sampleWeights) != countSamples {
		return nil, errors.Wrapf(ErrIllegalParamVal, "%d sample weights for %d samples", len(sampleWeights), countSamples)
	}
	if countInnerBags > 0 && rng == nil {
		return nil, errors.Wrap(ErrIllegalParamVal, "resampling requires a random generator")
	}

	countAllocated := countInnerBags
	if countAllocated == 0 {
		countAllocated = 1
		rng = nil
	}

	bags, err := ownedSlice[*InnerBag](countAllocated)
	if err != nil {
		return nil, err
	}
	for i := range bags {
		bag, err := newInnerBag(rng, sampleWeights, countSamples)
		if err != nil {
			FreeInnerBags(bags)
			return nil, err
		}
		bags[i] = bag
	}
	return bags, nil
}

//FreeInnerBags releases every bag and the array holding them.
func FreeInnerBags(bags []*InnerBag) {
	if bags == nil {
		return
	}
	for i, bag := range bags {
		bag.free()
		bags[i] = nil
	}
	releaseOwned()
}
