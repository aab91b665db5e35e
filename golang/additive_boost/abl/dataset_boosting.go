package abl

import (
	"log"

	"github.com/pkg/errors"
)

//StorageDataType holds one packed tensor index.
type StorageDataType = uint64

//DataSetBoosting is the flat per-split storage scanned by the boosting loop. Every per-sample
//array holds exactly CountSamples entries (times the scores per sample where relevant) and
//the set of allocated arrays is fixed by Initialize. The zero value is an empty dataset.
type DataSetBoosting struct {
	gradientsAndHessians []float64
	sampleScores         []float64
	targets              []float64
	weights              []float64
	inputData            [][]StorageDataType
	countSamples         int
	countTerms           int
	countScores          int
	hessians             bool
}

//DataSetParams selects which arrays a DataSetBoosting owns and where their content comes from.
type DataSetParams struct {
	AllocateGradients    bool
	AllocateHessians     bool
	AllocateSampleScores bool
	AllocateTargets      bool
	Terms                []*Term
	//SampleIndices lists the shared dataset rows of this split, repeated for replicated samples.
	SampleIndices []int
	Shared        SharedDataSet
	//InitScores holds CountScores values per shared dataset row. Nil means zero scores.
	InitScores  []float64
	CountScores int
}

//Initialize allocates the requested arrays and packs the term indices of every sample.
//On failure nothing stays allocated.
func (ds *DataSetBoosting) Initialize(params DataSetParams) error {
	if err := ds.initialize(params); err != nil {
		ds.Destruct()
		return err
	}
	log.Printf("dataset with %d samples, %d terms and %d scores per sample", ds.countSamples, ds.countTerms, ds.countScores)
	return nil
}

func (ds *DataSetBoosting) initialize(params DataSetParams) error {
	if params.AllocateHessians && !params.AllocateGradients {
		log.Panic("hessians are stored next to gradients and cannot be allocated alone")
	}
	countSamples := len(params.SampleIndices)
	countScores := params.CountScores
	shared := params.Shared

	ds.countSamples = countSamples
	ds.countTerms = len(params.Terms)
	ds.countScores = countScores
	ds.hessians = params.AllocateHessians

	if multiplyOverflows(countSamples, countScores) || multiplyOverflows(countSamples*countScores, 2) {
		return errors.Wrapf(ErrOutOfMemory, "%d samples with %d scores overflow", countSamples, countScores)
	}
	if params.InitScores != nil && len(params.InitScores) != shared.CountSamples()*countScores {
		return errors.Wrapf(ErrIllegalParamVal, "%d init scores for %d samples with %d scores", len(params.InitScores), shared.CountSamples(), countScores)
	}

	var err error
	if params.AllocateGradients {
		countGradients := countSamples * countScores
		if params.AllocateHessians {
			countGradients *= 2
		}
		if ds.gradientsAndHessians, err = ownedSlice[float64](countGradients); err != nil {
			return err
		}
	}

	if params.AllocateSampleScores {
		if ds.sampleScores, err = ownedSlice[float64](countSamples * countScores); err != nil {
			return err
		}
		if params.InitScores != nil {
			for i, row := range params.SampleIndices {
				copy(ds.sampleScores[i*countScores:(i+1)*countScores], params.InitScores[row*countScores:(row+1)*countScores])
			}
		}
	}

	if params.AllocateTargets {
		if ds.targets, err = ownedSlice[float64](countSamples); err != nil {
			return err
		}
		sharedTargets := shared.Targets()
		for i, row := range params.SampleIndices {
			ds.targets[i] = sharedTargets[row]
		}
	}

	if sharedWeights := shared.Weights(); sharedWeights != nil {
		if ds.weights, err = ownedSlice[float64](countSamples); err != nil {
			return err
		}
		for i, row := range params.SampleIndices {
			ds.weights[i] = sharedWeights[row]
		}
	}

	if ds.inputData, err = ownedSlice[[]StorageDataType](len(params.Terms)); err != nil {
		return err
	}
	for termIndex, term := range params.Terms {
		packed, err := ownedSlice[StorageDataType](countSamples)
		if err != nil {
			return err
		}
		ds.inputData[termIndex] = packed
		if err := packTerm(packed, term, shared, params.SampleIndices); err != nil {
			return err
		}
	}
	return nil
}

//packTerm writes the combined tensor index of every sample of the split for one term.
func packTerm(packed []StorageDataType, term *Term, shared SharedDataSet, sampleIndices []int) error {
	for _, termFeature := range term.TermFeatures {
		column := shared.FeatureData(termFeature.FeatureIndex)
		if len(column) != shared.CountSamples() {
			return errors.Wrapf(ErrIllegalParamVal, "feature %d has %d samples, the dataset has %d", termFeature.FeatureIndex, len(column), shared.CountSamples())
		}
		countBins := StorageDataType(termFeature.Feature.CountBins)
		stride := StorageDataType(termFeature.Stride)
		for i, row := range sampleIndices {
			bin := column[row]
			if bin >= countBins {
				return errors.Wrapf(ErrIllegalParamVal, "sample %d of feature %d is in bin %d of %d", row, termFeature.FeatureIndex, bin, countBins)
			}
			packed[i] += bin * stride
		}
	}
	return nil
}

//Destruct releases every array. The dataset is empty afterwards.
func (ds *DataSetBoosting) Destruct() {
	if ds.gradientsAndHessians != nil {
		releaseOwned()
	}
	if ds.sampleScores != nil {
		releaseOwned()
	}
	if ds.targets != nil {
		releaseOwned()
	}
	if ds.weights != nil {
		releaseOwned()
	}
	if ds.inputData != nil {
		for _, packed := range ds.inputData {
			if packed != nil {
				releaseOwned()
			}
		}
		releaseOwned()
	}
	*ds = DataSetBoosting{}
}

//GetGradientsAndHessians returns gradients, interleaved with hessians when they were requested.
func (ds *DataSetBoosting) GetGradientsAndHessians() []float64 {
	if ds.gradientsAndHessians == nil {
		log.Panic("gradients were not allocated for this dataset")
	}
	return ds.gradientsAndHessians
}

//GetSampleScores returns CountScores predictor scores per sample.
func (ds *DataSetBoosting) GetSampleScores() []float64 {
	if ds.sampleScores == nil {
		log.Panic("sample scores were not allocated for this dataset")
	}
	return ds.sampleScores
}

//GetTargets returns one target per sample. Classification targets are class indices.
func (ds *DataSetBoosting) GetTargets() []float64 {
	if ds.targets == nil {
		log.Panic("targets were not allocated for this dataset")
	}
	return ds.targets
}

//GetWeights returns one weight per sample, or nil when the shared dataset is unweighted.
func (ds *DataSetBoosting) GetWeights() []float64 {
	return ds.weights
}

//GetInputData returns the packed tensor index of every sample for the term.
func (ds *DataSetBoosting) GetInputData(term *Term) []StorageDataType {
	if term == nil || term.Index < 0 || term.Index >= ds.countTerms {
		log.Panicf("term is not part of this dataset with %d terms", ds.countTerms)
	}
	return ds.inputData[term.Index]
}

func (ds *DataSetBoosting) GetCountSamples() int {
	return ds.countSamples
}

func (ds *DataSetBoosting) GetCountTerms() int {
	return ds.countTerms
}

func (ds *DataSetBoosting) GetCountScores() int {
	return ds.countScores
}

//HasHessians reports whether GetGradientsAndHessians interleaves hessians.
func (ds *DataSetBoosting) HasHessians() bool {
	return ds.hessians
}
