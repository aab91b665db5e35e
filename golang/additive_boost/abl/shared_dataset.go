package abl

import (
	"math"

	"github.com/pkg/errors"
)

//SharedDataSet is the binned dataset a core is built from. The core reads it during Create
//and keeps no reference to it afterwards.
type SharedDataSet interface {
	CountSamples() int
	CountFeatures() int
	Feature(featureIndex int) Feature
	//FeatureData returns the bin index of every sample for one feature.
	FeatureData(featureIndex int) []StorageDataType
	//CountClasses returns the class count, or Regression.
	CountClasses() int
	Targets() []float64
	//Weights returns nil when the samples are unweighted.
	Weights() []float64
}

//DataSetShared is an in-memory SharedDataSet.
type DataSetShared struct {
	features     []Feature
	columns      [][]StorageDataType
	countClasses int
	targets      []float64
	weights      []float64
}

//NewDataSetShared checks that the columns, targets and weights describe the same samples.
func NewDataSetShared(features []Feature, columns [][]StorageDataType, countClasses int, targets, weights []float64) (*DataSetShared, error) {
	if len(features) != len(columns) {
		return nil, errors.Wrapf(ErrIllegalParamVal, "%d features but %d columns", len(features), len(columns))
	}
	countSamples := len(targets)
	for featureIndex, column := range columns {
		feature := features[featureIndex]
		if feature.CountBins < 0 {
			return nil, errors.Wrapf(ErrIllegalParamVal, "feature %d has negative bin count", featureIndex)
		}
		if len(column) != countSamples {
			return nil, errors.Wrapf(ErrIllegalParamVal, "feature %d has %d samples, targets have %d", featureIndex, len(column), countSamples)
		}
		for sampleIndex, bin := range column {
			if bin >= StorageDataType(feature.CountBins) {
				return nil, errors.Wrapf(ErrIllegalParamVal, "sample %d of feature %d is in bin %d of %d", sampleIndex, featureIndex, bin, feature.CountBins)
			}
		}
	}
	if err := validateTargets(countClasses, targets); err != nil {
		return nil, err
	}
	if weights != nil {
		if len(weights) != countSamples {
			return nil, errors.Wrapf(ErrIllegalParamVal, "%d weights for %d samples", len(weights), countSamples)
		}
		for sampleIndex, weight := range weights {
			if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
				return nil, errors.Wrapf(ErrIllegalParamVal, "sample %d has weight %v", sampleIndex, weight)
			}
		}
	}
	return &DataSetShared{
		features:     features,
		columns:      columns,
		countClasses: countClasses,
		targets:      targets,
		weights:      weights,
	}, nil
}

func validateTargets(countClasses int, targets []float64) error {
	if !IsClassification(countClasses) {
		return nil
	}
	for sampleIndex, target := range targets {
		if target < 0 || target >= float64(countClasses) || target != math.Trunc(target) {
			return errors.Wrapf(ErrIllegalParamVal, "sample %d has target %v outside [0, %d)", sampleIndex, target, countClasses)
		}
	}
	return nil
}

func (ds *DataSetShared) CountSamples() int {
	return len(ds.targets)
}

func (ds *DataSetShared) CountFeatures() int {
	return len(ds.features)
}

func (ds *DataSetShared) Feature(featureIndex int) Feature {
	return ds.features[featureIndex]
}

func (ds *DataSetShared) FeatureData(featureIndex int) []StorageDataType {
	return ds.columns[featureIndex]
}

func (ds *DataSetShared) CountClasses() int {
	return ds.countClasses
}

func (ds *DataSetShared) Targets() []float64 {
	return ds.targets
}

func (ds *DataSetShared) Weights() []float64 {
	return ds.weights
}
