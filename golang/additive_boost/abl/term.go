package abl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

//TermFeature is one dimension of a term. Stride is the multiplier of this dimension's bin
//index inside the combined tensor index.
type TermFeature struct {
	Feature      *Feature
	FeatureIndex int
	Stride       int
}

//Term is one additive component of the model: a main effect when it has one dimension,
//an interaction otherwise. Index addresses the term's arrays in the datasets.
type Term struct {
	Index               int
	TermFeatures        []TermFeature
	CountTensorBins     int
	CountRealDimensions int
	BitsRequired        int
}

//CountDimensions returns the number of features in the term.
func (term *Term) CountDimensions() int {
	return len(term.TermFeatures)
}

//Shape returns the number of bins of each dimension.
func (term *Term) Shape() []int {
	shape := make([]int, len(term.TermFeatures))
	for i, termFeature := range term.TermFeatures {
		shape[i] = termFeature.Feature.CountBins
	}
	return shape
}

//MaxDimensionBins returns the largest bin count among the term's dimensions.
func (term *Term) MaxDimensionBins() int {
	maxBins := 0
	for _, termFeature := range term.TermFeatures {
		if maxBins < termFeature.Feature.CountBins {
			maxBins = termFeature.Feature.CountBins
		}
	}
	return maxBins
}

//GraphDescription returns the description of a term for rendering as a graph node
func (term *Term) GraphDescription(countScores int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("term", term.Index))
	sb.WriteString(fmt.Sprintln("shape:", term.Shape()))
	sb.WriteString(fmt.Sprintf("scores: %d", term.CountTensorBins*countScores))
	return sb.String()
}

//newTerm fills a term from its feature indices and computes the tensor layout.
func newTerm(index int, features []Feature, featureIndices []int) (*Term, error) {
	term, err := ownedObject[Term]()
	if err != nil {
		return nil, err
	}
	term.Index = index
	term.TermFeatures = make([]TermFeature, len(featureIndices))

	tensorBins := 1
	for dimension, featureIndex := range featureIndices {
		feature := &features[featureIndex]
		if feature.CountBins > 1 {
			term.CountRealDimensions++
		}
		term.TermFeatures[dimension] = TermFeature{Feature: feature, FeatureIndex: featureIndex, Stride: tensorBins}
		if multiplyOverflows(tensorBins, feature.CountBins) {
			releaseOwned()
			return nil, errors.Wrapf(ErrOutOfMemory, "term %d has too many tensor bins", index)
		}
		tensorBins *= feature.CountBins
	}
	term.CountTensorBins = tensorBins
	term.BitsRequired = countBitsRequired(tensorBins - 1)
	return term, nil
}

//NewTerms builds one term per entry of dimensionCounts, consuming featureIndices in order.
func NewTerms(features []Feature, dimensionCounts []int, featureIndices []int) ([]*Term, error) {
	total := 0
	for termIndex, count := range dimensionCounts {
		if count < 0 {
			return nil, errors.Wrapf(ErrIllegalParamVal, "term %d has negative dimension count %d", termIndex, count)
		}
		if addOverflows(total, count) {
			return nil, errors.Wrap(ErrIllegalParamVal, "dimension counts overflow")
		}
		total += count
	}
	if total != len(featureIndices) {
		return nil, errors.Wrapf(ErrIllegalParamVal, "dimension counts sum to %d but %d feature indices were given", total, len(featureIndices))
	}
	for position, featureIndex := range featureIndices {
		if featureIndex < 0 || featureIndex >= len(features) {
			return nil, errors.Wrapf(ErrIllegalParamVal, "feature index %d at position %d is outside [0, %d)", featureIndex, position, len(features))
		}
	}

	terms, err := ownedSlice[*Term](len(dimensionCounts))
	if err != nil {
		return nil, err
	}
	offset := 0
	for termIndex, count := range dimensionCounts {
		term, err := newTerm(termIndex, features, featureIndices[offset:offset+count])
		if err != nil {
			FreeTerms(terms)
			return nil, err
		}
		terms[termIndex] = term
		offset += count
	}
	return terms, nil
}

//FreeTerms releases every term and the array holding them. Nil entries are skipped.
func FreeTerms(terms []*Term) {
	if terms == nil {
		return
	}
	for i, term := range terms {
		if term != nil {
			releaseOwned()
			terms[i] = nil
		}
	}
	releaseOwned()
}
