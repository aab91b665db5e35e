// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"io"
	"log"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tarstars/additive_boosting/golang/additive_boost/abl"
)

// every handle owns one reference of its core
var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	cores             = make(map[uint64]*abl.BoosterCore)

	lastErrorMu sync.Mutex
	lastError   string

	logSilenceOnce sync.Once
)

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}

func storeCore(core *abl.BoosterCore) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	cores[handle] = core
	nextHandle++
	return handle
}

func fetchCore(handle uint64) (*abl.BoosterCore, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	core, ok := cores[handle]
	if !ok {
		return nil, errors.New("invalid booster handle")
	}
	return core, nil
}

func takeCore(handle uint64) (*abl.BoosterCore, bool) {
	handleMu.Lock()
	defer handleMu.Unlock()
	core, ok := cores[handle]
	delete(cores, handle)
	return core, ok
}

func copyFloatSlice(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if ptr == nil {
		return nil, nil
	}
	src := unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length)
	return append(make([]float64, 0, length), src...), nil
}

func copyIntSlice(ptr *C.longlong, length int) ([]int, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if length == 0 {
		return []int{}, nil
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty slice")
	}
	src := unsafe.Slice((*int64)(unsafe.Pointer(ptr)), length)
	dst := make([]int, length)
	for i, value := range src {
		dst[i] = int(value)
	}
	return dst, nil
}

func copyBag(ptr *C.schar, length int) []int8 {
	if ptr == nil {
		return nil
	}
	src := unsafe.Slice((*int8)(unsafe.Pointer(ptr)), length)
	return append(make([]int8, 0, length), src...)
}

//buildSharedDataSet reads a row major samples x features matrix of bin indices.
func buildSharedDataSet(
	featureBinsPtr *C.longlong,
	countFeatures C.int,
	binsPtr *C.longlong,
	countSamples C.int,
	countClasses C.int,
	targetsPtr *C.double,
	weightsPtr *C.double,
) (*abl.DataSetShared, error) {
	featureBins, err := copyIntSlice(featureBinsPtr, int(countFeatures))
	if err != nil {
		return nil, err
	}
	if countSamples < 0 {
		return nil, errors.New("negative sample count")
	}
	bins, err := copyIntSlice(binsPtr, int(countSamples)*int(countFeatures))
	if err != nil {
		return nil, err
	}
	if targetsPtr == nil && countSamples > 0 {
		return nil, errors.New("targets are required")
	}
	targets, err := copyFloatSlice(targetsPtr, int(countSamples))
	if err != nil {
		return nil, err
	}
	if targets == nil {
		targets = []float64{}
	}
	weights, err := copyFloatSlice(weightsPtr, int(countSamples))
	if err != nil {
		return nil, err
	}

	features := make([]abl.Feature, len(featureBins))
	columns := make([][]abl.StorageDataType, len(featureBins))
	for q, countBins := range featureBins {
		features[q] = abl.Feature{CountBins: countBins}
		columns[q] = make([]abl.StorageDataType, countSamples)
		for p := range columns[q] {
			bin := bins[p*len(featureBins)+q]
			if bin < 0 {
				return nil, errors.Errorf("negative bin %d of sample %d, feature %d", bin, p, q)
			}
			columns[q][p] = abl.StorageDataType(bin)
		}
	}
	return abl.NewDataSetShared(features, columns, int(countClasses), targets, weights)
}

//export CreateBooster
func CreateBooster(
	seed C.longlong,
	featureBinsPtr *C.longlong,
	countFeatures C.int,
	binsPtr *C.longlong,
	countSamples C.int,
	countClasses C.int,
	targetsPtr *C.double,
	weightsPtr *C.double,
	bagPtr *C.schar,
	initScoresPtr *C.double,
	countTerms C.int,
	dimensionCountsPtr *C.longlong,
	featureIndicesPtr *C.longlong,
	countFeatureIndices C.int,
	countInnerBags C.int,
	experimentalParamsPtr *C.double,
	countExperimentalParams C.int,
	binaryAsMulticlass C.int,
) C.ulonglong {
	setLastError(nil)
	logSilenceOnce.Do(func() {
		log.SetOutput(io.Discard)
	})

	shared, err := buildSharedDataSet(featureBinsPtr, countFeatures, binsPtr, countSamples, countClasses, targetsPtr, weightsPtr)
	if err != nil {
		setLastError(err)
		return 0
	}
	dimensionCounts, err := copyIntSlice(dimensionCountsPtr, int(countTerms))
	if err != nil {
		setLastError(err)
		return 0
	}
	featureIndices, err := copyIntSlice(featureIndicesPtr, int(countFeatureIndices))
	if err != nil {
		setLastError(err)
		return 0
	}
	experimentalParams, err := copyFloatSlice(experimentalParamsPtr, int(countExperimentalParams))
	if err != nil {
		setLastError(err)
		return 0
	}

	flags := abl.LinkFlagDefault
	if binaryAsMulticlass != 0 {
		flags = abl.LinkFlagBinaryAsMulticlass
	}
	countScores := abl.CountScores(int(countClasses), flags)
	initScores, err := copyFloatSlice(initScoresPtr, int(countSamples)*countScores)
	if err != nil {
		setLastError(err)
		return 0
	}

	core, err := abl.Create(abl.CreateParams{
		Rng:                 abl.NewRandomDeterministic(int64(seed)),
		CountTerms:          int(countTerms),
		CountInnerBags:      int(countInnerBags),
		ExperimentalParams:  experimentalParams,
		TermDimensionCounts: dimensionCounts,
		TermFeatureIndices:  featureIndices,
		Shared:              shared,
		Bag:                 copyBag(bagPtr, int(countSamples)),
		InitScores:          initScores,
		Flags:               flags,
	})
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeCore(core))
}

//export AddBoosterReference
func AddBoosterReference(handle C.ulonglong) C.ulonglong {
	setLastError(nil)
	core, err := fetchCore(uint64(handle))
	if err != nil {
		setLastError(err)
		return 0
	}
	core.AddReferenceCount()
	return C.ulonglong(storeCore(core))
}

//export FreeBooster
func FreeBooster(handle C.ulonglong) {
	if core, ok := takeCore(uint64(handle)); ok {
		abl.Free(core)
	}
}

//export ApplyValidationMetric
func ApplyValidationMetric(handle C.ulonglong, metric C.double, improved *C.int) C.int {
	setLastError(nil)
	core, err := fetchCore(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	isImproved, err := core.ApplyValidationMetric(float64(metric))
	if err != nil {
		setLastError(err)
		return 2
	}
	if improved != nil {
		*improved = 0
		if isImproved {
			*improved = 1
		}
	}
	return 0
}

//export GetBestModelMetric
func GetBestModelMetric(handle C.ulonglong, metric *C.double) C.int {
	setLastError(nil)
	core, err := fetchCore(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if metric == nil {
		setLastError(errors.New("null output pointer"))
		return 2
	}
	*metric = C.double(core.GetBestModelMetric())
	return 0
}

//export GetTermScores
func GetTermScores(handle C.ulonglong, termIndex C.int, best C.int, outputPtr *C.double, length C.int) C.int {
	setLastError(nil)
	core, err := fetchCore(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if termIndex < 0 || int(termIndex) >= core.GetCountTerms() {
		setLastError(errors.Wrapf(abl.ErrIllegalParamVal, "term %d of %d", termIndex, core.GetCountTerms()))
		return 2
	}
	model := core.GetCurrentModel()
	if best != 0 {
		model = core.GetBestModel()
	}
	var scores []float64
	if model[termIndex] != nil {
		scores = model[termIndex].Scores()
	}
	if int(length) != len(scores) {
		setLastError(errors.Wrapf(abl.ErrIllegalParamVal, "term %d has %d scores, not %d", termIndex, len(scores), length))
		return 3
	}
	if len(scores) > 0 {
		if outputPtr == nil {
			setLastError(errors.New("null output pointer"))
			return 4
		}
		copy(unsafe.Slice((*float64)(unsafe.Pointer(outputPtr)), len(scores)), scores)
	}
	return 0
}

//export GetLastError
func GetLastError() *C.char {
	errStr := getLastError()
	if errStr == "" {
		return nil
	}
	return C.CString(errStr)
}

//export FreeCString
func FreeCString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

func main() {}
