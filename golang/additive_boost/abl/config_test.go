package abl

import (
	"encoding/json"
	"math"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

//writeDataSetFiles stores a samples x 3 binned dataset with binary targets and weights in dir.
func writeDataSetFiles(t *testing.T, dir string, countSamples int) SharedDataSetFiles {
	t.Helper()
	bins := []int{3, 2, 4}
	featuresMat := mat.NewDense(countSamples, len(bins), nil)
	targetMat := mat.NewDense(countSamples, 1, nil)
	weightsMat := mat.NewDense(countSamples, 1, nil)
	for p := 0; p < countSamples; p++ {
		for q, countBins := range bins {
			featuresMat.Set(p, q, float64((p+q)%countBins))
		}
		targetMat.Set(p, 0, float64(p%2))
		weightsMat.Set(p, 0, 1+float64(p%3))
	}

	files := SharedDataSetFiles{
		Features:     path.Join(dir, "features.npy"),
		Target:       path.Join(dir, "target.npy"),
		Weights:      path.Join(dir, "weights.npy"),
		FeatureBins:  bins,
		CountClasses: 2,
	}
	require.NoError(t, WriteNpy(files.Features, featuresMat))
	require.NoError(t, WriteNpy(files.Target, targetMat))
	require.NoError(t, WriteNpy(files.Weights, weightsMat))
	return files
}

func writeConfig(t *testing.T, dir string, config interface{}) string {
	t.Helper()
	content, err := json.Marshal(config)
	require.NoError(t, err)
	configPath := path.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, content, 0o644))
	return configPath
}

func TestNpyRoundTrip(t *testing.T) {
	fileName := path.Join(t.TempDir(), "m.npy")
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, WriteNpy(fileName, m))

	read, err := ReadNpy(fileName)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, read))

	_, err = ReadNpy(path.Join(t.TempDir(), "absent.npy"))
	assert.Error(t, err)
}

func TestReadSharedDataSet(t *testing.T) {
	files := writeDataSetFiles(t, t.TempDir(), 12)

	shared, err := ReadSharedDataSet(files)
	require.NoError(t, err)
	assert.Equal(t, 12, shared.CountSamples())
	assert.Equal(t, 3, shared.CountFeatures())
	assert.Equal(t, Feature{CountBins: 4}, shared.Feature(2))
	assert.Equal(t, StorageDataType(3), shared.FeatureData(2)[1])
	assert.Equal(t, 1.0, shared.Targets()[5])
	assert.Equal(t, 3.0, shared.Weights()[5])

	files.FeatureBins = []int{3, 2}
	_, err = ReadSharedDataSet(files)
	assert.ErrorIs(t, err, ErrIllegalParamVal)
}

func TestReadSharedDataSetRejectsFractionalBins(t *testing.T) {
	dir := t.TempDir()
	files := writeDataSetFiles(t, dir, 4)
	require.NoError(t, WriteNpy(files.Features, mat.NewDense(4, 3, []float64{0, 0, 0, 1, 1, 1, 2, 0.5, 3, 0, 0, 0})))

	_, err := ReadSharedDataSet(files)
	assert.ErrorIs(t, err, ErrIllegalParamVal)
}

func TestBuildBag(t *testing.T) {
	bag, err := BuildBag(NewRandomDeterministic(5), 40, 0.25)
	require.NoError(t, err)
	require.Len(t, bag, 40)

	countValidation := 0
	for _, replication := range bag {
		require.Contains(t, []int8{1, -1}, replication)
		if replication < 0 {
			countValidation++
		}
	}
	assert.Equal(t, 10, countValidation)

	_, err = BuildBag(NewRandomDeterministic(5), 40, 1.5)
	assert.ErrorIs(t, err, ErrIllegalParamVal)
	_, err = BuildBag(NewRandomDeterministic(5), 40, math.NaN())
	assert.ErrorIs(t, err, ErrIllegalParamVal)
}

func TestCoreConfigCreatesBoosterCore(t *testing.T) {
	dir := t.TempDir()
	files := writeDataSetFiles(t, dir, 40)
	configPath := writeConfig(t, dir, map[string]interface{}{
		"filename_features":    files.Features,
		"filename_target":      files.Target,
		"filename_weights":     files.Weights,
		"feature_bins":         files.FeatureBins,
		"count_classes":        2,
		"terms":                [][]int{{0}, {1, 2}},
		"inner_bags":           3,
		"seed":                 17,
		"validation_fraction":  0.25,
		"binary_as_multiclass": true,
		"experimental_params":  []float64{0.1},
	})

	config, err := LoadCoreConfig(configPath)
	require.NoError(t, err)
	dimensionCounts, featureIndices := config.TermLayout()
	assert.Equal(t, []int{1, 2}, dimensionCounts)
	assert.Equal(t, []int{0, 1, 2}, featureIndices)
	assert.Equal(t, LinkFlagBinaryAsMulticlass, config.Flags())

	baseline := LiveAllocations()
	core, err := config.CreateBoosterCore(nil)
	require.NoError(t, err)

	assert.Equal(t, 2, core.GetCountScores())
	assert.Equal(t, 30, core.GetTrainingSet().GetCountSamples())
	assert.Equal(t, 10, core.GetValidationSet().GetCountSamples())
	assert.Len(t, core.GetInnerBags(), 3)
	assert.Len(t, core.GetCurrentModel()[1].Scores(), 16)
	assert.Equal(t, []float64{0.1}, core.GetExperimentalParams())

	bagWeights := core.InnerBagWeights()
	rows, cols := bagWeights.Dims()
	assert.Equal(t, 30, rows)
	assert.Equal(t, 3, cols)
	assert.InDelta(t, core.GetInnerBags()[2].WeightTotal, mat.Sum(bagWeights.ColView(2)), 1e-12)

	Free(core)
	assert.Equal(t, baseline, LiveAllocations())
}

func TestLoadCoreConfigRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadCoreConfig(writeConfig(t, dir, map[string]interface{}{"learning_rate": 0.1}))
	assert.Error(t, err)

	_, err = LoadCoreConfig(path.Join(dir, "absent.json"))
	assert.Error(t, err)
}

func TestRenderTerms(t *testing.T) {
	shared := makeSharedDataSet(t, 10, 2, false)
	core, err := Create(twoTermParams(shared, nil, LinkFlagDefault))
	require.NoError(t, err)
	defer Free(core)

	dir := t.TempDir()
	require.NoError(t, core.RenderTerms("terms", "svg", dir))
	info, err := os.Stat(path.Join(dir, "terms.svg"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.ErrorIs(t, core.RenderTerms("terms", "bmp", dir), ErrIllegalParamVal)
}
