package abl

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
)

//CoreConfig describes a boosting session read from a JSON file.
type CoreConfig struct {
	FileNameFeatures   string    `json:"filename_features"`
	FileNameTarget     string    `json:"filename_target"`
	FileNameWeights    string    `json:"filename_weights"`
	FeatureBins        []int     `json:"feature_bins"`
	CountClasses       int       `json:"count_classes"`
	Terms              [][]int   `json:"terms"`
	InnerBags          int       `json:"inner_bags"`
	Seed               int64     `json:"seed"`
	ValidationFraction float64   `json:"validation_fraction"`
	BinaryAsMulticlass bool      `json:"binary_as_multiclass"`
	ExperimentalParams []float64 `json:"experimental_params"`
	PicturesDirectory  string    `json:"pictures_directory"`
	FigureType         string    `json:"figure_type"`
	FileNameBagWeights string    `json:"filename_bag_weights"`
}

//LoadCoreConfig decodes a CoreConfig from a JSON file.
func LoadCoreConfig(srcConfig string) (config CoreConfig, err error) {
	file, err := os.Open(srcConfig)
	if err != nil {
		return config, err
	}
	defer func() { HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config); err != nil {
		return config, errors.Wrapf(err, "decode %s", srcConfig)
	}
	return config, nil
}

//SharedDataSetFiles returns the npy inputs named by the config.
func (config CoreConfig) SharedDataSetFiles() SharedDataSetFiles {
	return SharedDataSetFiles{
		Features:     config.FileNameFeatures,
		Target:       config.FileNameTarget,
		Weights:      config.FileNameWeights,
		FeatureBins:  config.FeatureBins,
		CountClasses: config.CountClasses,
	}
}

//TermLayout flattens the configured terms into dimension counts and feature indices.
func (config CoreConfig) TermLayout() (dimensionCounts []int, featureIndices []int) {
	dimensionCounts = make([]int, len(config.Terms))
	for termIndex, term := range config.Terms {
		dimensionCounts[termIndex] = len(term)
		featureIndices = append(featureIndices, term...)
	}
	return dimensionCounts, featureIndices
}

//Flags returns the link flags selected by the config.
func (config CoreConfig) Flags() LinkFlags {
	if config.BinaryAsMulticlass {
		return LinkFlagBinaryAsMulticlass
	}
	return LinkFlagDefault
}

//BuildBag sends round(fraction * countSamples) randomly chosen samples to validation and the
//rest to training.
func BuildBag(rng RandomDeterministic, countSamples int, validationFraction float64) ([]int8, error) {
	if validationFraction < 0 || validationFraction > 1 || math.IsNaN(validationFraction) {
		return nil, errors.Wrapf(ErrIllegalParamVal, "validation fraction %v is outside [0, 1]", validationFraction)
	}
	bag := make([]int8, countSamples)
	for i := range bag {
		bag[i] = 1
	}
	countValidation := int(math.Round(validationFraction * float64(countSamples)))
	for _, row := range shuffleIndices(rng, countSamples)[:countValidation] {
		bag[row] = -1
	}
	return bag, nil
}

//CreateBoosterCore loads the configured dataset and builds a core from it.
func (config CoreConfig) CreateBoosterCore(shell interface{}) (*BoosterCore, error) {
	shared, err := ReadSharedDataSet(config.SharedDataSetFiles())
	if err != nil {
		return nil, err
	}
	rng := NewRandomDeterministic(config.Seed)
	bag, err := BuildBag(rng, shared.CountSamples(), config.ValidationFraction)
	if err != nil {
		return nil, err
	}
	dimensionCounts, featureIndices := config.TermLayout()
	return Create(CreateParams{
		Rng:                 rng,
		Shell:               shell,
		CountTerms:          len(config.Terms),
		CountInnerBags:      config.InnerBags,
		ExperimentalParams:  config.ExperimentalParams,
		TermDimensionCounts: dimensionCounts,
		TermFeatureIndices:  featureIndices,
		Shared:              shared,
		Bag:                 bag,
		Flags:               config.Flags(),
	})
}
