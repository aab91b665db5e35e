package abl

import (
	"log"
	"math"
	"sync/atomic"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

//BoosterCore owns everything one boosting session needs: features, terms, the current and best
//term tensors, inner bags and the training and validation datasets. It is shared by reference
//count and torn down by the Free call that drops the count to zero.
//
//Only the reference count is safe for concurrent use. The current tensors, the gradients and
//the best model metric have a single writer per boosting round.
type BoosterCore struct {
	referenceCount int64

	shell        interface{}
	countClasses int
	countScores  int

	features []Feature
	terms    []*Term

	innerBags             []*InnerBag
	countInnerBags        int
	validationWeightTotal float64
	validationWeights     []float64

	currentTermTensors []*Tensor
	bestTermTensors    []*Tensor
	bestModelMetric    float64

	countBytesFastBins       int
	countBytesBigBins        int
	countBytesSplitPositions int
	countBytesTreeNodes      int

	experimentalParams []float64

	trainingSet   DataSetBoosting
	validationSet DataSetBoosting
}

//CreateParams collects the arguments of Create.
type CreateParams struct {
	Rng RandomDeterministic
	//Shell is the opaque context of the first holder. It is stored, never interpreted.
	Shell              interface{}
	CountTerms         int
	CountInnerBags     int
	ExperimentalParams []float64
	//TermDimensionCounts holds the number of features of each term.
	TermDimensionCounts []int
	//TermFeatureIndices lists the features of every term, term after term.
	TermFeatureIndices []int
	Shared             SharedDataSet
	//Bag holds one entry per shared sample: n > 0 puts the sample n times in the training set,
	//n < 0 puts it -n times in the validation set and 0 leaves it out. Nil trains on every sample once.
	Bag []int8
	//InitScores holds the scores per bin of every shared sample. Nil starts from zero.
	InitScores []float64
	Flags      LinkFlags
}

//Create builds a core holding one reference. On failure no core is returned and everything
//allocated on the way has been released.
func Create(params CreateParams) (*BoosterCore, error) {
	if err := validateCreateParams(params); err != nil {
		log.Printf("booster core rejected: %v", err)
		return nil, err
	}

	core, err := ownedObject[BoosterCore]()
	if err != nil {
		return nil, err
	}
	// not visible to any other goroutine yet
	core.referenceCount = 1

	if err := core.initialize(params); err != nil {
		log.Printf("booster core creation failed: %v", err)
		core.destruct()
		return nil, err
	}
	log.Printf("booster core created with %d terms, %d training and %d validation samples",
		len(core.terms), core.trainingSet.GetCountSamples(), core.validationSet.GetCountSamples())
	return core, nil
}

func validateCreateParams(params CreateParams) error {
	if params.Shared == nil {
		return errors.Wrap(ErrIllegalParamVal, "shared dataset is required")
	}
	if params.CountTerms < 0 {
		return errors.Wrapf(ErrIllegalParamVal, "negative term count %d", params.CountTerms)
	}
	if params.CountInnerBags < 0 {
		return errors.Wrapf(ErrIllegalParamVal, "negative inner bag count %d", params.CountInnerBags)
	}
	if len(params.TermDimensionCounts) != params.CountTerms {
		return errors.Wrapf(ErrIllegalParamVal, "%d dimension counts for %d terms", len(params.TermDimensionCounts), params.CountTerms)
	}
	countSamples := params.Shared.CountSamples()
	if len(params.Shared.Targets()) != countSamples {
		return errors.Wrapf(ErrIllegalParamVal, "%d targets for %d samples", len(params.Shared.Targets()), countSamples)
	}
	if weights := params.Shared.Weights(); weights != nil && len(weights) != countSamples {
		return errors.Wrapf(ErrIllegalParamVal, "%d weights for %d samples", len(weights), countSamples)
	}
	if err := validateTargets(params.Shared.CountClasses(), params.Shared.Targets()); err != nil {
		return err
	}
	if params.Bag != nil && len(params.Bag) != countSamples {
		return errors.Wrapf(ErrIllegalParamVal, "bag has %d entries for %d samples", len(params.Bag), countSamples)
	}
	for sampleIndex, replication := range params.Bag {
		if replication == math.MinInt8 {
			return errors.Wrapf(ErrIllegalParamVal, "bag entry of sample %d is out of range", sampleIndex)
		}
	}
	countScores := CountScores(params.Shared.CountClasses(), params.Flags)
	if params.InitScores != nil && len(params.InitScores) != countSamples*countScores {
		return errors.Wrapf(ErrIllegalParamVal, "%d init scores for %d samples with %d scores", len(params.InitScores), countSamples, countScores)
	}
	return nil
}

//partition expands the bag into the shared rows of the training and validation sets.
func partition(countSamples int, bag []int8) (training, validation []int) {
	for row := 0; row < countSamples; row++ {
		replication := 1
		if bag != nil {
			replication = int(bag[row])
		}
		for ; replication > 0; replication-- {
			training = append(training, row)
		}
		for ; replication < 0; replication++ {
			validation = append(validation, row)
		}
	}
	return training, validation
}

func gatherWeights(weights []float64, rows []int) []float64 {
	if weights == nil {
		return nil
	}
	gathered := make([]float64, len(rows))
	for i, row := range rows {
		gathered[i] = weights[row]
	}
	return gathered
}

func (core *BoosterCore) initialize(params CreateParams) error {
	shared := params.Shared
	core.shell = params.Shell
	core.countClasses = shared.CountClasses()
	core.countScores = CountScores(core.countClasses, params.Flags)
	core.countInnerBags = params.CountInnerBags
	core.bestModelMetric = math.MaxFloat64

	var err error
	if params.ExperimentalParams != nil {
		if core.experimentalParams, err = ownedSlice[float64](len(params.ExperimentalParams)); err != nil {
			return err
		}
		copy(core.experimentalParams, params.ExperimentalParams)
	}

	if core.features, err = ownedSlice[Feature](shared.CountFeatures()); err != nil {
		return err
	}
	for featureIndex := range core.features {
		core.features[featureIndex] = shared.Feature(featureIndex)
		if core.features[featureIndex].CountBins < 0 {
			return errors.Wrapf(ErrIllegalParamVal, "feature %d has negative bin count", featureIndex)
		}
	}

	if core.terms, err = NewTerms(core.features, params.TermDimensionCounts, params.TermFeatureIndices); err != nil {
		return err
	}

	budgets, err := computeBudgets(core.terms, core.countScores)
	if err != nil {
		return err
	}
	core.countBytesFastBins = budgets.fastBins
	core.countBytesBigBins = budgets.bigBins
	core.countBytesSplitPositions = budgets.splitPositions
	core.countBytesTreeNodes = budgets.treeNodes

	if core.currentTermTensors, err = InitializeTensors(core.terms, core.countScores); err != nil {
		return err
	}
	if core.bestTermTensors, err = InitializeTensors(core.terms, core.countScores); err != nil {
		return err
	}

	trainingRows, validationRows := partition(shared.CountSamples(), params.Bag)

	if err = core.trainingSet.Initialize(DataSetParams{
		AllocateGradients:    true,
		AllocateHessians:     true,
		AllocateSampleScores: true,
		AllocateTargets:      true,
		Terms:                core.terms,
		SampleIndices:        trainingRows,
		Shared:               shared,
		InitScores:           params.InitScores,
		CountScores:          core.countScores,
	}); err != nil {
		return err
	}
	if err = core.validationSet.Initialize(DataSetParams{
		AllocateGradients:    true,
		AllocateSampleScores: true,
		AllocateTargets:      true,
		Terms:                core.terms,
		SampleIndices:        validationRows,
		Shared:               shared,
		InitScores:           params.InitScores,
		CountScores:          core.countScores,
	}); err != nil {
		return err
	}

	trainingWeights := gatherWeights(shared.Weights(), trainingRows)
	if core.innerBags, err = GenerateInnerBags(params.Rng, trainingWeights, len(trainingRows), params.CountInnerBags); err != nil {
		return err
	}

	if shared.Weights() == nil {
		core.validationWeightTotal = float64(len(validationRows))
	} else {
		if core.validationWeights, err = ownedSlice[float64](len(validationRows)); err != nil {
			return err
		}
		copy(core.validationWeights, gatherWeights(shared.Weights(), validationRows))
		core.validationWeightTotal = floats.Sum(core.validationWeights)
	}
	return nil
}

//destruct runs once, after the last reference is gone or when initialize fails. Every field is
//either nil or fully built, so each release routine only has to skip nils.
func (core *BoosterCore) destruct() {
	core.trainingSet.Destruct()
	core.validationSet.Destruct()

	FreeInnerBags(core.innerBags)
	core.innerBags = nil
	if core.validationWeights != nil {
		releaseOwned()
		core.validationWeights = nil
	}

	DeleteTensors(core.currentTermTensors)
	DeleteTensors(core.bestTermTensors)
	core.currentTermTensors = nil
	core.bestTermTensors = nil

	FreeTerms(core.terms)
	core.terms = nil

	if core.features != nil {
		releaseOwned()
		core.features = nil
	}
	if core.experimentalParams != nil {
		releaseOwned()
		core.experimentalParams = nil
	}
	core.shell = nil

	releaseOwned()
}

//AddReferenceCount registers one more holder. The caller already holds a reference, so the
//count cannot reach zero concurrently.
func (core *BoosterCore) AddReferenceCount() {
	atomic.AddInt64(&core.referenceCount, 1)
}

//Free drops one reference and tears the core down when it was the last one. sync/atomic is
//sequentially consistent, so the goroutine that reaches zero observes every write made by the
//other holders before they dropped their references. Free of a nil core does nothing.
func Free(core *BoosterCore) {
	if core == nil {
		return
	}
	remaining := atomic.AddInt64(&core.referenceCount, -1)
	if remaining > 0 {
		return
	}
	if remaining < 0 {
		log.Panic("booster core freed more times than it was referenced")
	}
	core.destruct()
	log.Print("booster core freed")
}

//GetReferenceCount returns a snapshot of the reference count.
func (core *BoosterCore) GetReferenceCount() int64 {
	return atomic.LoadInt64(&core.referenceCount)
}

func (core *BoosterCore) GetShell() interface{} {
	return core.shell
}

//GetCountClasses returns the class count, or Regression.
func (core *BoosterCore) GetCountClasses() int {
	return core.countClasses
}

//GetCountScores returns the number of scores per tensor bin and per sample.
func (core *BoosterCore) GetCountScores() int {
	return core.countScores
}

func (core *BoosterCore) GetCountBytesFastBins() int {
	return core.countBytesFastBins
}

func (core *BoosterCore) GetCountBytesBigBins() int {
	return core.countBytesBigBins
}

func (core *BoosterCore) GetCountBytesSplitPositions() int {
	return core.countBytesSplitPositions
}

func (core *BoosterCore) GetCountBytesTreeNodes() int {
	return core.countBytesTreeNodes
}

func (core *BoosterCore) GetCountFeatures() int {
	return len(core.features)
}

func (core *BoosterCore) GetFeatures() []Feature {
	return core.features
}

func (core *BoosterCore) GetCountTerms() int {
	return len(core.terms)
}

func (core *BoosterCore) GetTerms() []*Term {
	return core.terms
}

func (core *BoosterCore) GetTrainingSet() *DataSetBoosting {
	return &core.trainingSet
}

func (core *BoosterCore) GetValidationSet() *DataSetBoosting {
	return &core.validationSet
}

//GetCountInnerBags returns the configured bag count. GetInnerBags holds at least one bag.
func (core *BoosterCore) GetCountInnerBags() int {
	return core.countInnerBags
}

func (core *BoosterCore) GetInnerBags() []*InnerBag {
	return core.innerBags
}

func (core *BoosterCore) GetValidationWeightTotal() float64 {
	return core.validationWeightTotal
}

//GetValidationWeights returns nil when the shared dataset is unweighted.
func (core *BoosterCore) GetValidationWeights() []float64 {
	return core.validationWeights
}

func (core *BoosterCore) GetCurrentModel() []*Tensor {
	return core.currentTermTensors
}

func (core *BoosterCore) GetBestModel() []*Tensor {
	return core.bestTermTensors
}

func (core *BoosterCore) GetBestModelMetric() float64 {
	return core.bestModelMetric
}

//SetBestModelMetric is not synchronized; one writer per boosting round.
func (core *BoosterCore) SetBestModelMetric(bestModelMetric float64) {
	core.bestModelMetric = bestModelMetric
}

func (core *BoosterCore) GetExperimentalParams() []float64 {
	return core.experimentalParams
}

//PromoteCurrentToBest copies every current term tensor into the best model.
func (core *BoosterCore) PromoteCurrentToBest() error {
	for termIndex, current := range core.currentTermTensors {
		if current == nil {
			continue
		}
		if err := core.bestTermTensors[termIndex].Copy(current); err != nil {
			return errors.Wrapf(err, "term %d", termIndex)
		}
	}
	return nil
}

//ApplyValidationMetric records metric as the new best and promotes the current model when it is
//strictly lower than the best seen so far. It reports whether the best model changed.
func (core *BoosterCore) ApplyValidationMetric(metric float64) (bool, error) {
	if !(metric < core.bestModelMetric) {
		return false, nil
	}
	core.SetBestModelMetric(metric)
	if err := core.PromoteCurrentToBest(); err != nil {
		return false, err
	}
	return true, nil
}
