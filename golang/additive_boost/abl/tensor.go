package abl

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

//Tensor holds the scores of one term: one entry per score for every combination of the
//term's feature bins. The first dimension of the term varies fastest in Scores().
type Tensor struct {
	dense  *tensor.Dense
	scores []float64
	shape  []int
}

//NewTensor allocates a zeroed tensor for the term. Terms without tensor bins, and models
//without scores, have no tensor and nil is returned.
func NewTensor(term *Term, countScores int) (*Tensor, error) {
	if term.CountTensorBins == 0 || countScores == 0 {
		return nil, nil
	}
	if multiplyOverflows(term.CountTensorBins, countScores) {
		return nil, errors.Wrapf(ErrOutOfMemory, "tensor of term %d overflows", term.Index)
	}
	scores, err := ownedSlice[float64](term.CountTensorBins * countScores)
	if err != nil {
		return nil, err
	}

	// gorgonia is row major, so the dimensions are listed slowest first
	shape := make([]int, 0, term.CountDimensions()+1)
	for dimension := term.CountDimensions() - 1; dimension >= 0; dimension-- {
		shape = append(shape, term.TermFeatures[dimension].Feature.CountBins)
	}
	shape = append(shape, countScores)

	return &Tensor{
		dense:  tensor.New(tensor.WithShape(shape...), tensor.WithBacking(scores)),
		scores: scores,
		shape:  shape,
	}, nil
}

//Scores returns the flat score array. Writes go straight into the tensor.
func (t *Tensor) Scores() []float64 {
	return t.scores
}

//Shape returns the tensor shape, slowest dimension first and scores last.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

//Dense exposes the gorgonia view over the scores.
func (t *Tensor) Dense() *tensor.Dense {
	return t.dense
}

//At returns one score addressed by the term's bin indices (in term order) and a score index.
func (t *Tensor) At(binIndices []int, scoreIndex int) (float64, error) {
	coords := make([]int, 0, len(binIndices)+1)
	for dimension := len(binIndices) - 1; dimension >= 0; dimension-- {
		coords = append(coords, binIndices[dimension])
	}
	coords = append(coords, scoreIndex)
	value, err := t.dense.At(coords...)
	if err != nil {
		return 0, errors.Wrap(ErrIllegalParamVal, err.Error())
	}
	return value.(float64), nil
}

//Copy overwrites the receiver with the values of src. Both tensors must have the same shape.
func (t *Tensor) Copy(src *Tensor) error {
	if !tensor.Shape(t.shape).Eq(tensor.Shape(src.shape)) {
		return errors.Wrapf(ErrIllegalParamVal, "cannot copy a tensor of shape %v into %v", src.shape, t.shape)
	}
	copy(t.scores, src.scores)
	return nil
}

//Reset sets every score to zero.
func (t *Tensor) Reset() {
	for i := range t.scores {
		t.scores[i] = 0
	}
}

//AddWithBadValueProtection adds update to the scores. A sum that overflows is clamped to the
//largest finite value and a NaN sum leaves the old score in place, so the term scores stay
//usable even when the update is broken.
func (t *Tensor) AddWithBadValueProtection(update []float64) error {
	if len(update) != len(t.scores) {
		return errors.Wrapf(ErrIllegalParamVal, "update has %d scores, tensor has %d", len(update), len(t.scores))
	}
	for i, delta := range update {
		sum := t.scores[i] + delta
		switch {
		case math.IsNaN(sum):
			continue
		case math.IsInf(sum, 1):
			sum = math.MaxFloat64
		case math.IsInf(sum, -1):
			sum = -math.MaxFloat64
		}
		t.scores[i] = sum
	}
	return nil
}

func (t *Tensor) free() {
	if t == nil {
		return
	}
	t.dense = nil
	t.scores = nil
	releaseOwned()
}

//InitializeTensors allocates one zeroed tensor per term. Entries stay nil for terms that have no tensor.
func InitializeTensors(terms []*Term, countScores int) ([]*Tensor, error) {
	tensors, err := ownedSlice[*Tensor](len(terms))
	if err != nil {
		return nil, err
	}
	for i, term := range terms {
		t, err := NewTensor(term, countScores)
		if err != nil {
			DeleteTensors(tensors)
			return nil, err
		}
		tensors[i] = t
	}
	return tensors, nil
}

//DeleteTensors frees every tensor and the array holding them.
func DeleteTensors(tensors []*Tensor) {
	if tensors == nil {
		return
	}
	for i, t := range tensors {
		t.free()
		tensors[i] = nil
	}
	releaseOwned()
}
