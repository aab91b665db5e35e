package abl

import (
	"log"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//ReadNpy reads the content of npy file
func ReadNpy(fileName string) (denseMat *mat.Dense, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer func() { HandleError(f.Close()) }()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "npy header of %s", fileName)
	}

	denseMat = &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, errors.Wrapf(err, "npy content of %s", fileName)
	}
	return denseMat, nil
}

//WriteNpy stores a matrix as an npy file
func WriteNpy(fileName string, m *mat.Dense) error {
	dst, err := os.Create(fileName)
	if err != nil {
		return err
	}
	if err := npyio.Write(dst, m); err != nil {
		_ = dst.Close()
		return errors.Wrapf(err, "write %s", fileName)
	}
	return dst.Close()
}

//SharedDataSetFiles names the npy files of a binned dataset. Features is a samples x features
//matrix of bin indices, Target a column of targets and Weights an optional column of weights.
type SharedDataSetFiles struct {
	Features     string
	Target       string
	Weights      string
	FeatureBins  []int
	CountClasses int
}

//ReadSharedDataSet loads a binned dataset from npy files.
func ReadSharedDataSet(files SharedDataSetFiles) (*DataSetShared, error) {
	log.Print("\ttry to load features <", files.Features, ">")
	featuresMat, err := ReadNpy(files.Features)
	if err != nil {
		return nil, err
	}
	log.Print("\ttry to load target <", files.Target, ">")
	targetMat, err := ReadNpy(files.Target)
	if err != nil {
		return nil, err
	}

	h, w := featuresMat.Dims()
	if w != len(files.FeatureBins) {
		return nil, errors.Wrapf(ErrIllegalParamVal, "%s has %d columns but %d feature bin counts were configured", files.Features, w, len(files.FeatureBins))
	}
	if Height(targetMat) != h || Width(targetMat) != 1 {
		return nil, errors.Wrapf(ErrIllegalParamVal, "target must be %d x 1, not %d x %d", h, Height(targetMat), Width(targetMat))
	}

	features := make([]Feature, w)
	columns := make([][]StorageDataType, w)
	for q := 0; q < w; q++ {
		features[q] = Feature{CountBins: files.FeatureBins[q]}
		columns[q] = make([]StorageDataType, h)
		for p := 0; p < h; p++ {
			value := featuresMat.At(p, q)
			if value < 0 || value != math.Trunc(value) {
				return nil, errors.Wrapf(ErrIllegalParamVal, "bin index %v at (%d, %d) is not a non-negative integer", value, p, q)
			}
			columns[q][p] = StorageDataType(value)
		}
	}

	targets := mat.Col(nil, 0, targetMat)

	var weights []float64
	if files.Weights != "" {
		log.Print("\ttry to load weights <", files.Weights, ">")
		weightsMat, err := ReadNpy(files.Weights)
		if err != nil {
			return nil, err
		}
		if Height(weightsMat) != h || Width(weightsMat) != 1 {
			return nil, errors.Wrapf(ErrIllegalParamVal, "weights must be %d x 1, not %d x %d", h, Height(weightsMat), Width(weightsMat))
		}
		weights = mat.Col(nil, 0, weightsMat)
	}

	return NewDataSetShared(features, columns, files.CountClasses, targets, weights)
}

//InnerBagWeights returns the weights of every inner bag as a training samples x bags matrix.
func (core *BoosterCore) InnerBagWeights() *mat.Dense {
	bags := core.GetInnerBags()
	countSamples := core.GetTrainingSet().GetCountSamples()
	if countSamples == 0 || len(bags) == 0 {
		return nil
	}
	weights := mat.NewDense(countSamples, len(bags), nil)
	for q, bag := range bags {
		weights.SetCol(q, bag.Weights)
	}
	return weights
}
