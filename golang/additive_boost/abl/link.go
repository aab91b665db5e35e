package abl

//Regression is the class count marker for regression targets.
const Regression = -1

//LinkFlags alter how the class count maps onto tensor scores.
type LinkFlags uint32

const (
	LinkFlagDefault LinkFlags = 0
	//LinkFlagBinaryAsMulticlass keeps one logit per class for binary classification.
	LinkFlagBinaryAsMulticlass LinkFlags = 1 << 0
)

//IsClassification reports whether the class count describes a classification target.
func IsClassification(countClasses int) bool {
	return countClasses >= 0
}

//CountScores returns the number of scores per tensor bin. Regression and binary
//classification use one score, multiclass uses one per class and monoclassification
//(0 or 1 classes) uses none because the prediction is known exactly.
func CountScores(countClasses int, flags LinkFlags) int {
	switch {
	case countClasses < 0:
		return 1
	case countClasses <= 1:
		return 0
	case countClasses == 2 && flags&LinkFlagBinaryAsMulticlass == 0:
		return 1
	default:
		return countClasses
	}
}
