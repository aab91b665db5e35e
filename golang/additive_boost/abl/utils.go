package abl

import (
	"log"
	"math"
	"math/bits"

	"gonum.org/v1/gonum/mat"
)

//HandleError panics with a logged message when err is not nil.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

//Height returns the number of rows of a matrix.
func Height(m mat.Matrix) int {
	h, _ := m.Dims()
	return h
}

//Width returns the number of columns of a matrix.
func Width(m mat.Matrix) int {
	_, w := m.Dims()
	return w
}

func multiplyOverflows(a, b int) bool {
	if a == 0 || b == 0 {
		return false
	}
	return a > math.MaxInt/b
}

func addOverflows(a, b int) bool {
	return a > math.MaxInt-b
}

//countBitsRequired returns how many bits are needed to store maxValue.
func countBitsRequired(maxValue int) int {
	if maxValue <= 0 {
		return 0
	}
	return bits.Len64(uint64(maxValue))
}
