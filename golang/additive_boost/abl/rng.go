package abl

import "math/rand"

//RandomDeterministic is the source of randomness consumed by the core. *rand.Rand satisfies it.
type RandomDeterministic interface {
	Intn(n int) int
}

//NewRandomDeterministic returns a generator that repeats its sequence for the same seed.
func NewRandomDeterministic(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

//shuffleIndices returns a permutation of [0, n) driven by rng.
func shuffleIndices(rng RandomDeterministic, n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices
}
