package abl

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// Every buffer owned by a core goes through ownedSlice/ownedObject and is
// returned with releaseOwned, so the ledger can prove teardown is complete.
var (
	liveAllocations int64

	// when positive, the allocation that brings it to zero is refused
	allocationCountdown int64
)

//LiveAllocations returns the number of owned buffers that have not been released yet.
func LiveAllocations() int64 {
	return atomic.LoadInt64(&liveAllocations)
}

func failAllocationAfter(n int64) {
	atomic.StoreInt64(&allocationCountdown, n)
}

func reserve(count int, itemBytes uintptr) error {
	if count < 0 {
		return errors.Wrapf(ErrIllegalParamVal, "negative allocation of %d items", count)
	}
	if itemBytes != 0 && uintptr(count) > uintptr(math.MaxInt)/itemBytes {
		return errors.Wrapf(ErrOutOfMemory, "allocation of %d items of %d bytes overflows", count, itemBytes)
	}
	if atomic.LoadInt64(&allocationCountdown) > 0 && atomic.AddInt64(&allocationCountdown, -1) == 0 {
		return errors.Wrapf(ErrOutOfMemory, "allocation of %d items refused", count)
	}
	atomic.AddInt64(&liveAllocations, 1)
	return nil
}

func releaseOwned() {
	atomic.AddInt64(&liveAllocations, -1)
}

//ownedSlice allocates a zeroed, never nil slice and records it in the ledger.
func ownedSlice[T any](count int) ([]T, error) {
	var zero T
	if err := reserve(count, unsafe.Sizeof(zero)); err != nil {
		return nil, err
	}
	return make([]T, count), nil
}

//ownedObject allocates one zeroed value and records it in the ledger.
func ownedObject[T any]() (*T, error) {
	var zero T
	if err := reserve(1, unsafe.Sizeof(zero)); err != nil {
		return nil, err
	}
	return new(T), nil
}
