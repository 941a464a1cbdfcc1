// Package safeconv provides checked integer conversions.
package safeconv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("safeconv: integer overflow")

// Uint64ToInt64 converts v, failing when it exceeds math.MaxInt64.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d", ErrOverflow, v)
	}

	return int64(v), nil
}

// MustUint64ToInt64 is Uint64ToInt64 for values known to fit. It panics on overflow.
func MustUint64ToInt64(v uint64) int64 {
	n, err := Uint64ToInt64(v)
	if err != nil {
		panic(err)
	}

	return n
}

// Int64ToUint64 converts v, failing when it is negative.
func Int64ToUint64(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d", ErrOverflow, v)
	}

	return uint64(v), nil
}
