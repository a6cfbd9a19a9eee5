package utils

import (
	"fmt"
	"math"
)

// CheckMultiplyOverflow checks if multiplying two uint64 values would overflow.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil
	}

	if a > math.MaxUint64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}

	return nil
}

// SafeMultiply multiplies two uint64 values and returns the result if no overflow occurs.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// TotalElements returns the product of dims with overflow checking.
// A rank-0 shape holds one element.
func TotalElements(dims []uint64) (uint64, error) {
	total := uint64(1)
	for i, d := range dims {
		var err error
		total, err = SafeMultiply(total, d)
		if err != nil {
			return 0, fmt.Errorf("element count overflow at dimension %d: %w", i, err)
		}
	}
	return total, nil
}

// StorageSize returns dims product times elemSize with overflow checking.
func StorageSize(dims []uint64, elemSize uint64) (uint64, error) {
	if elemSize == 0 {
		return 0, fmt.Errorf("element size cannot be zero")
	}
	n, err := TotalElements(dims)
	if err != nil {
		return 0, err
	}
	size, err := SafeMultiply(n, elemSize)
	if err != nil {
		return 0, fmt.Errorf("storage size overflow: %w", err)
	}
	return size, nil
}

// ValidateBufferSize checks that a size read from a file is non-zero and
// within maxSize before a buffer of that size is allocated.
func ValidateBufferSize(size, maxSize uint64, description string) error {
	if size == 0 {
		return fmt.Errorf("%s: size cannot be zero", description)
	}
	if size > maxSize {
		return fmt.Errorf("%s: size %d exceeds maximum %d", description, size, maxSize)
	}
	return nil
}

// Common buffer size limits.
const (
	// MaxChunkSize limits dataset data and heap collections to 1GB.
	MaxChunkSize = 1024 * 1024 * 1024

	// MaxMetadataSize limits object header chunks and continuation blocks to 64MB.
	MaxMetadataSize = 64 * 1024 * 1024

	// MaxHyperslabElements limits a hyperslab selection to 1 billion elements.
	MaxHyperslabElements = 1_000_000_000
)

// ValidateHyperslabBounds validates hyperslab selection bounds.
// The last selected index per dimension is start + (count-1)*stride + block-1
// and must stay inside dims.
func ValidateHyperslabBounds(start, stride, count, block, dims []uint64) error {
	n := len(dims)
	if len(start) != n || len(stride) != n || len(count) != n || len(block) != n {
		return fmt.Errorf("hyperslab dimension mismatch: start=%d, stride=%d, count=%d, block=%d, dims=%d",
			len(start), len(stride), len(count), len(block), n)
	}

	for i := range dims {
		if count[i] == 0 || block[i] == 0 {
			return fmt.Errorf("hyperslab count and block must be > 0 at dimension %d", i)
		}
		if count[i] > 1 && stride[i] < block[i] {
			return fmt.Errorf("hyperslab stride %d smaller than block %d at dimension %d", stride[i], block[i], i)
		}

		span, err := SafeMultiply(count[i]-1, stride[i])
		if err != nil {
			return fmt.Errorf("hyperslab stride overflow at dimension %d: %w", i, err)
		}
		last := start[i] + span + block[i] - 1
		if last < start[i] || last >= dims[i] {
			return fmt.Errorf("hyperslab selection exceeds extent at dimension %d: start=%d, stride=%d, count=%d, block=%d, dim_size=%d",
				i, start[i], stride[i], count[i], block[i], dims[i])
		}
	}

	return nil
}

// CalculateHyperslabElements returns product(count[i]*block[i]) with overflow checking.
func CalculateHyperslabElements(count, block []uint64) (uint64, error) {
	if len(count) == 0 || len(count) != len(block) {
		return 0, fmt.Errorf("invalid hyperslab shape: count=%d, block=%d", len(count), len(block))
	}

	total := uint64(1)
	for i := range count {
		perDim, err := SafeMultiply(count[i], block[i])
		if err != nil {
			return 0, fmt.Errorf("hyperslab element overflow at dimension %d: %w", i, err)
		}
		total, err = SafeMultiply(total, perDim)
		if err != nil {
			return 0, fmt.Errorf("hyperslab element overflow at dimension %d: %w", i, err)
		}
	}

	if total > MaxHyperslabElements {
		return 0, fmt.Errorf("hyperslab selection: size %d exceeds maximum %d", total, MaxHyperslabElements)
	}

	return total, nil
}
