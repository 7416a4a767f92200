package safemath

import (
	"errors"
	"math"

	"github.com/ryanavella/wide"
)

var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrDivisionByZero = errors.New("division by zero")
)

func CheckedAddU64(a uint64, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

func CheckedSubU64(a uint64, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

func CheckedMulU64(a uint64, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrOverflow
	}
	return a * b, nil
}

func CheckedDivU64(a uint64, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}

func SaturatingAddU64(a uint64, b uint64) uint64 {
	c, err := CheckedAddU64(a, b)
	if err != nil {
		return math.MaxUint64
	}
	return c
}

func SaturatingSubU64(a uint64, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func SaturatingMulU64(a uint64, b uint64) uint64 {
	c, err := CheckedMulU64(a, b)
	if err != nil {
		return math.MaxUint64
	}
	return c
}

// MulU128 widens both operands, hence never overflows.
func MulU128(a uint64, b uint64) wide.Uint128 {
	return wide.Uint128FromUint64(a).Mul(wide.Uint128FromUint64(b))
}

func CheckedDivU128(a wide.Uint128, b wide.Uint128) (wide.Uint128, error) {
	if b == wide.Uint128FromUint64(0) {
		return wide.Uint128FromUint64(0), ErrDivisionByZero
	}
	return a.Div(b), nil
}

// U128ToU64 narrows back to uint64, or errors if the value does not fit.
func U128ToU64(a wide.Uint128) (uint64, error) {
	if !a.IsUint64() {
		return 0, ErrOverflow
	}
	return a.Uint64(), nil
}
