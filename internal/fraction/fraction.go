// Package fraction implements the exact integer proportional math used by
// the fill and matching calculations. Every operation works on unsigned
// 256-bit integers and reports division by zero or overflow as
// errors.ErrArithmetic instead of wrapping around.
package fraction

import (
	"github.com/holiman/uint256"

	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
)

// Tolerance is the inverse of the accepted relative rounding error: a value
// of 1_000_000 accepts an error strictly below 1 in 10^6.
type Tolerance uint64

// DefaultTolerance accepts relative rounding errors below 1 in 10^6.
const DefaultTolerance Tolerance = 1_000_000

// Mul returns x*y or ErrArithmetic on overflow.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, apperrors.ErrArithmetic.Explain("multiplication overflow: %s * %s", x.Dec(), y.Dec())
	}
	return z, nil
}

// Add returns x+y or ErrArithmetic on overflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, apperrors.ErrArithmetic.Explain("addition overflow: %s + %s", x.Dec(), y.Dec())
	}
	return z, nil
}

// Sub returns x-y or ErrArithmetic when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, apperrors.ErrArithmetic.Explain("subtraction underflow: %s - %s", x.Dec(), y.Dec())
	}
	return z, nil
}

// Min returns a copy of the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x.Clone()
	}
	return y.Clone()
}

// FloorDiv returns numerator/denominator rounded down.
func FloorDiv(numerator, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, apperrors.ErrArithmetic.Explain("division by zero: %s / 0", numerator.Dec())
	}
	return new(uint256.Int).Div(numerator, denominator), nil
}

// CeilDiv returns numerator/denominator rounded up.
func CeilDiv(numerator, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, apperrors.ErrArithmetic.Explain("division by zero: %s / 0", numerator.Dec())
	}
	q, r := new(uint256.Int).DivMod(numerator, denominator, new(uint256.Int))
	if !r.IsZero() {
		// q < numerator here, so the increment cannot overflow
		q.AddUint64(q, 1)
	}
	return q, nil
}

// PartialAmountFloor returns numerator*target/denominator rounded down.
func PartialAmountFloor(numerator, denominator, target *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(numerator, target)
	if err != nil {
		return nil, err
	}
	return FloorDiv(product, denominator)
}

// PartialAmountCeil returns numerator*target/denominator rounded up.
func PartialAmountCeil(numerator, denominator, target *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(numerator, target)
	if err != nil {
		return nil, err
	}
	return CeilDiv(product, denominator)
}

// IsRoundingErrorFloor reports whether PartialAmountFloor(numerator,
// denominator, target) deviates from the exact value by the default
// tolerance or more.
func IsRoundingErrorFloor(numerator, denominator, target *uint256.Int) (bool, error) {
	return DefaultTolerance.IsRoundingErrorFloor(numerator, denominator, target)
}

// IsRoundingErrorCeil is the ceiling counterpart of IsRoundingErrorFloor.
func IsRoundingErrorCeil(numerator, denominator, target *uint256.Int) (bool, error) {
	return DefaultTolerance.IsRoundingErrorCeil(numerator, denominator, target)
}

// IsRoundingErrorFloor reports whether the floor-rounded partial amount has
// a relative error of at least 1/tol. The relative error is
// remainder/(numerator*target), where remainder is numerator*target mod
// denominator.
func (tol Tolerance) IsRoundingErrorFloor(numerator, denominator, target *uint256.Int) (bool, error) {
	if denominator.IsZero() {
		return false, apperrors.ErrArithmetic.Explain("division by zero in rounding check")
	}
	// exact value is zero, so is the error
	if numerator.IsZero() || target.IsZero() {
		return false, nil
	}
	remainder := new(uint256.Int).MulMod(target, numerator, denominator)
	return tol.exceeds(remainder, numerator, target)
}

// IsRoundingErrorCeil reports whether the ceil-rounded partial amount has a
// relative error of at least 1/tol.
func (tol Tolerance) IsRoundingErrorCeil(numerator, denominator, target *uint256.Int) (bool, error) {
	if denominator.IsZero() {
		return false, apperrors.ErrArithmetic.Explain("division by zero in rounding check")
	}
	if numerator.IsZero() || target.IsZero() {
		return false, nil
	}
	remainder := new(uint256.Int).MulMod(target, numerator, denominator)
	if !remainder.IsZero() {
		remainder.Sub(denominator, remainder)
	}
	return tol.exceeds(remainder, numerator, target)
}

func (tol Tolerance) exceeds(remainder, numerator, target *uint256.Int) (bool, error) {
	scaled, err := Mul(remainder, uint256.NewInt(uint64(tol)))
	if err != nil {
		return false, err
	}
	product, err := Mul(numerator, target)
	if err != nil {
		return false, err
	}
	return !scaled.Lt(product), nil
}
