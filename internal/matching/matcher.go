// Package matching computes the fill amounts, fees and spread profit of
// matching two complementary orders.
//
// Left is the authoritative side: its remaining taker amount is compared
// against the right order's remaining maker amount to find the binding
// order. The amounts of the non-binding order are derived through the
// binding order's quantities and rounded in favour of the non-binding maker,
// so neither maker ever trades at a rate worse than the one it signed.
package matching

import (
	"github.com/holiman/uint256"

	"github.com/Aidin1998/pincex_matching/internal/fill"
	"github.com/Aidin1998/pincex_matching/internal/fraction"
	"github.com/Aidin1998/pincex_matching/internal/order"
	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
)

// Side identifies one of the two orders in a match.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Rounding describes a derived amount whose rounding exceeded the matcher's
// tolerance. It is informational: the match still succeeds.
type Rounding struct {
	Side Side
	Ceil bool
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithTolerance sets the tolerance used to flag rounding.
func WithTolerance(tol fraction.Tolerance) Option {
	return func(m *Matcher) {
		m.tolerance = tol
	}
}

// WithRoundingObserver registers fn to receive rounding observations.
func WithRoundingObserver(fn func(Rounding)) Option {
	return func(m *Matcher) {
		m.observe = fn
	}
}

// Matcher matches order pairs. It holds no state besides its options and is
// safe for concurrent use.
type Matcher struct {
	tolerance fraction.Tolerance
	observe   func(Rounding)
}

// New returns a matcher with the given options.
func New(opts ...Option) *Matcher {
	m := &Matcher{tolerance: fraction.DefaultTolerance}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var defaultMatcher = New()

// MatchOrderPair matches left against right with the default matcher.
func MatchOrderPair(left *order.Order, leftFilled *uint256.Int, right *order.Order, rightFilled *uint256.Int, maximalFill bool) (fill.MatchedResults, error) {
	return defaultMatcher.Match(left, leftFilled, right, rightFilled, maximalFill)
}

// remaining holds the unfilled quantities of both orders.
type remaining struct {
	leftMaker, leftTaker   *uint256.Int
	rightMaker, rightTaker *uint256.Int
}

// Match computes the results of matching left against right given the
// taker amounts already filled on each. No state is modified; any failed
// precondition returns an error and no results.
func (m *Matcher) Match(left *order.Order, leftFilled *uint256.Int, right *order.Order, rightFilled *uint256.Int, maximalFill bool) (fill.MatchedResults, error) {
	if err := checkPreconditions(left, leftFilled, right, rightFilled); err != nil {
		return fill.MatchedResults{}, err
	}

	rem, err := remainingAmounts(left, leftFilled, right, rightFilled)
	if err != nil {
		return fill.MatchedResults{}, err
	}

	var res fill.MatchedResults
	if maximalFill {
		res, err = m.maximalFill(left, right, rem)
	} else {
		res, err = m.defaultFill(left, right, rem)
	}
	if err != nil {
		return fill.MatchedResults{}, err
	}

	if err := applyFees(left, right, &res); err != nil {
		return fill.MatchedResults{}, err
	}
	return res, nil
}

func checkPreconditions(left *order.Order, leftFilled *uint256.Int, right *order.Order, rightFilled *uint256.Int) error {
	if !order.IsComplementary(left, right) {
		return apperrors.ErrAssetMismatch.Explain("left %s and right %s do not trade inverse asset pairs", left.Hash().Hex(), right.Hash().Hex())
	}
	if err := checkFillable(SideLeft, left, leftFilled); err != nil {
		return err
	}
	if err := checkFillable(SideRight, right, rightFilled); err != nil {
		return err
	}

	// leftMaker/leftTaker >= rightTaker/rightMaker, cross-multiplied
	lhs, err := fraction.Mul(left.MakerAssetAmount, right.MakerAssetAmount)
	if err != nil {
		return err
	}
	rhs, err := fraction.Mul(left.TakerAssetAmount, right.TakerAssetAmount)
	if err != nil {
		return err
	}
	if lhs.Lt(rhs) {
		return apperrors.ErrNegativeSpread.Explain("left rate %s/%s is below right rate %s/%s",
			left.MakerAssetAmount.Dec(), left.TakerAssetAmount.Dec(),
			right.TakerAssetAmount.Dec(), right.MakerAssetAmount.Dec())
	}
	return nil
}

func checkFillable(side Side, o *order.Order, filled *uint256.Int) error {
	status := o.Validate()
	if status == order.StatusFillable && filled != nil && !filled.Lt(o.TakerAssetAmount) {
		status = order.StatusFullyFilled
	}
	if status != order.StatusFillable {
		return apperrors.ErrOrderNotFillable.
			Explain("%s order %s is %s", side, o.Hash().Hex(), status).
			WithField(status.String(), string(side), "order cannot be filled")
	}
	return nil
}

func remainingAmounts(left *order.Order, leftFilled *uint256.Int, right *order.Order, rightFilled *uint256.Int) (remaining, error) {
	var (
		rem remaining
		err error
	)
	rem.leftTaker = left.Remaining(leftFilled)
	if rem.leftMaker, err = fraction.PartialAmountFloor(left.MakerAssetAmount, left.TakerAssetAmount, rem.leftTaker); err != nil {
		return remaining{}, err
	}
	rem.rightTaker = right.Remaining(rightFilled)
	if rem.rightMaker, err = fraction.PartialAmountFloor(right.MakerAssetAmount, right.TakerAssetAmount, rem.rightTaker); err != nil {
		return remaining{}, err
	}
	return rem, nil
}

// defaultFill treats the left order's rate as authoritative. Profit, if
// any, is realized in the left maker asset.
func (m *Matcher) defaultFill(left, right *order.Order, rem remaining) (fill.MatchedResults, error) {
	var (
		res fill.MatchedResults
		err error
	)
	switch rem.leftTaker.Cmp(rem.rightMaker) {
	case 1:
		res, err = m.completeRightFill(left, rem)
	case -1:
		res, err = m.completeLeftFill(right, rem)
	default:
		res = completeFillBoth(rem)
	}
	if err != nil {
		return fill.MatchedResults{}, err
	}

	if res.ProfitInLeftMakerAsset, err = profit(res.Left.MakerAssetFilledAmount, res.Right.TakerAssetFilledAmount, SideLeft); err != nil {
		return fill.MatchedResults{}, err
	}
	res.ProfitInRightMakerAsset = new(uint256.Int)
	return res, nil
}

// maximalFill fills the non-binding order as far as its own rate allows,
// taking the profit in whichever maker asset ends up with the surplus.
func (m *Matcher) maximalFill(left, right *order.Order, rem remaining) (fill.MatchedResults, error) {
	leftSurplus := rem.leftMaker.Gt(rem.rightTaker)
	rightSurplus := rem.rightMaker.Gt(rem.leftTaker)

	var (
		res        fill.MatchedResults
		err        error
		profitSide Side
	)
	switch {
	case rem.leftTaker.Gt(rem.rightMaker):
		// right fully filled, surplus in the left maker asset
		res, err = m.completeRightFill(left, rem)
		profitSide = SideLeft
	case rem.rightTaker.Gt(rem.leftMaker):
		// left fully filled, surplus in the right maker asset
		res, err = m.completeLeftFillByLeftMaker(right, rem)
		profitSide = SideRight
	case leftSurplus && rightSurplus:
		// Filling both would realize profit in both assets. Keep the left
		// order authoritative and take the spread in its maker asset only.
		res, err = m.completeLeftFill(right, rem)
		profitSide = SideLeft
	default:
		res = completeFillBoth(rem)
		if rightSurplus {
			profitSide = SideRight
		} else {
			profitSide = SideLeft
		}
	}
	if err != nil {
		return fill.MatchedResults{}, err
	}

	res.ProfitInLeftMakerAsset = new(uint256.Int)
	res.ProfitInRightMakerAsset = new(uint256.Int)
	if profitSide == SideLeft {
		res.ProfitInLeftMakerAsset, err = profit(res.Left.MakerAssetFilledAmount, res.Right.TakerAssetFilledAmount, SideLeft)
	} else {
		res.ProfitInRightMakerAsset, err = profit(res.Right.MakerAssetFilledAmount, res.Left.TakerAssetFilledAmount, SideRight)
	}
	if err != nil {
		return fill.MatchedResults{}, err
	}
	return res, nil
}

// completeRightFill fills the right order entirely. The left maker sells
// the right maker amount converted at the left rate, rounded down so the
// left maker never sells more than its rate requires.
func (m *Matcher) completeRightFill(left *order.Order, rem remaining) (fill.MatchedResults, error) {
	leftMakerSold, err := fraction.PartialAmountFloor(left.MakerAssetAmount, left.TakerAssetAmount, rem.rightMaker)
	if err != nil {
		return fill.MatchedResults{}, err
	}
	m.checkRounding(SideLeft, false, left.MakerAssetAmount, left.TakerAssetAmount, rem.rightMaker)

	res := fill.NewMatchedResults()
	res.Right.MakerAssetFilledAmount = rem.rightMaker.Clone()
	res.Right.TakerAssetFilledAmount = rem.rightTaker.Clone()
	res.Left.TakerAssetFilledAmount = rem.rightMaker.Clone()
	res.Left.MakerAssetFilledAmount = leftMakerSold
	return res, nil
}

// completeLeftFill fills the left order entirely. The right maker sells
// exactly what the left maker buys and receives that amount converted at
// the right rate, rounded up in the right maker's favour.
func (m *Matcher) completeLeftFill(right *order.Order, rem remaining) (fill.MatchedResults, error) {
	rightTakerBought, err := fraction.PartialAmountCeil(right.TakerAssetAmount, right.MakerAssetAmount, rem.leftTaker)
	if err != nil {
		return fill.MatchedResults{}, err
	}
	m.checkRounding(SideRight, true, right.TakerAssetAmount, right.MakerAssetAmount, rem.leftTaker)

	res := fill.NewMatchedResults()
	res.Left.MakerAssetFilledAmount = rem.leftMaker.Clone()
	res.Left.TakerAssetFilledAmount = rem.leftTaker.Clone()
	res.Right.MakerAssetFilledAmount = rem.leftTaker.Clone()
	res.Right.TakerAssetFilledAmount = rightTakerBought
	return res, nil
}

// completeLeftFillByLeftMaker fills the left order entirely with the right
// maker buying everything the left maker sells. The right maker's sale is
// rounded down in its favour and the surplus stays in the right maker asset.
func (m *Matcher) completeLeftFillByLeftMaker(right *order.Order, rem remaining) (fill.MatchedResults, error) {
	rightMakerSold, err := fraction.PartialAmountFloor(right.MakerAssetAmount, right.TakerAssetAmount, rem.leftMaker)
	if err != nil {
		return fill.MatchedResults{}, err
	}
	m.checkRounding(SideRight, false, right.MakerAssetAmount, right.TakerAssetAmount, rem.leftMaker)

	res := fill.NewMatchedResults()
	res.Left.MakerAssetFilledAmount = rem.leftMaker.Clone()
	res.Left.TakerAssetFilledAmount = rem.leftTaker.Clone()
	res.Right.MakerAssetFilledAmount = rightMakerSold
	res.Right.TakerAssetFilledAmount = rem.leftMaker.Clone()
	return res, nil
}

// completeFillBoth fills both orders entirely; no rounding is involved.
func completeFillBoth(rem remaining) fill.MatchedResults {
	res := fill.NewMatchedResults()
	res.Left.MakerAssetFilledAmount = rem.leftMaker.Clone()
	res.Left.TakerAssetFilledAmount = rem.leftTaker.Clone()
	res.Right.MakerAssetFilledAmount = rem.rightMaker.Clone()
	res.Right.TakerAssetFilledAmount = rem.rightTaker.Clone()
	return res
}

// profit returns sold - bought. A negative value means the rounded amounts
// of a partially filled order cannot cover the counterparty, which would
// break conservation, so it is reported as an arithmetic failure.
func profit(sold, bought *uint256.Int, side Side) (*uint256.Int, error) {
	p, underflow := new(uint256.Int).SubOverflow(sold, bought)
	if underflow {
		return nil, apperrors.ErrArithmetic.Explain("%s maker sells %s but counterparty requires %s", side, sold.Dec(), bought.Dec())
	}
	return p, nil
}

func applyFees(left, right *order.Order, res *fill.MatchedResults) error {
	var err error
	if res.Left.MakerFeePaid, err = fill.MakerFee(left, res.Left.MakerAssetFilledAmount); err != nil {
		return err
	}
	if res.Left.TakerFeePaid, err = fill.TakerFee(left, res.Left.TakerAssetFilledAmount); err != nil {
		return err
	}
	if res.Right.MakerFeePaid, err = fill.MakerFee(right, res.Right.MakerAssetFilledAmount); err != nil {
		return err
	}
	if res.Right.TakerFeePaid, err = fill.TakerFee(right, res.Right.TakerAssetFilledAmount); err != nil {
		return err
	}
	return nil
}

func (m *Matcher) checkRounding(side Side, ceil bool, numerator, denominator, target *uint256.Int) {
	if m.observe == nil {
		return
	}
	var (
		isErr bool
		err   error
	)
	if ceil {
		isErr, err = m.tolerance.IsRoundingErrorCeil(numerator, denominator, target)
	} else {
		isErr, err = m.tolerance.IsRoundingErrorFloor(numerator, denominator, target)
	}
	// the partial amount itself succeeded; an overflow here only means the
	// error cannot be measured
	if err == nil && isErr {
		m.observe(Rounding{Side: side, Ceil: ceil})
	}
}
