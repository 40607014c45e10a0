// Package report renders fill results as decimal percentages and rates for
// humans and logs.
package report

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/pincex_matching/internal/fill"
	"github.com/Aidin1998/pincex_matching/internal/order"
)

// Precision is the number of decimal places kept by divisions.
const Precision int32 = 18

var hundred = decimal.NewFromInt(100)

// Decimal converts v to a decimal. Nil is zero.
func Decimal(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), 0)
}

// Percent returns part as a percentage of whole, or zero when whole is zero.
func Percent(part, whole *uint256.Int) decimal.Decimal {
	w := Decimal(whole)
	if w.IsZero() {
		return decimal.Zero
	}
	return Decimal(part).Mul(hundred).DivRound(w, Precision)
}

// Rate returns numerator/denominator, or zero when denominator is zero.
func Rate(numerator, denominator *uint256.Int) decimal.Decimal {
	d := Decimal(denominator)
	if d.IsZero() {
		return decimal.Zero
	}
	return Decimal(numerator).DivRound(d, Precision)
}

// OrderFill summarizes one order's side of a match.
type OrderFill struct {
	MakerSold       decimal.Decimal `json:"makerSold"`
	TakerBought     decimal.Decimal `json:"takerBought"`
	MakerFeePercent decimal.Decimal `json:"makerFeePercent"`
	TakerFeePercent decimal.Decimal `json:"takerFeePercent"`
	StatedRate      decimal.Decimal `json:"statedRate"`
	RealizedRate    decimal.Decimal `json:"realizedRate"`
	ProtocolFeePaid decimal.Decimal `json:"protocolFeePaid"`
}

// Summarize describes res as filled against o. Fee percentages are relative
// to the fees stated on the order; rates are maker per taker unit.
func Summarize(o *order.Order, res fill.Results) OrderFill {
	return OrderFill{
		MakerSold:       Decimal(res.MakerAssetFilledAmount),
		TakerBought:     Decimal(res.TakerAssetFilledAmount),
		MakerFeePercent: Percent(res.MakerFeePaid, o.MakerFee),
		TakerFeePercent: Percent(res.TakerFeePaid, o.TakerFee),
		StatedRate:      Rate(o.MakerAssetAmount, o.TakerAssetAmount),
		RealizedRate:    Rate(res.MakerAssetFilledAmount, res.TakerAssetFilledAmount),
		ProtocolFeePaid: Decimal(res.ProtocolFeePaid),
	}
}

// Match summarizes a matched pair.
type Match struct {
	Left                    OrderFill       `json:"left"`
	Right                   OrderFill       `json:"right"`
	ProfitInLeftMakerAsset  decimal.Decimal `json:"profitInLeftMakerAsset"`
	ProfitInRightMakerAsset decimal.Decimal `json:"profitInRightMakerAsset"`
}

// SummarizeMatch describes res for the orders left and right.
func SummarizeMatch(left, right *order.Order, res fill.MatchedResults) Match {
	return Match{
		Left:                    Summarize(left, res.Left),
		Right:                   Summarize(right, res.Right),
		ProfitInLeftMakerAsset:  Decimal(res.ProfitInLeftMakerAsset),
		ProfitInRightMakerAsset: Decimal(res.ProfitInRightMakerAsset),
	}
}

// Batch summarizes the per-order aggregates of a batch.
type Batch struct {
	Left                    []OrderFill     `json:"left"`
	Right                   []OrderFill     `json:"right"`
	ProfitInLeftMakerAsset  decimal.Decimal `json:"profitInLeftMakerAsset"`
	ProfitInRightMakerAsset decimal.Decimal `json:"profitInRightMakerAsset"`
}

// SummarizeBatch describes res for the given order lists. The lists must
// be the ones the batch was run with.
func SummarizeBatch(left, right []*order.Order, res fill.BatchMatchedResults) Batch {
	out := Batch{
		Left:                    make([]OrderFill, len(res.Left)),
		Right:                   make([]OrderFill, len(res.Right)),
		ProfitInLeftMakerAsset:  Decimal(res.ProfitInLeftMakerAsset),
		ProfitInRightMakerAsset: Decimal(res.ProfitInRightMakerAsset),
	}
	for i, r := range res.Left {
		out.Left[i] = Summarize(left[i], r)
	}
	for i, r := range res.Right {
		out.Right[i] = Summarize(right[i], r)
	}
	return out
}
