// Package fill holds the fill result records and the single-order fill
// calculator. Calculate is the entry point for hosts filling one order
// directly by a taker amount; the pairwise matcher only borrows MakerFee
// and TakerFee, since a match fixes both sides' amounts itself.
package fill

import (
	"github.com/holiman/uint256"

	"github.com/Aidin1998/pincex_matching/internal/fraction"
)

// Results is one order's participation in one fill or match.
type Results struct {
	MakerAssetFilledAmount *uint256.Int `json:"makerAssetFilledAmount"`
	TakerAssetFilledAmount *uint256.Int `json:"takerAssetFilledAmount"`
	MakerFeePaid           *uint256.Int `json:"makerFeePaid"`
	TakerFeePaid           *uint256.Int `json:"takerFeePaid"`
	ProtocolFeePaid        *uint256.Int `json:"protocolFeePaid"`
}

// Zero returns results with every amount set to zero.
func Zero() Results {
	return Results{
		MakerAssetFilledAmount: new(uint256.Int),
		TakerAssetFilledAmount: new(uint256.Int),
		MakerFeePaid:           new(uint256.Int),
		TakerFeePaid:           new(uint256.Int),
		ProtocolFeePaid:        new(uint256.Int),
	}
}

// Add returns the field-wise sum of r and other.
func (r Results) Add(other Results) (Results, error) {
	var (
		out Results
		err error
	)
	if out.MakerAssetFilledAmount, err = fraction.Add(orZero(r.MakerAssetFilledAmount), orZero(other.MakerAssetFilledAmount)); err != nil {
		return Results{}, err
	}
	if out.TakerAssetFilledAmount, err = fraction.Add(orZero(r.TakerAssetFilledAmount), orZero(other.TakerAssetFilledAmount)); err != nil {
		return Results{}, err
	}
	if out.MakerFeePaid, err = fraction.Add(orZero(r.MakerFeePaid), orZero(other.MakerFeePaid)); err != nil {
		return Results{}, err
	}
	if out.TakerFeePaid, err = fraction.Add(orZero(r.TakerFeePaid), orZero(other.TakerFeePaid)); err != nil {
		return Results{}, err
	}
	if out.ProtocolFeePaid, err = fraction.Add(orZero(r.ProtocolFeePaid), orZero(other.ProtocolFeePaid)); err != nil {
		return Results{}, err
	}
	return out, nil
}

// Equal compares all amounts; nil counts as zero.
func (r Results) Equal(other Results) bool {
	return orZero(r.MakerAssetFilledAmount).Eq(orZero(other.MakerAssetFilledAmount)) &&
		orZero(r.TakerAssetFilledAmount).Eq(orZero(other.TakerAssetFilledAmount)) &&
		orZero(r.MakerFeePaid).Eq(orZero(other.MakerFeePaid)) &&
		orZero(r.TakerFeePaid).Eq(orZero(other.TakerFeePaid)) &&
		orZero(r.ProtocolFeePaid).Eq(orZero(other.ProtocolFeePaid))
}

// MatchedResults is the outcome of matching one left/right pair. At most one
// of the profits is non-zero.
type MatchedResults struct {
	Left                    Results      `json:"left"`
	Right                   Results      `json:"right"`
	ProfitInLeftMakerAsset  *uint256.Int `json:"profitInLeftMakerAsset"`
	ProfitInRightMakerAsset *uint256.Int `json:"profitInRightMakerAsset"`
}

// NewMatchedResults returns zero-valued matched results.
func NewMatchedResults() MatchedResults {
	return MatchedResults{
		Left:                    Zero(),
		Right:                   Zero(),
		ProfitInLeftMakerAsset:  new(uint256.Int),
		ProfitInRightMakerAsset: new(uint256.Int),
	}
}

// BatchMatchedResults aggregates a batch: one entry per input order, in
// input order, plus summed profits.
type BatchMatchedResults struct {
	Left                    []Results    `json:"left"`
	Right                   []Results    `json:"right"`
	ProfitInLeftMakerAsset  *uint256.Int `json:"profitInLeftMakerAsset"`
	ProfitInRightMakerAsset *uint256.Int `json:"profitInRightMakerAsset"`
}

// NewBatchMatchedResults returns zero entries for numLeft and numRight orders.
func NewBatchMatchedResults(numLeft, numRight int) BatchMatchedResults {
	out := BatchMatchedResults{
		Left:                    make([]Results, numLeft),
		Right:                   make([]Results, numRight),
		ProfitInLeftMakerAsset:  new(uint256.Int),
		ProfitInRightMakerAsset: new(uint256.Int),
	}
	for i := range out.Left {
		out.Left[i] = Zero()
	}
	for i := range out.Right {
		out.Right[i] = Zero()
	}
	return out
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
