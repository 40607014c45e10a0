package fill

import (
	"github.com/holiman/uint256"

	"github.com/Aidin1998/pincex_matching/internal/fraction"
	"github.com/Aidin1998/pincex_matching/internal/order"
	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
)

// Calculate computes the results of filling o by fillAmount of its taker
// asset, given the amount already filled. The fill is capped at the
// remaining taker amount. Every proportional amount is rounded down, so the
// maker never pays out more than its stated rate allows.
func Calculate(o *order.Order, filled, fillAmount *uint256.Int) (Results, error) {
	if s := o.Validate(); s != order.StatusFillable {
		return Results{}, apperrors.ErrOrderNotFillable.Explain("order status %s", s)
	}

	taker := fraction.Min(fillAmount, o.Remaining(filled))

	maker, err := fraction.PartialAmountFloor(taker, o.TakerAssetAmount, o.MakerAssetAmount)
	if err != nil {
		return Results{}, err
	}
	makerFee, err := fraction.PartialAmountFloor(taker, o.TakerAssetAmount, order.Amount(o.MakerFee))
	if err != nil {
		return Results{}, err
	}
	takerFee, err := fraction.PartialAmountFloor(taker, o.TakerAssetAmount, order.Amount(o.TakerFee))
	if err != nil {
		return Results{}, err
	}

	return Results{
		MakerAssetFilledAmount: maker,
		TakerAssetFilledAmount: taker,
		MakerFeePaid:           makerFee,
		TakerFeePaid:           takerFee,
		ProtocolFeePaid:        new(uint256.Int),
	}, nil
}

// MakerFee returns the maker fee owed for selling makerSold of o's maker
// asset: floor(makerSold * MakerFee / MakerAssetAmount).
func MakerFee(o *order.Order, makerSold *uint256.Int) (*uint256.Int, error) {
	return fraction.PartialAmountFloor(makerSold, o.MakerAssetAmount, order.Amount(o.MakerFee))
}

// TakerFee returns the taker fee owed for buying takerBought of o's taker
// asset: floor(takerBought * TakerFee / TakerAssetAmount).
func TakerFee(o *order.Order, takerBought *uint256.Int) (*uint256.Int, error) {
	return fraction.PartialAmountFloor(takerBought, o.TakerAssetAmount, order.Amount(o.TakerFee))
}
