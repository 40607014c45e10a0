// Package settlement turns matched fill results into the asset transfers a
// host has to execute.
package settlement

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/Aidin1998/pincex_matching/internal/fill"
	"github.com/Aidin1998/pincex_matching/internal/fraction"
	"github.com/Aidin1998/pincex_matching/internal/order"
)

// Reason labels what a transfer pays for.
type Reason string

const (
	ReasonRightMakerAsset Reason = "right_maker_asset"
	ReasonLeftMakerAsset  Reason = "left_maker_asset"
	ReasonRightMakerFee   Reason = "right_maker_fee"
	ReasonLeftMakerFee    Reason = "left_maker_fee"
	ReasonLeftProfit      Reason = "left_profit"
	ReasonRightProfit     Reason = "right_profit"
	ReasonLeftTakerFee    Reason = "left_taker_fee"
	ReasonRightTakerFee   Reason = "right_taker_fee"
	ReasonTakerFees       Reason = "taker_fees"
)

// Transfer moves Amount of the asset described by AssetData. Elided
// transfers are reported but must not be executed.
type Transfer struct {
	Reason    Reason         `json:"reason"`
	AssetData hexutil.Bytes  `json:"assetData"`
	From      common.Address `json:"from"`
	To        common.Address `json:"to"`
	Amount    *uint256.Int   `json:"amount"`
	Elided    bool           `json:"elided,omitempty"`
}

func (t Transfer) String() string {
	return fmt.Sprintf("%s: %s %s -> %s (elided=%t)", t.Reason, t.Amount.Dec(), t.From.Hex(), t.To.Hex(), t.Elided)
}

// Plan is the ordered list of transfers settling one match.
type Plan struct {
	Transfers []Transfer `json:"transfers"`
}

// Executable returns the transfers that are not elided.
func (p Plan) Executable() []Transfer {
	out := make([]Transfer, 0, len(p.Transfers))
	for _, t := range p.Transfers {
		if !t.Elided {
			out = append(out, t)
		}
	}
	return out
}

// Elided returns the number of elided transfers.
func (p Plan) Elided() int {
	return len(p.Transfers) - len(p.Executable())
}

// PlanMatch lists the transfers settling res between left, right and the
// taker that submitted the match. Makers swap assets first, then maker
// fees, spread profit and taker fees are paid.
func PlanMatch(left, right *order.Order, taker common.Address, res fill.MatchedResults) (Plan, error) {
	var p Plan

	p.add(ReasonRightMakerAsset, right.MakerAssetData, right.MakerAddress, left.MakerAddress, res.Left.TakerAssetFilledAmount)
	p.add(ReasonLeftMakerAsset, left.MakerAssetData, left.MakerAddress, right.MakerAddress, res.Right.TakerAssetFilledAmount)

	p.addMakerFee(ReasonRightMakerFee, right, res.Right.MakerFeePaid)
	p.addMakerFee(ReasonLeftMakerFee, left, res.Left.MakerFeePaid)

	p.add(ReasonLeftProfit, left.MakerAssetData, left.MakerAddress, taker, res.ProfitInLeftMakerAsset)
	p.add(ReasonRightProfit, right.MakerAssetData, right.MakerAddress, taker, res.ProfitInRightMakerAsset)

	if left.FeeRecipientAddress == right.FeeRecipientAddress && bytes.Equal(left.TakerFeeAssetData, right.TakerFeeAssetData) {
		total, err := fraction.Add(order.Amount(res.Left.TakerFeePaid), order.Amount(res.Right.TakerFeePaid))
		if err != nil {
			return Plan{}, err
		}
		p.add(ReasonTakerFees, left.TakerFeeAssetData, taker, left.FeeRecipientAddress, total)
	} else {
		p.add(ReasonLeftTakerFee, left.TakerFeeAssetData, taker, left.FeeRecipientAddress, res.Left.TakerFeePaid)
		p.add(ReasonRightTakerFee, right.TakerFeeAssetData, taker, right.FeeRecipientAddress, res.Right.TakerFeePaid)
	}
	return p, nil
}

func (p *Plan) add(reason Reason, asset hexutil.Bytes, from, to common.Address, amount *uint256.Int) {
	amount = order.Amount(amount)
	p.Transfers = append(p.Transfers, Transfer{
		Reason:    reason,
		AssetData: asset,
		From:      from,
		To:        to,
		Amount:    amount.Clone(),
		Elided:    from == to || amount.IsZero(),
	})
}

// addMakerFee also elides fees denominated in the maker's own taker asset;
// those are netted out of what the maker receives by the host.
func (p *Plan) addMakerFee(reason Reason, o *order.Order, amount *uint256.Int) {
	p.add(reason, o.MakerFeeAssetData, o.MakerAddress, o.FeeRecipientAddress, amount)
	if bytes.Equal(o.MakerFeeAssetData, o.TakerAssetData) {
		p.Transfers[len(p.Transfers)-1].Elided = true
	}
}
