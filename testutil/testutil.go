// Package testutil builds orders for tests across the engine packages.
package testutil

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Aidin1998/pincex_matching/internal/order"
)

// erc20ProxyID is the 4-byte selector prefixing ERC20 asset data.
var erc20ProxyID = []byte{0xf4, 0x72, 0x61, 0xb0}

// Token addresses used by the default orders.
var (
	TokenA   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	TokenB   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	FeeToken = common.HexToAddress("0x00000000000000000000000000000000000000fe")
)

var salt atomic.Uint64

// ERC20AssetData encodes a token address the way the exchange proxies expect.
func ERC20AssetData(token common.Address) []byte {
	return append(append([]byte{}, erc20ProxyID...), common.LeftPadBytes(token.Bytes(), 32)...)
}

// U is shorthand for uint256.NewInt.
func U(v uint64) *uint256.Int { return uint256.NewInt(v) }

// BaseUnits returns amount * 10^decimals.
func BaseUnits(amount uint64, decimals uint64) *uint256.Int {
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(decimals))
	return new(uint256.Int).Mul(uint256.NewInt(amount), scale)
}

// OrderFactory produces orders sharing a maker and fee recipient.
type OrderFactory struct {
	Maker        common.Address
	FeeRecipient common.Address
	MakerToken   common.Address
	TakerToken   common.Address
	MakerFee     *uint256.Int
	TakerFee     *uint256.Int
}

// NewOrderFactory returns a factory selling makerToken for takerToken with
// fees of 1e18 fee-token units, the fee used throughout the scenario tests.
func NewOrderFactory(maker, feeRecipient, makerToken, takerToken common.Address) *OrderFactory {
	return &OrderFactory{
		Maker:        maker,
		FeeRecipient: feeRecipient,
		MakerToken:   makerToken,
		TakerToken:   takerToken,
		MakerFee:     BaseUnits(1, 18),
		TakerFee:     BaseUnits(1, 18),
	}
}

// NewOrder returns an order making makerAmount for takerAmount with a fresh salt.
func (f *OrderFactory) NewOrder(makerAmount, takerAmount *uint256.Int) *order.Order {
	return &order.Order{
		MakerAddress:        f.Maker,
		FeeRecipientAddress: f.FeeRecipient,
		MakerAssetAmount:    makerAmount,
		TakerAssetAmount:    takerAmount,
		MakerFee:            f.MakerFee.Clone(),
		TakerFee:            f.TakerFee.Clone(),
		Salt:                uint256.NewInt(salt.Add(1)),
		MakerAssetData:      ERC20AssetData(f.MakerToken),
		TakerAssetData:      ERC20AssetData(f.TakerToken),
		MakerFeeAssetData:   ERC20AssetData(FeeToken),
		TakerFeeAssetData:   ERC20AssetData(FeeToken),
	}
}

// Pair returns factories for a left maker selling TokenA and a right maker
// selling TokenB, each with its own fee recipient.
func Pair() (left, right *OrderFactory) {
	left = NewOrderFactory(
		common.HexToAddress("0x1000000000000000000000000000000000000001"),
		common.HexToAddress("0xf100000000000000000000000000000000000001"),
		TokenA, TokenB,
	)
	right = NewOrderFactory(
		common.HexToAddress("0x2000000000000000000000000000000000000002"),
		common.HexToAddress("0xf200000000000000000000000000000000000002"),
		TokenB, TokenA,
	)
	return left, right
}
