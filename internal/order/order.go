// Package order defines the signed order record matched by the engine.
package order

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Status describes whether an order can currently be filled.
type Status int

const (
	StatusInvalid Status = iota
	StatusInvalidMakerAssetAmount
	StatusInvalidTakerAssetAmount
	StatusFillable
	StatusExpired
	StatusFullyFilled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusInvalidMakerAssetAmount:
		return "InvalidMakerAssetAmount"
	case StatusInvalidTakerAssetAmount:
		return "InvalidTakerAssetAmount"
	case StatusFillable:
		return "Fillable"
	case StatusExpired:
		return "Expired"
	case StatusFullyFilled:
		return "FullyFilled"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Invalid"
	}
}

// Order is immutable once signed. Asset data fields are opaque encoded
// asset references; the engine only compares them for equality.
type Order struct {
	MakerAddress          common.Address `json:"makerAddress"`
	TakerAddress          common.Address `json:"takerAddress"`
	FeeRecipientAddress   common.Address `json:"feeRecipientAddress"`
	SenderAddress         common.Address `json:"senderAddress"`
	MakerAssetAmount      *uint256.Int   `json:"makerAssetAmount"`
	TakerAssetAmount      *uint256.Int   `json:"takerAssetAmount"`
	MakerFee              *uint256.Int   `json:"makerFee"`
	TakerFee              *uint256.Int   `json:"takerFee"`
	ExpirationTimeSeconds uint64         `json:"expirationTimeSeconds"`
	Salt                  *uint256.Int   `json:"salt"`
	MakerAssetData        hexutil.Bytes  `json:"makerAssetData"`
	TakerAssetData        hexutil.Bytes  `json:"takerAssetData"`
	MakerFeeAssetData     hexutil.Bytes  `json:"makerFeeAssetData"`
	TakerFeeAssetData     hexutil.Bytes  `json:"takerFeeAssetData"`
}

// Hash returns the order identity: Keccak256 over the fixed-width encoding
// of the scalar fields followed by the hashes of the asset data fields.
func (o *Order) Hash() common.Hash {
	var buf bytes.Buffer
	buf.Write(common.LeftPadBytes(o.MakerAddress.Bytes(), 32))
	buf.Write(common.LeftPadBytes(o.TakerAddress.Bytes(), 32))
	buf.Write(common.LeftPadBytes(o.FeeRecipientAddress.Bytes(), 32))
	buf.Write(common.LeftPadBytes(o.SenderAddress.Bytes(), 32))
	for _, v := range []*uint256.Int{o.MakerAssetAmount, o.TakerAssetAmount, o.MakerFee, o.TakerFee} {
		buf.Write(word(v))
	}
	buf.Write(word(uint256.NewInt(o.ExpirationTimeSeconds)))
	buf.Write(word(o.Salt))
	for _, data := range [][]byte{o.MakerAssetData, o.TakerAssetData, o.MakerFeeAssetData, o.TakerFeeAssetData} {
		buf.Write(crypto.Keccak256(data))
	}
	return crypto.Keccak256Hash(buf.Bytes())
}

func word(v *uint256.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	b := v.Bytes32()
	return b[:]
}

// Validate checks the order's own amounts, independent of fill state.
func (o *Order) Validate() Status {
	if o.MakerAssetAmount == nil || o.MakerAssetAmount.IsZero() {
		return StatusInvalidMakerAssetAmount
	}
	if o.TakerAssetAmount == nil || o.TakerAssetAmount.IsZero() {
		return StatusInvalidTakerAssetAmount
	}
	return StatusFillable
}

// StatusAt derives the order status from its filled amount and the host's
// clock. Cancellation is tracked by the host and is not visible here.
func (o *Order) StatusAt(filled *uint256.Int, nowSeconds uint64) Status {
	if s := o.Validate(); s != StatusFillable {
		return s
	}
	if filled != nil && !filled.Lt(o.TakerAssetAmount) {
		return StatusFullyFilled
	}
	if o.ExpirationTimeSeconds != 0 && nowSeconds >= o.ExpirationTimeSeconds {
		return StatusExpired
	}
	return StatusFillable
}

// IsComplementary reports whether right sells what left buys and buys what
// left sells.
func IsComplementary(left, right *Order) bool {
	return bytes.Equal(left.MakerAssetData, right.TakerAssetData) &&
		bytes.Equal(left.TakerAssetData, right.MakerAssetData)
}

// Remaining returns TakerAssetAmount - filled, or zero when filled exceeds it.
func (o *Order) Remaining(filled *uint256.Int) *uint256.Int {
	if filled == nil {
		return o.TakerAssetAmount.Clone()
	}
	if !filled.Lt(o.TakerAssetAmount) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(o.TakerAssetAmount, filled)
}

func (o *Order) String() string {
	return fmt.Sprintf("order{maker=%s make=%s take=%s}", o.MakerAddress.Hex(), dec(o.MakerAssetAmount), dec(o.TakerAssetAmount))
}

func dec(v *uint256.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.Dec()
}

// Amount returns v or zero when v is nil. Fees are optional on orders.
func Amount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
