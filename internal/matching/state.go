package matching

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Aidin1998/pincex_matching/internal/order"
	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
)

// FillStateReader is the host's read-only view of order fill state.
// IsFillable folds in cancellation, expiry and signature validity.
type FillStateReader interface {
	FilledAmount(hash common.Hash) (*uint256.Int, error)
	IsFillable(hash common.Hash) bool
}

// LoadFilled returns the filled amount of o from the host, failing with
// ErrOrderNotFillable when the host reports the order as not fillable.
func LoadFilled(r FillStateReader, o *order.Order) (*uint256.Int, error) {
	hash := o.Hash()
	if !r.IsFillable(hash) {
		return nil, apperrors.ErrOrderNotFillable.Explain("order %s is not fillable", hash.Hex())
	}
	filled, err := r.FilledAmount(hash)
	if err != nil {
		return nil, err
	}
	if filled == nil {
		return new(uint256.Int), nil
	}
	return filled, nil
}
