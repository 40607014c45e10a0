// Package batch matches two lists of orders pair by pair, carrying each
// order's running filled amount across the pairs that touch it.
package batch

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/Aidin1998/pincex_matching/internal/fill"
	"github.com/Aidin1998/pincex_matching/internal/fraction"
	"github.com/Aidin1998/pincex_matching/internal/matching"
	"github.com/Aidin1998/pincex_matching/internal/order"
	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
)

// Input is a batch to be matched. LeftFilled and RightFilled carry the
// taker amounts already filled before the batch; nil means all zero.
// Blocked holds the host status of orders that can no longer be filled;
// only a pair touching one of them fails.
type Input struct {
	LeftOrders      []*order.Order
	RightOrders     []*order.Order
	LeftSignatures  []hexutil.Bytes
	RightSignatures []hexutil.Bytes
	LeftFilled      []*uint256.Int
	RightFilled     []*uint256.Int
	Blocked         map[common.Hash]order.Status
}

// Validate checks the shape of the input. Nothing is matched on failure.
func (in Input) Validate() error {
	if len(in.LeftOrders) == 0 || len(in.RightOrders) == 0 {
		return apperrors.ErrEmptyOrders.Explain("batch has %d left and %d right orders", len(in.LeftOrders), len(in.RightOrders))
	}
	if len(in.LeftSignatures) != len(in.LeftOrders) {
		return apperrors.ErrLengthMismatch.Explain("%d left orders, %d signatures", len(in.LeftOrders), len(in.LeftSignatures)).
			WithField(apperrors.KindLengthMismatch, "leftSignatures", "must match leftOrders")
	}
	if len(in.RightSignatures) != len(in.RightOrders) {
		return apperrors.ErrLengthMismatch.Explain("%d right orders, %d signatures", len(in.RightOrders), len(in.RightSignatures)).
			WithField(apperrors.KindLengthMismatch, "rightSignatures", "must match rightOrders")
	}
	if in.LeftFilled != nil && len(in.LeftFilled) != len(in.LeftOrders) {
		return apperrors.ErrLengthMismatch.Explain("%d left orders, %d filled amounts", len(in.LeftOrders), len(in.LeftFilled)).
			WithField(apperrors.KindLengthMismatch, "leftFilled", "must match leftOrders")
	}
	if in.RightFilled != nil && len(in.RightFilled) != len(in.RightOrders) {
		return apperrors.ErrLengthMismatch.Explain("%d right orders, %d filled amounts", len(in.RightOrders), len(in.RightFilled)).
			WithField(apperrors.KindLengthMismatch, "rightFilled", "must match rightOrders")
	}
	return nil
}

// Match is one executed pair and its results.
type Match struct {
	Pair    Pair
	Results fill.MatchedResults
}

// Result is the outcome of a batch: per-order aggregates, summed profits,
// and the individual matches in execution order.
type Result struct {
	fill.BatchMatchedResults
	Matches []Match
	// LeftFilled and RightFilled are the filled amounts after the batch.
	LeftFilled  []*uint256.Int
	RightFilled []*uint256.Int
}

// Runner executes batches with a configured pairwise matcher.
type Runner struct {
	matcher *matching.Matcher
}

// NewRunner returns a runner. A nil matcher uses matching defaults.
func NewRunner(m *matching.Matcher) *Runner {
	if m == nil {
		m = matching.New()
	}
	return &Runner{matcher: m}
}

// MatchOrderBatch matches the explicit pairs of in with default settings.
func MatchOrderBatch(in Input, pairs []Pair, maximalFill bool) (fill.BatchMatchedResults, error) {
	res, err := NewRunner(nil).Run(in, NewExplicit(pairs), maximalFill)
	if err != nil {
		return fill.BatchMatchedResults{}, err
	}
	return res.BatchMatchedResults, nil
}

// Run matches in pair by pair in the order chosen by seq. Results are
// aggregated per order index while the running filled amount is kept per
// order hash, so an order listed at several indices is filled at most
// once over. The first failing pair aborts the whole batch and no result
// is returned.
func (r *Runner) Run(in Input, seq Sequencer, maximalFill bool) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	numLeft, numRight := len(in.LeftOrders), len(in.RightOrders)
	leftHashes, rightHashes := hashes(in.LeftOrders), hashes(in.RightOrders)
	filled := make(map[common.Hash]*uint256.Int, numLeft+numRight)
	seed(filled, leftHashes, in.LeftFilled)
	seed(filled, rightHashes, in.RightFilled)

	res := Result{
		BatchMatchedResults: fill.NewBatchMatchedResults(numLeft, numRight),
	}

	pair, ok := seq.Start(numLeft, numRight)
	for ok {
		if pair.Left < 0 || pair.Left >= numLeft || pair.Right < 0 || pair.Right >= numRight {
			return Result{}, apperrors.ErrInvalidPair.Explain("pair (%d, %d) outside %d left and %d right orders", pair.Left, pair.Right, numLeft, numRight)
		}

		left, right := in.LeftOrders[pair.Left], in.RightOrders[pair.Right]
		leftHash, rightHash := leftHashes[pair.Left], rightHashes[pair.Right]
		if err := in.blocked(matching.SideLeft, leftHash); err != nil {
			return Result{}, apperrors.Wrap(err).Explain("pair %d (%d, %d)", len(res.Matches), pair.Left, pair.Right)
		}
		if err := in.blocked(matching.SideRight, rightHash); err != nil {
			return Result{}, apperrors.Wrap(err).Explain("pair %d (%d, %d)", len(res.Matches), pair.Left, pair.Right)
		}

		matched, err := r.matcher.Match(left, filled[leftHash], right, filled[rightHash], maximalFill)
		if err != nil {
			return Result{}, apperrors.Wrap(err).Explain("pair %d (%d, %d)", len(res.Matches), pair.Left, pair.Right)
		}
		if err := res.apply(pair, matched); err != nil {
			return Result{}, err
		}
		if filled[leftHash], err = fraction.Add(filled[leftHash], matched.Left.TakerAssetFilledAmount); err != nil {
			return Result{}, err
		}
		if filled[rightHash], err = fraction.Add(filled[rightHash], matched.Right.TakerAssetFilledAmount); err != nil {
			return Result{}, err
		}

		leftDone := !filled[leftHash].Lt(left.TakerAssetAmount)
		rightDone := !filled[rightHash].Lt(right.TakerAssetAmount)
		pair, ok = seq.Advance(pair, leftDone, rightDone)
	}

	res.LeftFilled = collect(filled, leftHashes)
	res.RightFilled = collect(filled, rightHashes)
	return res, nil
}

func (in Input) blocked(side matching.Side, hash common.Hash) error {
	status, ok := in.Blocked[hash]
	if !ok {
		return nil
	}
	return apperrors.ErrOrderNotFillable.
		Explain("%s order %s is %s", side, hash.Hex(), status).
		WithField(status.String(), string(side), "order cannot be filled")
}

func (res *Result) apply(pair Pair, m fill.MatchedResults) error {
	var err error
	if res.Left[pair.Left], err = res.Left[pair.Left].Add(m.Left); err != nil {
		return err
	}
	if res.Right[pair.Right], err = res.Right[pair.Right].Add(m.Right); err != nil {
		return err
	}
	if res.ProfitInLeftMakerAsset, err = fraction.Add(res.ProfitInLeftMakerAsset, m.ProfitInLeftMakerAsset); err != nil {
		return err
	}
	if res.ProfitInRightMakerAsset, err = fraction.Add(res.ProfitInRightMakerAsset, m.ProfitInRightMakerAsset); err != nil {
		return err
	}
	res.Matches = append(res.Matches, Match{Pair: pair, Results: m})
	return nil
}

func hashes(orders []*order.Order) []common.Hash {
	out := make([]common.Hash, len(orders))
	for i, o := range orders {
		out[i] = o.Hash()
	}
	return out
}

// seed records the pre-batch filled amounts. An order listed more than
// once keeps the largest amount reported for it.
func seed(filled map[common.Hash]*uint256.Int, hashes []common.Hash, amounts []*uint256.Int) {
	for i, h := range hashes {
		v := new(uint256.Int)
		if i < len(amounts) && amounts[i] != nil {
			v = amounts[i].Clone()
		}
		if cur, ok := filled[h]; !ok || v.Gt(cur) {
			filled[h] = v
		}
	}
}

func collect(filled map[common.Hash]*uint256.Int, hashes []common.Hash) []*uint256.Int {
	out := make([]*uint256.Int, len(hashes))
	for i, h := range hashes {
		out[i] = filled[h].Clone()
	}
	return out
}
