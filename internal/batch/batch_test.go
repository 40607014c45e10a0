package batch_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Aidin1998/pincex_matching/internal/batch"
	"github.com/Aidin1998/pincex_matching/internal/fill"
	"github.com/Aidin1998/pincex_matching/internal/order"
	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
	"github.com/Aidin1998/pincex_matching/testutil"
)

func signatures(n int) []hexutil.Bytes {
	return make([]hexutil.Bytes, n)
}

func newInput(left, right []*order.Order) batch.Input {
	return batch.Input{
		LeftOrders:      left,
		RightOrders:     right,
		LeftSignatures:  signatures(len(left)),
		RightSignatures: signatures(len(right)),
	}
}

// two 2/1 left orders against one 2/4 right order, plus an unreachable
// second right order
func twoAgainstOne() batch.Input {
	lf, rf := testutil.Pair()
	return newInput(
		[]*order.Order{
			lf.NewOrder(testutil.U(2), testutil.U(1)),
			lf.NewOrder(testutil.U(2), testutil.U(1)),
		},
		[]*order.Order{
			rf.NewOrder(testutil.U(2), testutil.U(4)),
			rf.NewOrder(testutil.U(2), testutil.U(4)),
		},
	)
}

func TestRun_Greedy(t *testing.T) {
	in := twoAgainstOne()

	res, err := batch.NewRunner(nil).Run(in, batch.NewGreedy(), false)
	require.NoError(t, err)

	require.Len(t, res.Matches, 2)
	assert.Equal(t, batch.Pair{Left: 0, Right: 0}, res.Matches[0].Pair)
	assert.Equal(t, batch.Pair{Left: 1, Right: 0}, res.Matches[1].Pair)

	for i, l := range res.Left {
		assert.Equal(t, uint64(2), l.MakerAssetFilledAmount.Uint64(), "left %d", i)
		assert.Equal(t, uint64(1), l.TakerAssetFilledAmount.Uint64(), "left %d", i)
		assert.Equal(t, "1000000000000000000", l.MakerFeePaid.Dec())
	}

	r := res.Right[0]
	assert.Equal(t, uint64(2), r.MakerAssetFilledAmount.Uint64())
	assert.Equal(t, uint64(4), r.TakerAssetFilledAmount.Uint64())
	// two half fills of a 1e18 fee
	assert.Equal(t, "1000000000000000000", r.MakerFeePaid.Dec())
	assert.Equal(t, "1000000000000000000", r.TakerFeePaid.Dec())

	assert.True(t, res.Right[1].Equal(fill.Zero()))
	assert.True(t, res.ProfitInLeftMakerAsset.IsZero())
	assert.True(t, res.ProfitInRightMakerAsset.IsZero())

	assert.Equal(t, uint64(4), res.RightFilled[0].Uint64())
	assert.True(t, res.RightFilled[1].IsZero())
}

func TestMatchOrderBatch_ExplicitPairs(t *testing.T) {
	in := twoAgainstOne()

	out, err := batch.MatchOrderBatch(in, []batch.Pair{{0, 0}, {1, 0}}, false)
	require.NoError(t, err)

	assert.Equal(t, uint64(4), out.Right[0].TakerAssetFilledAmount.Uint64())
	assert.True(t, out.Right[1].Equal(fill.Zero()))
}

func TestMatchOrderBatch_NonConsecutiveRepeat(t *testing.T) {
	lf, rf := testutil.Pair()
	in := newInput(
		[]*order.Order{lf.NewOrder(testutil.U(4), testutil.U(2))},
		[]*order.Order{
			rf.NewOrder(testutil.U(1), testutil.U(2)),
			rf.NewOrder(testutil.U(1), testutil.U(2)),
		},
	)

	// left 0 is partially filled by right 0, then finished by right 1
	out, err := batch.MatchOrderBatch(in, []batch.Pair{{0, 0}, {0, 1}}, false)
	require.NoError(t, err)

	assert.Equal(t, uint64(4), out.Left[0].MakerAssetFilledAmount.Uint64())
	assert.Equal(t, uint64(2), out.Left[0].TakerAssetFilledAmount.Uint64())

	// a third pass over the exhausted left order aborts the batch
	_, err = batch.MatchOrderBatch(in, []batch.Pair{{0, 0}, {0, 1}, {0, 0}}, false)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFillable)
}

func TestRun_SameOrderAtTwoIndices(t *testing.T) {
	lf, rf := testutil.Pair()
	a := lf.NewOrder(testutil.U(10), testutil.U(10))
	in := newInput(
		[]*order.Order{a, a},
		[]*order.Order{
			rf.NewOrder(testutil.U(8), testutil.U(8)),
			rf.NewOrder(testutil.U(8), testutil.U(8)),
		},
	)

	res, err := batch.NewRunner(nil).Run(in, batch.NewExplicit([]batch.Pair{{0, 0}, {1, 1}}), false)
	require.NoError(t, err)

	// the second occurrence only gets what the first left over
	assertFilled := func(want uint64, got fill.Results) {
		assert.Equal(t, want, got.MakerAssetFilledAmount.Uint64())
		assert.Equal(t, want, got.TakerAssetFilledAmount.Uint64())
	}
	assertFilled(8, res.Left[0])
	assertFilled(2, res.Left[1])
	assertFilled(8, res.Right[0])
	assertFilled(2, res.Right[1])

	assert.Equal(t, uint64(10), res.LeftFilled[0].Uint64())
	assert.Equal(t, uint64(10), res.LeftFilled[1].Uint64())
	assert.Equal(t, uint64(2), res.RightFilled[1].Uint64())

	_, err = batch.MatchOrderBatch(in, []batch.Pair{{0, 0}, {1, 1}, {0, 1}}, false)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFillable)
}

func TestRun_Blocked(t *testing.T) {
	in := twoAgainstOne()
	in.Blocked = map[common.Hash]order.Status{in.RightOrders[1].Hash(): order.StatusCancelled}

	// right 1 is never reached
	_, err := batch.NewRunner(nil).Run(in, batch.NewGreedy(), false)
	require.NoError(t, err)

	_, err = batch.MatchOrderBatch(in, []batch.Pair{{0, 1}}, false)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFillable)
	assert.ErrorContains(t, err, "Cancelled")
}

func TestRun_InitialFilled(t *testing.T) {
	in := twoAgainstOne()
	in.RightFilled = []*uint256.Int{testutil.U(2), nil}

	res, err := batch.NewRunner(nil).Run(in, batch.NewGreedy(), false)
	require.NoError(t, err)

	// only half of right 0 remains, so left 1 is matched against right 1
	require.Len(t, res.Matches, 2)
	assert.Equal(t, batch.Pair{Left: 1, Right: 1}, res.Matches[1].Pair)
	assert.Equal(t, uint64(2), res.Right[0].TakerAssetFilledAmount.Uint64())
	assert.Equal(t, uint64(4), res.RightFilled[0].Uint64())
	// caller's slice untouched
	assert.Equal(t, uint64(2), in.RightFilled[0].Uint64())
}

func TestRun_Errors(t *testing.T) {
	lf, rf := testutil.Pair()

	tests := []struct {
		name  string
		in    func() batch.Input
		pairs []batch.Pair
		want  error
	}{
		{
			name: "empty left orders",
			in: func() batch.Input {
				return newInput(nil, []*order.Order{rf.NewOrder(testutil.U(1), testutil.U(1))})
			},
			want: apperrors.ErrEmptyOrders,
		},
		{
			name: "signature length mismatch",
			in: func() batch.Input {
				in := twoAgainstOne()
				in.LeftSignatures = signatures(1)
				return in
			},
			want: apperrors.ErrLengthMismatch,
		},
		{
			name: "filled length mismatch",
			in: func() batch.Input {
				in := twoAgainstOne()
				in.RightFilled = []*uint256.Int{testutil.U(0)}
				return in
			},
			want: apperrors.ErrLengthMismatch,
		},
		{
			name:  "pair out of range",
			in:    twoAgainstOne,
			pairs: []batch.Pair{{0, 0}, {2, 0}},
			want:  apperrors.ErrInvalidPair,
		},
		{
			name: "negative spread aborts the batch",
			in: func() batch.Input {
				return newInput(
					[]*order.Order{lf.NewOrder(testutil.U(2), testutil.U(1)), lf.NewOrder(testutil.U(1), testutil.U(2))},
					[]*order.Order{rf.NewOrder(testutil.U(1), testutil.U(2)), rf.NewOrder(testutil.U(1), testutil.U(2))},
				)
			},
			pairs: []batch.Pair{{0, 0}, {1, 1}},
			want:  apperrors.ErrNegativeSpread,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := batch.NewRunner(nil).Run(tt.in(), batch.NewExplicit(tt.pairs), false)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, res.Matches)
			assert.Nil(t, res.Left)
		})
	}
}

func TestGreedy(t *testing.T) {
	g := batch.NewGreedy()

	_, ok := g.Start(0, 3)
	assert.False(t, ok)

	p, ok := g.Start(2, 2)
	require.True(t, ok)
	assert.Equal(t, batch.Pair{}, p)

	p, ok = g.Advance(p, false, true)
	require.True(t, ok)
	assert.Equal(t, batch.Pair{Left: 0, Right: 1}, p)

	p, ok = g.Advance(p, true, false)
	require.True(t, ok)
	assert.Equal(t, batch.Pair{Left: 1, Right: 1}, p)

	_, ok = g.Advance(p, false, false)
	assert.False(t, ok)

	_, ok = g.Advance(p, true, true)
	assert.False(t, ok)
}

func TestExplicit_StartResets(t *testing.T) {
	e := batch.NewExplicit([]batch.Pair{{1, 2}})

	p, ok := e.Start(0, 0)
	require.True(t, ok)
	assert.Equal(t, batch.Pair{Left: 1, Right: 2}, p)
	_, ok = e.Advance(p, true, true)
	assert.False(t, ok)

	p, ok = e.Start(0, 0)
	require.True(t, ok)
	assert.Equal(t, batch.Pair{Left: 1, Right: 2}, p)
}

func TestNewSequencer(t *testing.T) {
	assert.IsType(t, &batch.Explicit{}, batch.NewSequencer("explicit", nil))
	assert.IsType(t, &batch.Greedy{}, batch.NewSequencer("greedy", nil))
	assert.IsType(t, &batch.Greedy{}, batch.NewSequencer("", nil))
}

func TestRun_GreedyProperties(t *testing.T) {
	lf, rf := testutil.Pair()

	rapid.Check(t, func(t *rapid.T) {
		// every left order pays at least the price every right order asks
		numLeft := rapid.IntRange(1, 5).Draw(t, "numLeft")
		numRight := rapid.IntRange(1, 5).Draw(t, "numRight")

		left := make([]*order.Order, numLeft)
		for i := range left {
			take := rapid.Uint64Range(1, 1000).Draw(t, "leftTake")
			left[i] = lf.NewOrder(testutil.U(2*take+rapid.Uint64Range(0, 1000).Draw(t, "leftExtra")), testutil.U(take))
		}
		right := make([]*order.Order, numRight)
		for i := range right {
			take := rapid.Uint64Range(1, 1000).Draw(t, "rightTake")
			right[i] = rf.NewOrder(testutil.U((take+1)/2+rapid.Uint64Range(0, 1000).Draw(t, "rightExtra")), testutil.U(take))
		}

		res, err := batch.NewRunner(nil).Run(newInput(left, right), batch.NewGreedy(), rapid.Bool().Draw(t, "maximal"))
		if err != nil {
			require.ErrorIs(t, err, apperrors.ErrArithmetic)
			return
		}

		require.Len(t, res.Left, numLeft)
		require.Len(t, res.Right, numRight)

		for i, o := range left {
			assert.LessOrEqual(t, res.Left[i].TakerAssetFilledAmount.Uint64(), o.TakerAssetAmount.Uint64())
			assert.Equal(t, res.Left[i].TakerAssetFilledAmount, res.LeftFilled[i])
		}
		for i, o := range right {
			assert.LessOrEqual(t, res.Right[i].TakerAssetFilledAmount.Uint64(), o.TakerAssetAmount.Uint64())
			assert.Equal(t, res.Right[i].TakerAssetFilledAmount, res.RightFilled[i])
		}

		var profitLeft, profitRight uint64
		for _, m := range res.Matches {
			profitLeft += m.Results.ProfitInLeftMakerAsset.Uint64()
			profitRight += m.Results.ProfitInRightMakerAsset.Uint64()
		}
		assert.Equal(t, profitLeft, res.ProfitInLeftMakerAsset.Uint64())
		assert.Equal(t, profitRight, res.ProfitInRightMakerAsset.Uint64())
	})
}
