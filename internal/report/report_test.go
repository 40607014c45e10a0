package report_test

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aidin1998/pincex_matching/internal/batch"
	"github.com/Aidin1998/pincex_matching/internal/matching"
	"github.com/Aidin1998/pincex_matching/internal/order"
	"github.com/Aidin1998/pincex_matching/internal/report"
	"github.com/Aidin1998/pincex_matching/testutil"
)

func TestSummarizeMatch_FeePercentages(t *testing.T) {
	lf, rf := testutil.Pair()
	left := lf.NewOrder(testutil.U(17), testutil.U(98))
	right := rf.NewOrder(testutil.U(75), testutil.U(13))

	res, err := matching.MatchOrderPair(left, nil, right, nil, false)
	require.NoError(t, err)
	sum := report.SummarizeMatch(left, right, res)

	assert.Equal(t, "76.4705882352941176", sum.Left.MakerFeePercent.String())
	assert.Equal(t, "76.5306122448979591", sum.Left.TakerFeePercent.String())
	assert.Equal(t, "100", sum.Right.MakerFeePercent.String())
	assert.Equal(t, "100", sum.Right.TakerFeePercent.String())

	// the left maker sells no more per unit than it signed for
	assert.True(t, sum.Left.RealizedRate.LessThanOrEqual(sum.Left.StatedRate))
	assert.True(t, sum.Right.RealizedRate.Equal(sum.Right.StatedRate))
	assert.True(t, sum.ProfitInLeftMakerAsset.IsZero())
}

func TestSummarizeBatch(t *testing.T) {
	lf, rf := testutil.Pair()
	left := []*order.Order{lf.NewOrder(testutil.U(2), testutil.U(1)), lf.NewOrder(testutil.U(2), testutil.U(1))}
	right := []*order.Order{rf.NewOrder(testutil.U(2), testutil.U(4))}

	in := batch.Input{LeftOrders: left, RightOrders: right, LeftSignatures: make([]hexutil.Bytes, 2), RightSignatures: make([]hexutil.Bytes, 1)}
	res, err := batch.MatchOrderBatch(in, []batch.Pair{{Left: 0, Right: 0}, {Left: 1, Right: 0}}, false)
	require.NoError(t, err)

	sum := report.SummarizeBatch(left, right, res)
	require.Len(t, sum.Left, 2)
	require.Len(t, sum.Right, 1)
	assert.Equal(t, "100", sum.Right[0].MakerFeePercent.String())
	assert.Equal(t, "0.5", sum.Right[0].RealizedRate.String())

	raw, err := json.Marshal(sum)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"makerFeePercent":"100"`)
}

func TestPercentAndRate_ZeroDenominator(t *testing.T) {
	assert.True(t, report.Percent(testutil.U(5), nil).IsZero())
	assert.True(t, report.Rate(testutil.U(5), testutil.U(0)).IsZero())
	assert.Equal(t, "2.5", report.Rate(testutil.U(5), testutil.U(2)).String())
}
