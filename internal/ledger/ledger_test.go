package ledger_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Aidin1998/pincex_matching/internal/ledger"
	"github.com/Aidin1998/pincex_matching/internal/matching"
	"github.com/Aidin1998/pincex_matching/internal/order"
	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
	"github.com/Aidin1998/pincex_matching/testutil"
)

var _ matching.FillStateReader = (*ledger.Ledger)(nil)

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func TestLedger_FillState(t *testing.T) {
	l := ledger.New(zaptest.NewLogger(t))
	lf, _ := testutil.Pair()
	o := lf.NewOrder(testutil.U(10), testutil.U(20))

	assert.False(t, l.IsFillable(o.Hash()), "unregistered")
	assert.Equal(t, order.StatusInvalid, l.Status(o.Hash()))

	hash := l.Register(o)
	assert.Equal(t, o.Hash(), hash)
	assert.True(t, l.IsFillable(hash))

	filled, err := l.FilledAmount(hash)
	require.NoError(t, err)
	assert.True(t, filled.IsZero())

	require.NoError(t, l.Commit([]ledger.Delta{{Hash: hash, Amount: testutil.U(5)}, {Hash: hash, Amount: testutil.U(15)}}))
	filled, err = l.FilledAmount(hash)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), filled.Uint64())
	assert.Equal(t, order.StatusFullyFilled, l.Status(hash))

	// registering again keeps the state
	l.Register(o)
	assert.Equal(t, order.StatusFullyFilled, l.Status(hash))
}

func TestLedger_CommitIsAtomic(t *testing.T) {
	l := ledger.New(zaptest.NewLogger(t))
	lf, rf := testutil.Pair()
	a := l.Register(lf.NewOrder(testutil.U(10), testutil.U(20)))
	b := l.Register(rf.NewOrder(testutil.U(10), testutil.U(5)))

	tests := []struct {
		name   string
		deltas []ledger.Delta
		want   error
	}{
		{"over fill", []ledger.Delta{{Hash: a, Amount: testutil.U(3)}, {Hash: b, Amount: testutil.U(6)}}, apperrors.ErrInvalidFillUpdate},
		{"unknown order", []ledger.Delta{{Hash: a, Amount: testutil.U(3)}, {Hash: common.Hash{1}, Amount: testutil.U(1)}}, apperrors.ErrInvalidFillUpdate},
		{"stale base", []ledger.Delta{{Hash: a, Base: testutil.U(1), Amount: testutil.U(3)}}, apperrors.ErrInvalidFillUpdate},
		{"conflicting bases", []ledger.Delta{{Hash: a, Base: testutil.U(0), Amount: testutil.U(1)}, {Hash: a, Base: testutil.U(1), Amount: testutil.U(1)}}, apperrors.ErrInvalidFillUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, l.Commit(tt.deltas), tt.want)

			for _, h := range []common.Hash{a, b} {
				filled, err := l.FilledAmount(h)
				require.NoError(t, err)
				assert.True(t, filled.IsZero())
			}
		})
	}

	require.NoError(t, l.Commit([]ledger.Delta{{Hash: a, Base: testutil.U(0), Amount: testutil.U(3)}}))
	filled, err := l.FilledAmount(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), filled.Uint64())
}

func TestLedger_Cancel(t *testing.T) {
	l := ledger.New(zaptest.NewLogger(t))
	lf, _ := testutil.Pair()
	hash := l.Register(lf.NewOrder(testutil.U(10), testutil.U(20)))

	require.NoError(t, l.Cancel(hash))
	require.NoError(t, l.Cancel(hash))
	assert.Equal(t, order.StatusCancelled, l.Status(hash))

	err := l.Commit([]ledger.Delta{{Hash: hash, Amount: testutil.U(1)}})
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFillable)

	assert.ErrorIs(t, l.Cancel(common.Hash{2}), apperrors.ErrOrderNotFillable)
}

func TestLedger_CancelUpTo(t *testing.T) {
	l := ledger.New(zaptest.NewLogger(t))
	lf, _ := testutil.Pair()

	low := lf.NewOrder(testutil.U(1), testutil.U(1))
	low.Salt = testutil.U(5)
	high := lf.NewOrder(testutil.U(1), testutil.U(1))
	high.Salt = testutil.U(10)
	lowHash, highHash := l.Register(low), l.Register(high)

	require.NoError(t, l.CancelUpTo(lf.Maker, testutil.U(10)))
	assert.Equal(t, order.StatusCancelled, l.Status(lowHash))
	assert.True(t, l.IsFillable(highHash))

	// later registrations are covered too
	later := lf.NewOrder(testutil.U(1), testutil.U(1))
	later.Salt = testutil.U(9)
	assert.False(t, l.IsFillable(l.Register(later)))

	assert.ErrorIs(t, l.CancelUpTo(lf.Maker, testutil.U(10)), apperrors.ErrInvalidFillUpdate)
	assert.ErrorIs(t, l.CancelUpTo(lf.Maker, testutil.U(3)), apperrors.ErrInvalidFillUpdate)
}

func TestLedger_Expiry(t *testing.T) {
	lf, _ := testutil.Pair()
	o := lf.NewOrder(testutil.U(1), testutil.U(1))
	o.ExpirationTimeSeconds = 1000

	l := ledger.New(zaptest.NewLogger(t), ledger.WithClock(fixedClock(990)))
	hash := l.Register(o)
	assert.True(t, l.IsFillable(hash))

	skewed := ledger.New(zaptest.NewLogger(t), ledger.WithClock(fixedClock(990)), ledger.WithClockSkew(10*time.Second))
	skewed.Register(o)
	assert.Equal(t, order.StatusExpired, skewed.Status(hash))
}

func TestLedger_ConcurrentCommits(t *testing.T) {
	l := ledger.New(zaptest.NewLogger(t))
	lf, rf := testutil.Pair()
	a := l.Register(lf.NewOrder(testutil.U(1000), testutil.U(1000)))
	b := l.Register(rf.NewOrder(testutil.U(1000), testutil.U(1000)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deltas := []ledger.Delta{{Hash: a, Amount: uint256.NewInt(1)}, {Hash: b, Amount: uint256.NewInt(1)}}
			if i%2 == 1 {
				deltas[0], deltas[1] = deltas[1], deltas[0]
			}
			assert.NoError(t, l.Commit(deltas))
		}(i)
	}
	wg.Wait()

	for _, h := range []common.Hash{a, b} {
		filled, err := l.FilledAmount(h)
		require.NoError(t, err)
		assert.Equal(t, uint64(50), filled.Uint64())
	}
}
