package order_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aidin1998/pincex_matching/internal/order"
	"github.com/Aidin1998/pincex_matching/testutil"
)

func TestHash(t *testing.T) {
	left, _ := testutil.Pair()
	o := left.NewOrder(testutil.U(10), testutil.U(20))

	same := *o
	assert.Equal(t, o.Hash(), same.Hash())

	other := *o
	other.Salt = testutil.U(o.Salt.Uint64() + 1)
	assert.NotEqual(t, o.Hash(), other.Hash())

	swapped := *o
	swapped.MakerAssetData, swapped.TakerAssetData = o.TakerAssetData, o.MakerAssetData
	assert.NotEqual(t, o.Hash(), swapped.Hash())
}

func TestStatusAt(t *testing.T) {
	left, _ := testutil.Pair()

	tests := []struct {
		name   string
		make   uint64
		take   uint64
		expiry uint64
		filled uint64
		now    uint64
		want   order.Status
	}{
		{"fillable", 10, 20, 0, 0, 100, order.StatusFillable},
		{"partially filled", 10, 20, 0, 19, 100, order.StatusFillable},
		{"fully filled", 10, 20, 0, 20, 100, order.StatusFullyFilled},
		{"expired", 10, 20, 50, 0, 50, order.StatusExpired},
		{"not yet expired", 10, 20, 50, 0, 49, order.StatusFillable},
		{"zero maker amount", 0, 20, 0, 0, 0, order.StatusInvalidMakerAssetAmount},
		{"zero taker amount", 10, 0, 0, 0, 0, order.StatusInvalidTakerAssetAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := left.NewOrder(testutil.U(tt.make), testutil.U(tt.take))
			o.ExpirationTimeSeconds = tt.expiry
			assert.Equal(t, tt.want, o.StatusAt(testutil.U(tt.filled), tt.now))
		})
	}
}

func TestIsComplementary(t *testing.T) {
	left, right := testutil.Pair()
	l := left.NewOrder(testutil.U(1), testutil.U(1))
	r := right.NewOrder(testutil.U(1), testutil.U(1))

	assert.True(t, order.IsComplementary(l, r))
	assert.True(t, order.IsComplementary(r, l))
	assert.False(t, order.IsComplementary(l, l))
}

func TestRemaining(t *testing.T) {
	left, _ := testutil.Pair()
	o := left.NewOrder(testutil.U(10), testutil.U(20))

	assert.Equal(t, uint64(20), o.Remaining(nil).Uint64())
	assert.Equal(t, uint64(5), o.Remaining(testutil.U(15)).Uint64())
	assert.True(t, o.Remaining(testutil.U(25)).IsZero())
}
