// Package ledger is an in-memory host for order fill state. It serves the
// matcher's FillStateReader and applies the results of a match or batch
// atomically.
package ledger

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_matching/internal/fraction"
	"github.com/Aidin1998/pincex_matching/internal/order"
	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
)

// entry is the fill state of one order. Its mutex serializes writers of
// that order only.
type entry struct {
	mu        sync.Mutex
	order     *order.Order
	filled    *uint256.Int
	cancelled bool
}

// Ledger tracks registered orders, their filled taker amounts, explicit
// cancellations and per-maker cancellation epochs.
type Ledger struct {
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[common.Hash]*entry
	epochs  map[common.Address]*uint256.Int

	now       func() time.Time
	clockSkew time.Duration
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the wall clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithClockSkew treats orders as expired skew before their expiry time.
func WithClockSkew(skew time.Duration) Option {
	return func(l *Ledger) {
		l.clockSkew = skew
	}
}

// New returns an empty ledger.
func New(logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		logger:  logger.Named("ledger"),
		entries: make(map[common.Hash]*entry),
		epochs:  make(map[common.Address]*uint256.Int),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register adds o with zero fill state if it is not known yet and returns
// its hash.
func (l *Ledger) Register(o *order.Order) common.Hash {
	hash := o.Hash()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[hash]; !ok {
		l.entries[hash] = &entry{order: o, filled: new(uint256.Int)}
	}
	return hash
}

func (l *Ledger) get(hash common.Hash) (*entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[hash]
	return e, ok
}

// FilledAmount returns the taker amount filled so far. Unknown orders have
// filled nothing.
func (l *Ledger) FilledAmount(hash common.Hash) (*uint256.Int, error) {
	e, ok := l.get(hash)
	if !ok {
		return new(uint256.Int), nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filled.Clone(), nil
}

// IsFillable reports whether a registered order can still be filled.
func (l *Ledger) IsFillable(hash common.Hash) bool {
	return l.Status(hash) == order.StatusFillable
}

// Status returns the current status of the order. Unregistered orders are
// reported as StatusInvalid.
func (l *Ledger) Status(hash common.Hash) order.Status {
	e, ok := l.get(hash)
	if !ok {
		return order.StatusInvalid
	}
	cancelled := l.belowEpoch(e.order)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelled || cancelled {
		if s := e.order.Validate(); s != order.StatusFillable {
			return s
		}
		return order.StatusCancelled
	}
	return e.order.StatusAt(e.filled, l.nowSeconds())
}

func (l *Ledger) nowSeconds() uint64 {
	now := l.now().Add(l.clockSkew).Unix()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

func (l *Ledger) belowEpoch(o *order.Order) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	epoch, ok := l.epochs[o.MakerAddress]
	return ok && order.Amount(o.Salt).Lt(epoch)
}

// Cancel marks a registered order as cancelled. Cancelling twice is a no-op.
func (l *Ledger) Cancel(hash common.Hash) error {
	e, ok := l.get(hash)
	if !ok {
		return apperrors.ErrOrderNotFillable.Explain("cancel of unknown order %s", hash.Hex())
	}
	e.mu.Lock()
	e.cancelled = true
	e.mu.Unlock()

	l.logger.Info("order cancelled", zap.String("order_hash", hash.Hex()))
	return nil
}

// CancelUpTo cancels every order of maker whose salt is below epoch,
// including orders registered later. Epochs only move forward.
func (l *Ledger) CancelUpTo(maker common.Address, epoch *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.epochs[maker]; ok && !epoch.Gt(current) {
		return apperrors.ErrInvalidFillUpdate.Explain("epoch %s does not exceed current epoch %s for %s", epoch.Dec(), current.Dec(), maker.Hex())
	}
	l.epochs[maker] = epoch.Clone()

	l.logger.Info("orders cancelled up to epoch", zap.String("maker", maker.Hex()), zap.String("epoch", epoch.Dec()))
	return nil
}

// Delta increases the filled taker amount of an order. Base, when set, is
// the filled amount the delta was computed from; the commit fails if the
// order has moved since.
type Delta struct {
	Hash   common.Hash
	Base   *uint256.Int
	Amount *uint256.Int
}

// Commit applies deltas all or nothing. Deltas for the same order are
// summed first. Every touched order must be registered, unchanged since its
// Base was read and not filled beyond its taker amount.
func (l *Ledger) Commit(deltas []Delta) error {
	totals := make(map[common.Hash]*uint256.Int, len(deltas))
	bases := make(map[common.Hash]*uint256.Int, len(deltas))
	for _, d := range deltas {
		if d.Base != nil {
			if b, ok := bases[d.Hash]; ok && !b.Eq(d.Base) {
				return apperrors.ErrInvalidFillUpdate.Explain("conflicting base amounts for order %s", d.Hash.Hex())
			}
			bases[d.Hash] = d.Base
		}
		sum, ok := totals[d.Hash]
		if !ok {
			sum = new(uint256.Int)
		}
		next, err := fraction.Add(sum, order.Amount(d.Amount))
		if err != nil {
			return err
		}
		totals[d.Hash] = next
	}

	hashes := make([]common.Hash, 0, len(totals))
	for h := range totals {
		hashes = append(hashes, h)
	}
	// fixed lock order across concurrent commits
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})

	locked := make([]*entry, 0, len(hashes))
	defer func() {
		for _, e := range locked {
			e.mu.Unlock()
		}
	}()

	next := make([]*uint256.Int, len(hashes))
	for i, h := range hashes {
		e, ok := l.get(h)
		if !ok {
			return apperrors.ErrInvalidFillUpdate.Explain("fill for unknown order %s", h.Hex())
		}
		e.mu.Lock()
		locked = append(locked, e)

		if e.cancelled || l.belowEpoch(e.order) {
			return apperrors.ErrOrderNotFillable.Explain("order %s was cancelled", h.Hex())
		}
		if base, ok := bases[h]; ok && !e.filled.Eq(base) {
			return apperrors.ErrInvalidFillUpdate.Explain("order %s filled %s, expected %s", h.Hex(), e.filled.Dec(), base.Dec())
		}
		filled, err := fraction.Add(e.filled, totals[h])
		if err != nil {
			return err
		}
		if filled.Gt(e.order.TakerAssetAmount) {
			return apperrors.ErrInvalidFillUpdate.Explain("order %s would be filled %s of %s", h.Hex(), filled.Dec(), e.order.TakerAssetAmount.Dec())
		}
		next[i] = filled
	}

	for i, e := range locked {
		e.filled = next[i]
	}
	l.logger.Debug("fills committed", zap.Int("orders", len(hashes)))
	return nil
}
