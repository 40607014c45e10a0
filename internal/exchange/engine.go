// Package exchange hosts the matching core: it reads fill state from the
// ledger, runs a match or batch, plans settlement and commits the new fill
// state in one step.
package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_matching/internal/batch"
	"github.com/Aidin1998/pincex_matching/internal/config"
	"github.com/Aidin1998/pincex_matching/internal/fill"
	"github.com/Aidin1998/pincex_matching/internal/ledger"
	"github.com/Aidin1998/pincex_matching/internal/matching"
	"github.com/Aidin1998/pincex_matching/internal/order"
	"github.com/Aidin1998/pincex_matching/internal/settlement"
	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
	"github.com/Aidin1998/pincex_matching/pkg/metrics"
)

const (
	opMatch = "match"
	opBatch = "batch"
)

// Engine executes matches against a ledger. Matches are serialized: one
// match or batch reads, computes and commits before the next starts.
type Engine struct {
	logger  *zap.Logger
	ledger  *ledger.Ledger
	matcher *matching.Matcher
	runner  *batch.Runner
	cfg     config.Matching

	mutex sync.Mutex
}

// Receipt describes one committed match.
type Receipt struct {
	ID         uuid.UUID           `json:"id"`
	LeftHash   common.Hash         `json:"leftOrderHash"`
	RightHash  common.Hash         `json:"rightOrderHash"`
	Results    fill.MatchedResults `json:"results"`
	Settlement settlement.Plan     `json:"settlement"`
}

// BatchRequest is a batch submitted by a taker. Pairs are optional; when
// empty the configured sequencer chooses them.
type BatchRequest struct {
	LeftOrders      []*order.Order
	RightOrders     []*order.Order
	LeftSignatures  []hexutil.Bytes
	RightSignatures []hexutil.Bytes
	Pairs           []batch.Pair
	Taker           common.Address
}

// BatchReceipt describes one committed batch.
type BatchReceipt struct {
	ID          uuid.UUID                `json:"id"`
	Results     fill.BatchMatchedResults `json:"results"`
	Matches     []batch.Match            `json:"matches"`
	Settlements []settlement.Plan        `json:"settlements"`
}

// NewEngine returns an engine matching with cfg against l.
func NewEngine(logger *zap.Logger, l *ledger.Ledger, cfg config.Matching) *Engine {
	e := &Engine{
		logger: logger.Named("exchange"),
		ledger: l,
		cfg:    cfg,
	}
	e.matcher = matching.New(
		matching.WithTolerance(cfg.RoundingTolerance),
		matching.WithRoundingObserver(e.observeRounding),
	)
	e.runner = batch.NewRunner(e.matcher)
	return e
}

func (e *Engine) observeRounding(r matching.Rounding) {
	direction := "floor"
	if r.Ceil {
		direction = "ceil"
	}
	metrics.RoundingErrors.WithLabelValues(string(r.Side), direction).Inc()
	e.logger.Debug("Rounding above tolerance", zap.String("side", string(r.Side)), zap.String("direction", direction))
}

func (e *Engine) strategy() string {
	if e.cfg.MaximalFill {
		return "maximal"
	}
	return "default"
}

// MatchOrders matches left against right on behalf of taker and commits
// the result.
func (e *Engine) MatchOrders(ctx context.Context, left, right *order.Order, taker common.Address) (*Receipt, error) {
	start := time.Now()
	defer func() {
		metrics.MatchLatency.WithLabelValues(opMatch).Observe(time.Since(start).Seconds())
	}()

	receipt, err := e.matchOrders(ctx, left, right, taker)
	if err != nil {
		e.fail(opMatch, err)
		return nil, err
	}

	metrics.MatchesTotal.WithLabelValues(e.strategy()).Inc()
	metrics.ElidedTransfers.Add(float64(receipt.Settlement.Elided()))
	e.logger.Info("Orders matched",
		zap.String("match_id", receipt.ID.String()),
		zap.String("left", receipt.LeftHash.Hex()),
		zap.String("right", receipt.RightHash.Hex()),
		zap.String("left_maker_sold", receipt.Results.Left.MakerAssetFilledAmount.Dec()),
		zap.String("right_maker_sold", receipt.Results.Right.MakerAssetFilledAmount.Dec()))
	return receipt, nil
}

func (e *Engine) matchOrders(ctx context.Context, left, right *order.Order, taker common.Address) (*Receipt, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	leftHash, rightHash := e.ledger.Register(left), e.ledger.Register(right)

	leftFilled, err := matching.LoadFilled(e.ledger, left)
	if err != nil {
		return nil, err
	}
	rightFilled, err := matching.LoadFilled(e.ledger, right)
	if err != nil {
		return nil, err
	}

	res, err := e.matcher.Match(left, leftFilled, right, rightFilled, e.cfg.MaximalFill)
	if err != nil {
		return nil, err
	}
	res.Left.ProtocolFeePaid = e.protocolFee()
	res.Right.ProtocolFeePaid = e.protocolFee()

	plan, err := settlement.PlanMatch(left, right, taker, res)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = e.ledger.Commit([]ledger.Delta{
		{Hash: leftHash, Base: leftFilled, Amount: res.Left.TakerAssetFilledAmount},
		{Hash: rightHash, Base: rightFilled, Amount: res.Right.TakerAssetFilledAmount},
	})
	if err != nil {
		return nil, err
	}

	return &Receipt{
		ID:         uuid.New(),
		LeftHash:   leftHash,
		RightHash:  rightHash,
		Results:    res,
		Settlement: plan,
	}, nil
}

// BatchMatchOrders matches a batch and commits it only if every pair
// succeeds.
func (e *Engine) BatchMatchOrders(ctx context.Context, req BatchRequest) (*BatchReceipt, error) {
	start := time.Now()
	defer func() {
		metrics.MatchLatency.WithLabelValues(opBatch).Observe(time.Since(start).Seconds())
	}()

	receipt, err := e.batchMatchOrders(ctx, req)
	if err != nil {
		e.fail(opBatch, err)
		return nil, err
	}

	elided := 0
	for _, p := range receipt.Settlements {
		elided += p.Elided()
	}
	metrics.MatchesTotal.WithLabelValues(e.strategy()).Add(float64(len(receipt.Matches)))
	metrics.BatchSize.Observe(float64(len(receipt.Matches)))
	metrics.ElidedTransfers.Add(float64(elided))
	e.logger.Info("Batch matched",
		zap.String("batch_id", receipt.ID.String()),
		zap.Int("pairs", len(receipt.Matches)),
		zap.String("profit_left_maker_asset", receipt.Results.ProfitInLeftMakerAsset.Dec()),
		zap.String("profit_right_maker_asset", receipt.Results.ProfitInRightMakerAsset.Dec()))
	return receipt, nil
}

func (e *Engine) batchMatchOrders(ctx context.Context, req BatchRequest) (*BatchReceipt, error) {
	in := batch.Input{
		LeftOrders:      req.LeftOrders,
		RightOrders:     req.RightOrders,
		LeftSignatures:  req.LeftSignatures,
		RightSignatures: req.RightSignatures,
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	in.Blocked = make(map[common.Hash]order.Status)
	leftHashes, leftFilled, err := e.load(req.LeftOrders, in.Blocked)
	if err != nil {
		return nil, err
	}
	rightHashes, rightFilled, err := e.load(req.RightOrders, in.Blocked)
	if err != nil {
		return nil, err
	}
	in.LeftFilled, in.RightFilled = leftFilled, rightFilled

	seq := batch.NewSequencer(e.cfg.Sequencer, req.Pairs)
	if len(req.Pairs) > 0 {
		seq = batch.NewExplicit(req.Pairs)
	}

	res, err := e.runner.Run(in, seq, e.cfg.MaximalFill)
	if err != nil {
		return nil, err
	}
	if err := e.chargeProtocolFees(&res); err != nil {
		return nil, err
	}

	plans := make([]settlement.Plan, 0, len(res.Matches))
	for _, m := range res.Matches {
		plan, err := settlement.PlanMatch(req.LeftOrders[m.Pair.Left], req.RightOrders[m.Pair.Right], req.Taker, m.Results)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	deltas := make([]ledger.Delta, 0, 2*len(res.Matches))
	for _, m := range res.Matches {
		deltas = append(deltas,
			ledger.Delta{Hash: leftHashes[m.Pair.Left], Base: leftFilled[m.Pair.Left], Amount: m.Results.Left.TakerAssetFilledAmount},
			ledger.Delta{Hash: rightHashes[m.Pair.Right], Base: rightFilled[m.Pair.Right], Amount: m.Results.Right.TakerAssetFilledAmount},
		)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.ledger.Commit(deltas); err != nil {
		return nil, err
	}

	return &BatchReceipt{
		ID:          uuid.New(),
		Results:     res.BatchMatchedResults,
		Matches:     res.Matches,
		Settlements: plans,
	}, nil
}

// load registers orders and reads their filled amounts. Orders the ledger
// reports as not fillable are recorded in blocked with their status, so
// they only fail the batch when a pair touches them.
func (e *Engine) load(orders []*order.Order, blocked map[common.Hash]order.Status) ([]common.Hash, []*uint256.Int, error) {
	hashes := make([]common.Hash, len(orders))
	filled := make([]*uint256.Int, len(orders))
	for i, o := range orders {
		hashes[i] = e.ledger.Register(o)
		if status := e.ledger.Status(hashes[i]); status != order.StatusFillable {
			blocked[hashes[i]] = status
		}
		f, err := e.ledger.FilledAmount(hashes[i])
		if err != nil {
			return nil, nil, err
		}
		filled[i] = f
	}
	return hashes, filled, nil
}

func (e *Engine) protocolFee() *uint256.Int {
	return order.Amount(e.cfg.ProtocolFee).Clone()
}

// chargeProtocolFees sets the configured per-fill protocol fee on every
// match and adds it to the per-order aggregates.
func (e *Engine) chargeProtocolFees(res *batch.Result) error {
	if order.Amount(e.cfg.ProtocolFee).IsZero() {
		return nil
	}
	for i := range res.Matches {
		m := &res.Matches[i]
		m.Results.Left.ProtocolFeePaid = e.protocolFee()
		m.Results.Right.ProtocolFeePaid = e.protocolFee()

		var err error
		charge := fill.Results{ProtocolFeePaid: e.protocolFee()}
		if res.Left[m.Pair.Left], err = res.Left[m.Pair.Left].Add(charge); err != nil {
			return err
		}
		if res.Right[m.Pair.Right], err = res.Right[m.Pair.Right].Add(charge); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) fail(op string, err error) {
	kind := apperrors.KindOf(err)
	metrics.MatchFailures.WithLabelValues(op, kind).Inc()
	e.logger.Warn("Match rejected", zap.String("operation", op), zap.String("kind", kind), zap.Error(err))
}
