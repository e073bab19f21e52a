package replay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/curve"
	"cpamm/internal/errs"
	"cpamm/internal/model"
	"cpamm/internal/pool"
	"cpamm/internal/storage"
)

// Engine is the subset of pool operations a script can invoke.
type Engine interface {
	Swap(ctx context.Context, req pool.SwapRequest) (pool.SwapResult, error)
	Withdraw(ctx context.Context, req pool.WithdrawRequest) (pool.WithdrawResult, error)
	Deposit(ctx context.Context, req pool.DepositRequest) (pool.DepositResult, error)
	Lock(ctx context.Context, pool, admin common.Address) error
	Unlock(ctx context.Context, pool, admin common.Address) error
}

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	Script            string
	FromLine          uint64
	ToLine            uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Summary counts the outcomes of one Run.
type Summary struct {
	Applied  int
	Rejected int
	Skipped  int
}

// Runner applies a JSONL operation script through the engine and journals
// every outcome.
type Runner struct {
	cfg        RunConfig
	engine     Engine
	journal    storage.Journal
	logger     *zap.Logger
	checkpoint *CheckpointStore
	retry      retrier
	now        func() time.Time
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, engine Engine, journal storage.Journal, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		engine:     engine,
		journal:    journal,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		retry:      newRetrier(cfg.MaxRetries, cfg.RetryBackoff, logger),
		now:        time.Now,
	}
}

// Run executes the replay loop.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if r.engine == nil {
		return summary, fmt.Errorf("engine is nil")
	}
	if r.journal == nil {
		return summary, fmt.Errorf("journal is nil")
	}
	if r.cfg.BatchSize == 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}

	lines, err := readScript(r.cfg.Script)
	if err != nil {
		return summary, err
	}
	if len(lines) == 0 {
		r.logger.Info("script is empty", zap.String("script", r.cfg.Script))
		return summary, nil
	}

	from := r.cfg.FromLine
	if from == 0 {
		from = 1
	}
	to := uint64(len(lines))
	if r.cfg.ToLine != 0 && r.cfg.ToLine < to {
		to = r.cfg.ToLine
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return summary, err
	}
	if ok && cp.Script == r.cfg.Script && cp.LastProcessedLine >= from {
		from = cp.LastProcessedLine + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedLine), zap.Uint64("from", from))
	}

	if from > to {
		r.logger.Info("nothing to replay", zap.Uint64("from", from), zap.Uint64("to", to))
		return summary, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, lineRange := range ranges {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		records := make([]model.JournalRecord, 0, lineRange.Len())
		var failures []model.OperationError
		for n := lineRange.From; n <= lineRange.To; n++ {
			raw := lines[n-1]
			if len(raw) == 0 {
				summary.Skipped++
				continue
			}

			record, failure, err := r.replayLine(ctx, n, raw)
			if err != nil {
				return summary, lineError(n, err)
			}
			if failure != nil {
				failures = append(failures, *failure)
				summary.Rejected++
				continue
			}
			records = append(records, record)
			summary.Applied++
		}

		if err := r.journal.PutRecords(records); err != nil {
			return summary, fmt.Errorf("journal records: %w", err)
		}
		if err := r.journal.PutErrors(failures); err != nil {
			return summary, fmt.Errorf("journal errors: %w", err)
		}
		if err := r.checkpoint.Save(r.cfg.Script, lineRange.To); err != nil {
			return summary, err
		}

		r.logger.Info("batch complete",
			zap.Int("applied", len(records)),
			zap.Int("rejected", len(failures)),
			zap.Uint64("from", lineRange.From),
			zap.Uint64("to", lineRange.To),
		)
	}

	r.logger.Info("replay complete",
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// replayLine returns either a journal record or a rejection. A non-nil error
// means the ledger itself failed and the run must stop.
func (r *Runner) replayLine(ctx context.Context, n uint64, raw []byte) (model.JournalRecord, *model.OperationError, error) {
	op, err := decodeOperation(raw)
	if err != nil {
		return model.JournalRecord{}, r.rejection(n, model.Operation{}, err), nil
	}

	var data interface{}
	err = r.retry.do(ctx, n, func(ctx context.Context) error {
		var err error
		data, err = r.apply(ctx, op)
		return err
	})
	if err != nil {
		if isFatal(err) {
			return model.JournalRecord{}, nil, err
		}
		return model.JournalRecord{}, r.rejection(n, op, err), nil
	}

	now := r.now().UTC()
	ts := op.Timestamp
	if ts == 0 {
		ts = uint64(now.Unix())
	}
	return model.JournalRecord{
		Sequence:   n,
		Pool:       poolLabel(op),
		Operation:  op.Op,
		Timestamp:  ts,
		Data:       data,
		RecordedAt: now.Format(time.RFC3339Nano),
	}, nil, nil
}

func (r *Runner) rejection(n uint64, op model.Operation, err error) *model.OperationError {
	r.logger.Debug("operation rejected", zap.Uint64("line", n), zap.String("op", op.Op), zap.Error(err))
	return &model.OperationError{
		Sequence:  n,
		Pool:      poolLabel(op),
		Operation: op.Op,
		User:      op.User,
		Code:      string(errs.CodeOf(err)),
		Error:     err.Error(),
	}
}

func (r *Runner) apply(ctx context.Context, op model.Operation) (interface{}, error) {
	poolAddr, err := ParseAddress("pool", op.Pool)
	if err != nil {
		return nil, err
	}
	user, err := ParseAddress("user", op.User)
	if err != nil {
		return nil, err
	}

	switch op.Op {
	case model.OpSwap:
		side, err := curve.ParseSide(op.Side)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInvalidRequest, "parse side", err)
		}
		res, err := r.engine.Swap(ctx, pool.SwapRequest{
			Pool:         poolAddr,
			User:         user,
			Side:         side,
			AmountIn:     op.AmountIn,
			MinAmountOut: op.MinOut,
		})
		if err != nil {
			return nil, err
		}
		return res.EventData(op.MinOut), nil
	case model.OpWithdraw:
		res, err := r.engine.Withdraw(ctx, pool.WithdrawRequest{
			Pool:   poolAddr,
			User:   user,
			Shares: op.Shares,
			MinX:   op.MinX,
			MinY:   op.MinY,
		})
		if err != nil {
			return nil, err
		}
		return res.EventData(op.MinX, op.MinY), nil
	case model.OpDeposit:
		res, err := r.engine.Deposit(ctx, pool.DepositRequest{
			Pool:   poolAddr,
			User:   user,
			Shares: op.Shares,
			MaxX:   op.MaxX,
			MaxY:   op.MaxY,
		})
		if err != nil {
			return nil, err
		}
		return res.EventData(), nil
	case model.OpLock, model.OpUnlock:
		locked := op.Op == model.OpLock
		toggle := r.engine.Unlock
		if locked {
			toggle = r.engine.Lock
		}
		if err := toggle(ctx, poolAddr, user); err != nil {
			return nil, err
		}
		return model.LockEventData{Admin: user.Hex(), Locked: locked}, nil
	default:
		return nil, errs.WithMetadata(errs.CodeInvalidRequest, "unknown operation", map[string]string{"op": op.Op})
	}
}

// isFatal separates ledger failures from rejected operations.
func isFatal(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch errs.CodeOf(err) {
	case errs.CodeUnknown, errs.CodeConflict:
		return true
	default:
		return false
	}
}

func readScript(path string) ([][]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("script path is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var lines [][]byte
	for scanner.Scan() {
		lines = append(lines, bytes.Clone(bytes.TrimSpace(scanner.Bytes())))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan script: %w", err)
	}
	return lines, nil
}
