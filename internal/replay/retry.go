package replay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cpamm/internal/errs"
)

const maxRetryDelay = 5 * time.Second

// retrier resubmits a unit of work while the ledger reports a retryable
// code. Domain rejections return on the first attempt.
type retrier struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

func newRetrier(maxRetries int, baseDelay time.Duration, logger *zap.Logger) retrier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return retrier{maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

// do runs fn until it succeeds, fails with a non-retryable code, or the
// retry budget is spent. Backoff doubles up to maxRetryDelay.
func (r retrier) do(ctx context.Context, line uint64, fn func(context.Context) error) error {
	delay := r.baseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		code := errs.CodeOf(err)
		if !code.Retryable() {
			return err
		}
		if attempt > r.maxRetries {
			r.logger.Warn("retries exhausted",
				zap.Uint64("line", line),
				zap.Int("attempts", attempt),
				zap.String("code", string(code)),
				zap.Error(err),
			)
			return err
		}

		r.logger.Info("ledger conflict, retrying",
			zap.Uint64("line", line),
			zap.Int("attempt", attempt),
			zap.String("code", string(code)),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = min(delay*2, maxRetryDelay)
	}
}
