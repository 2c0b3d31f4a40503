package transaction

import (
	"errors"
	"fmt"
	"heapstore/pkg/dberror"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
	"math/rand/v2"
	"time"
)

// ErrGaveUp wraps the last error of a transaction that was still failing
// with a retryable error after its final attempt.
var ErrGaveUp = errors.New("transaction gave up")

// Completer finishes a transaction by committing or aborting it.
type Completer interface {
	TransactionComplete(tid *primitives.TransactionID, commit bool) error
}

// Run executes fn in a fresh transaction and commits it. When fn fails the
// transaction is aborted; if the failure is a lock timeout or a full buffer
// pool, fn is retried in a new transaction, up to maxAttempts runs in total.
// It returns the number of attempts made.
func Run(completer Completer, maxAttempts int, fn func(tid *primitives.TransactionID) error) (int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tid := primitives.NewTransactionID()

		err := fn(tid)
		if err == nil {
			if err := completer.TransactionComplete(tid, true); err != nil {
				return attempt, fmt.Errorf("commit of %s failed: %w", tid, err)
			}
			return attempt, nil
		}

		if abortErr := completer.TransactionComplete(tid, false); abortErr != nil {
			return attempt, errors.Join(err, fmt.Errorf("abort of %s failed: %w", tid, abortErr))
		}

		lastErr = err
		if !dberror.IsRetryable(err) {
			return attempt, err
		}

		logging.WithTx(tid).Debug("retrying transaction", "attempt", attempt, "error", err)
		time.Sleep(backoff(attempt))
	}
	return maxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrGaveUp, maxAttempts, lastErr)
}

// backoff spreads retries so transactions that timed out on each other do
// not collide again in lockstep.
func backoff(attempt int) time.Duration {
	base := time.Duration(attempt) * 5 * time.Millisecond
	return base + time.Duration(rand.Int64N(int64(base)))
}
