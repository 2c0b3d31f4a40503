// Package workload drives concurrent transactions against one table to
// exercise page locking, lock upgrades and NO-STEAL eviction under load.
package workload

import (
	"context"
	"errors"
	"fmt"
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/database"
	"heapstore/pkg/execution/query"
	"heapstore/pkg/iterator"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Options struct {
	Table        string
	Workers      int
	Transactions int // per worker
	RowsPerTx    int
	// ReadPercent is the share of transactions that only scan, 0-100.
	ReadPercent int
	MaxAttempts int
	Seed        uint64
}

func DefaultOptions(table string) Options {
	return Options{
		Table:        table,
		Workers:      4,
		Transactions: 25,
		RowsPerTx:    3,
		ReadPercent:  20,
		MaxAttempts:  50,
	}
}

func (o Options) validate() error {
	switch {
	case o.Table == "":
		return errors.New("workload: table must be set")
	case o.Workers < 1:
		return fmt.Errorf("workload: workers must be positive, got %d", o.Workers)
	case o.Transactions < 0 || o.RowsPerTx < 1:
		return fmt.Errorf("workload: invalid transaction shape %d x %d", o.Transactions, o.RowsPerTx)
	case o.ReadPercent < 0 || o.ReadPercent > 100:
		return fmt.Errorf("workload: read percent out of range: %d", o.ReadPercent)
	}
	return nil
}

// Report summarizes a finished run. Attempts counts every begun
// transaction, so Attempts - Committed - Failed is the number of retries.
type Report struct {
	Committed    int64
	Failed       int64
	Attempts     int64
	RowsInserted int64
	RowsScanned  int64
	InitialRows  int
	FinalRows    int
	Elapsed      time.Duration
}

func (r Report) Retries() int64 {
	return r.Attempts - r.Committed - r.Failed
}

// Consistent reports whether the table holds exactly the rows present
// before the run plus those inserted by committed transactions.
func (r Report) Consistent() bool {
	return r.FinalRows == r.InitialRows+int(r.RowsInserted)
}

type runner struct {
	db      *database.Database
	opts    Options
	tableID primitives.TableID
	td      *tuple.TupleDescription

	committed, failed, attempts atomic.Int64
	inserted, scanned           atomic.Int64
}

// Run executes the workload and waits for every worker. Transactions that
// exhaust their retries are counted as failed; the run itself only errors
// on setup problems, a non-retryable failure, or ctx cancellation.
func Run(ctx context.Context, db *database.Database, opts Options) (Report, error) {
	if err := opts.validate(); err != nil {
		return Report{}, err
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	tableID, err := db.Catalog().GetTableID(opts.Table)
	if err != nil {
		return Report{}, err
	}
	td, err := db.Catalog().GetTupleDesc(tableID)
	if err != nil {
		return Report{}, err
	}

	r := &runner{db: db, opts: opts, tableID: tableID, td: td}
	initial, err := r.countRows()
	if err != nil {
		return Report{}, err
	}

	logger := logging.WithComponent("workload")
	logger.Info("workload starting",
		"table", opts.Table,
		"workers", opts.Workers,
		"transactions", opts.Transactions,
		"rows_per_tx", opts.RowsPerTx)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := range opts.Workers {
		g.Go(func() error {
			return r.worker(gctx, w)
		})
	}
	runErr := g.Wait()
	elapsed := time.Since(start)

	final, err := r.countRows()
	if err != nil {
		return Report{}, errors.Join(runErr, err)
	}

	rep := Report{
		Committed:    r.committed.Load(),
		Failed:       r.failed.Load(),
		Attempts:     r.attempts.Load(),
		RowsInserted: r.inserted.Load(),
		RowsScanned:  r.scanned.Load(),
		InitialRows:  initial,
		FinalRows:    final,
		Elapsed:      elapsed,
	}
	logger.Info("workload finished",
		"committed", rep.Committed,
		"failed", rep.Failed,
		"retries", rep.Retries(),
		"elapsed", elapsed)
	return rep, runErr
}

func (r *runner) worker(ctx context.Context, w int) error {
	rng := rand.New(rand.NewPCG(r.opts.Seed, uint64(w)))

	for i := range r.opts.Transactions {
		if err := ctx.Err(); err != nil {
			return err
		}

		readOnly := rng.IntN(100) < r.opts.ReadPercent
		rows := r.makeRows(rng, w, i)

		var scanned int
		attempts, err := transaction.Run(r.db.Store(), r.opts.MaxAttempts, func(tid *primitives.TransactionID) error {
			if readOnly {
				n, err := r.scan(tid)
				scanned = n
				return err
			}
			return r.insert(tid, rows)
		})
		r.attempts.Add(int64(attempts))

		switch {
		case err == nil:
			r.committed.Add(1)
			if readOnly {
				r.scanned.Add(int64(scanned))
			} else {
				r.inserted.Add(int64(len(rows)))
			}
		case errors.Is(err, transaction.ErrGaveUp):
			r.failed.Add(1)
			logging.WithComponent("workload").Debug("transaction gave up",
				"worker", w, "attempts", attempts, "error", err)
		default:
			return fmt.Errorf("worker %d: %w", w, err)
		}
	}
	return nil
}

func (r *runner) makeRows(rng *rand.Rand, w, i int) []*tuple.Tuple {
	rows := make([]*tuple.Tuple, r.opts.RowsPerTx)
	for k := range rows {
		b := tuple.NewBuilder(r.td)
		for col := range r.td.NumFields() {
			t, _ := r.td.TypeAtIndex(col)
			switch t {
			case types.StringType:
				b.AddString(fmt.Sprintf("w%d-t%d-r%d", w, i, k))
			default:
				b.AddInt(rng.Int32N(1 << 20))
			}
		}
		rows[k] = b.MustBuild()
	}
	return rows
}

func (r *runner) insert(tid *primitives.TransactionID, rows []*tuple.Tuple) error {
	child := iterator.NewTupleSliceIterator(r.td, rows)
	ins, err := query.NewInsert(tid, child, r.tableID, r.db.Store())
	if err != nil {
		return err
	}
	if err := ins.Open(); err != nil {
		return err
	}
	defer ins.Close()
	_, err = iterator.Count(ins)
	return err
}

func (r *runner) scan(tid *primitives.TransactionID) (int, error) {
	scan, err := query.NewSeqScan(tid, r.tableID, r.db.Catalog(), r.db.Store())
	if err != nil {
		return 0, err
	}
	if err := scan.Open(); err != nil {
		return 0, err
	}
	defer scan.Close()
	return iterator.Count(scan)
}

func (r *runner) countRows() (int, error) {
	var n int
	err := r.db.Update(func(tid *primitives.TransactionID) error {
		var err error
		n, err = r.scan(tid)
		return err
	})
	return n, err
}
