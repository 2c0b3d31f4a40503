package main

import (
	"context"
	"fmt"
	"heapstore/pkg/database"
	"heapstore/pkg/workload"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	opts := workload.DefaultOptions("")
	var timeout time.Duration

	stressCmd := &cobra.Command{
		Use:   "stress <table>",
		Short: "Run concurrent insert and scan transactions against a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Table = args[0]
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			return withDB(func(db *database.Database) error {
				rep, err := workload.Run(ctx, db, opts)
				if err != nil {
					return err
				}
				st := db.Store().Stats()
				renderTable(cmd.OutOrStdout(), []string{"metric", "value"}, [][]string{
					{"committed", fmt.Sprint(rep.Committed)},
					{"failed", fmt.Sprint(rep.Failed)},
					{"retries", fmt.Sprint(rep.Retries())},
					{"rows inserted", fmt.Sprint(rep.RowsInserted)},
					{"rows scanned", fmt.Sprint(rep.RowsScanned)},
					{"rows before/after", fmt.Sprintf("%d/%d", rep.InitialRows, rep.FinalRows)},
					{"cache hits/misses", fmt.Sprintf("%d/%d", st.Hits, st.Misses)},
					{"evictions", fmt.Sprint(st.Evictions)},
					{"elapsed", rep.Elapsed.Round(time.Millisecond).String()},
				})
				if !rep.Consistent() {
					return fmt.Errorf("row count mismatch: %d before, %d inserted, %d after",
						rep.InitialRows, rep.RowsInserted, rep.FinalRows)
				}
				return nil
			})
		},
	}

	fs := stressCmd.Flags()
	fs.IntVar(&opts.Workers, "workers", opts.Workers, "concurrent workers")
	fs.IntVar(&opts.Transactions, "transactions", opts.Transactions, "transactions per worker")
	fs.IntVar(&opts.RowsPerTx, "rows", opts.RowsPerTx, "rows inserted per write transaction")
	fs.IntVar(&opts.ReadPercent, "read-percent", opts.ReadPercent, "share of scan-only transactions")
	fs.IntVar(&opts.MaxAttempts, "attempts", opts.MaxAttempts, "attempts per transaction before giving up")
	fs.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	fs.DurationVar(&timeout, "timeout", 0, "stop the run after this long")

	rootCmd.AddCommand(stressCmd)
}
