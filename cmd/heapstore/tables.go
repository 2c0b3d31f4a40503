package main

import (
	"fmt"
	"heapstore/pkg/database"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var whereOp = "="

func init() {
	deleteCmd := &cobra.Command{
		Use:   "delete <table> <column> <value>",
		Short: "Delete the rows whose column matches value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *database.Database) error {
				res, err := db.Delete(args[0], &database.Condition{Column: args[1], Op: whereOp, Value: args[2]})
				if err != nil {
					return err
				}
				renderResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	deleteCmd.Flags().StringVar(&whereOp, "op", whereOp, "comparison: =, !=, <, <=, >, >=")

	var where []string
	scanCmd := &cobra.Command{
		Use:   "scan <table>",
		Short: "Print the rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cond *database.Condition
			if len(where) > 0 {
				if len(where) != 3 {
					return fmt.Errorf("--where takes column,op,value")
				}
				cond = &database.Condition{Column: where[0], Op: where[1], Value: where[2]}
			}
			return withDB(func(db *database.Database) error {
				res, err := db.Select(args[0], cond)
				if err != nil {
					return err
				}
				renderResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	scanCmd.Flags().StringSliceVar(&where, "where", nil, "filter as `column,op,value`")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the tables named in the schema file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := os.Stat(cfg.SchemaFile); err != nil {
					return fmt.Errorf("schema file: %w", err)
				}
				return withDB(func(db *database.Database) error {
					rows := [][]string{}
					for _, name := range db.Catalog().TableNames() {
						id, _ := db.Catalog().GetTableID(name)
						td, _ := db.Catalog().GetTupleDesc(id)
						pk, _ := db.Catalog().GetPrimaryKey(id)
						rows = append(rows, []string{name, td.String(), pk, string(db.Catalog().TablePath(name))})
					}
					renderTable(cmd.OutOrStdout(), []string{"table", "columns", "primary key", "file"}, rows)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "insert <table> <value>...",
			Short: "Insert one row, given as one value per column",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(func(db *database.Database) error {
					res, err := db.Insert(args[0], args[1:])
					if err != nil {
						return err
					}
					renderResult(cmd.OutOrStdout(), res)
					return nil
				})
			},
		},
		deleteCmd,
		scanCmd,
		&cobra.Command{
			Use:   "agg <table> <op> <column> [group-column]",
			Short: "Compute MIN, MAX, SUM, AVG or COUNT over a column",
			Args:  cobra.RangeArgs(3, 4),
			RunE: func(cmd *cobra.Command, args []string) error {
				groupBy := ""
				if len(args) == 4 {
					groupBy = args[3]
				}
				return withDB(func(db *database.Database) error {
					res, err := db.Aggregate(args[0], args[1], args[2], groupBy)
					if err != nil {
						return err
					}
					renderResult(cmd.OutOrStdout(), res)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "join <left> <right> <left-column> <right-column>",
			Short: "Equi-join two tables",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(func(db *database.Database) error {
					res, err := db.Join(args[0], args[1], args[2], args[3])
					if err != nil {
						return err
					}
					renderResult(cmd.OutOrStdout(), res)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "inspect <table>",
			Short: "Show slot usage and a digest for every page on disk",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(func(db *database.Database) error {
					pages, err := db.Inspect(args[0])
					if err != nil {
						return err
					}
					rows := make([][]string, 0, len(pages))
					for _, p := range pages {
						rows = append(rows, []string{
							strconv.FormatUint(uint64(p.PageNo), 10),
							strconv.Itoa(p.UsedSlots),
							strconv.Itoa(p.NumSlots),
							p.Digest[:16],
						})
					}
					renderTable(cmd.OutOrStdout(), []string{"page", "used", "slots", "blake3"}, rows)
					fmt.Fprintf(cmd.OutOrStdout(), "%d page(s)\n", len(pages))
					return nil
				})
			},
		},
	)
}
