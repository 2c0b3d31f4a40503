package main

import (
	"fmt"
	"heapstore/pkg/database"
	"io"

	"github.com/olekukonko/tablewriter"
)

func renderResult(w io.Writer, res database.QueryResult) {
	if len(res.Columns) > 0 {
		tw := tablewriter.NewWriter(w)
		tw.SetAutoFormatHeaders(false)
		tw.SetHeader(res.Columns)
		tw.AppendBulk(res.Rows)
		tw.Render()
	}
	fmt.Fprintln(w, res.Message)
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader(header)
	tw.AppendBulk(rows)
	tw.Render()
}
