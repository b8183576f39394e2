package main

import (
	"slices"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/koloyyee/java-sorter/internal/sorter"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(title string, headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Title.Format = text.FormatDefault
	if title != "" {
		tw.SetTitle(title)
	}

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderSummary renders the end-of-run counters, then one row per
// destination directory that received files.
func renderSummary(runID string, elapsed time.Duration, stats sorter.Stats) string {
	count := func(n int64) string { return strconv.FormatInt(n, 10) }

	rows := [][]string{
		{"batches", count(stats.Batches)},
		{"events", count(stats.Events)},
		{"moved", count(stats.Moved)},
		{"failed", count(stats.Failed)},
		{"skipped", count(stats.Skipped)},
		{"no rule", count(stats.Unmatched)},
		{"overflow", count(stats.Overflow)},
		{"unknown token", count(stats.Unknown)},
	}

	dirs := make([]string, 0, len(stats.ByDestination))
	for dir := range stats.ByDestination {
		dirs = append(dirs, dir)
	}
	slices.Sort(dirs)
	for _, dir := range dirs {
		rows = append(rows, []string{"→ " + dir, count(stats.ByDestination[dir])})
	}

	title := runID + " (" + elapsed.Round(time.Second).String() + ")"
	return renderTable(title, []string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
