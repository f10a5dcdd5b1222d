package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/veil-sh/veil/internal/db"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
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

// formatEpoch renders a unix timestamp for table output.
func formatEpoch(sec int64) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).Format("2006-01-02 15:04")
}

// truncate shortens long values (hashes, notes) for table cells.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func projectTable(projects []db.Project) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			truncate(p.Notes, 40),
			formatEpoch(p.CreatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Notes", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func mappingTable(mappings []db.Mapping) string {
	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []string{
			m.Pseudonym,
			string(m.Category),
			m.OriginalValue,
			formatEpoch(m.CreatedAt),
		})
	}
	return renderTable(
		[]string{"Pseudonym", "Category", "Original", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func fileTable(files []db.ProjectFile) string {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		obscured := ""
		if f.LastObscuredPath != nil {
			obscured = *f.LastObscuredPath
		}
		rows = append(rows, []string{
			f.DisplayName,
			obscured,
			formatEpoch(f.LastUsedAt),
		})
	}
	return renderTable(
		[]string{"File", "Last obscured", "Last used"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	)
}

func historyTable(entries []db.HistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.RunID,
			truncate(e.InputHash, 12),
			truncate(e.OutputHash, 12),
			formatEpoch(e.CreatedAt),
		})
	}
	return renderTable(
		[]string{"Run", "Input", "Output", "When"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
