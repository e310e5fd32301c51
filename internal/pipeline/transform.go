package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
)

// DailyRow is one date's spend broken down by category.
type DailyRow struct {
	Date       civil.Date
	ByCategory map[expense.Category]int64
	Total      int64
}

// Table is a list of daily rows in ascending date order.
type Table struct {
	Rows []DailyRow
}

// Columns returns the CSV header: date, one column per category, total.
func (t Table) Columns() []string {
	cols := []string{"date"}
	for _, c := range expense.Categories() {
		cols = append(cols, string(c))
	}
	return append(cols, "total")
}

// WriteCSV renders the table with a header row.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("WriteCSV: writing header: %w", err)
	}

	for _, row := range t.Rows {
		record := []string{row.Date.String()}
		for _, c := range expense.Categories() {
			record = append(record, strconv.FormatInt(row.ByCategory[c], 10))
		}
		record = append(record, strconv.FormatInt(row.Total, 10))

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("WriteCSV: writing row %s: %w", row.Date, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: flushing: %w", err)
	}
	return nil
}

// DailyTransformation groups records by date. Dates without records are omitted.
type DailyTransformation struct{}

// ToTable implements DataTransformation.
func (DailyTransformation) ToTable(records []expense.Record) Table {
	byDate := make(map[civil.Date]*DailyRow)
	for _, rec := range records {
		row, ok := byDate[rec.Date]
		if !ok {
			row = &DailyRow{Date: rec.Date, ByCategory: make(map[expense.Category]int64)}
			byDate[rec.Date] = row
		}
		row.ByCategory[rec.Category] += rec.Amount
		row.Total += rec.Amount
	}

	table := Table{Rows: make([]DailyRow, 0, len(byDate))}
	for _, row := range byDate {
		table.Rows = append(table.Rows, *row)
	}
	sort.Slice(table.Rows, func(i, j int) bool {
		return table.Rows[i].Date.Before(table.Rows[j].Date)
	})
	return table
}

// Ensure DailyTransformation implements the DataTransformation interface.
var _ DataTransformation = DailyTransformation{}
