package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

const defaultPriceColumn = "close"

// nameColumns are header names that identify the instrument of a row
var nameColumns = []string{"name", "symbol", "ticker"}

// priceSelection picks the prices out of a CSV file.
//
// Column is a header name or a 1-based column number. Empty means "close"
// when the file has a header and the last numeric column when it does not.
// Name keeps only the rows of one instrument in files with a name column.
// Symbol does the same when Name is empty, but is ignored by files without
// a name column.
type priceSelection struct {
	Column string
	Name   string
	Symbol string
}

// readPrices parses prices from CSV, oldest first. A first row without any
// numeric field is a header. Empty price cells are skipped.
func readPrices(r io.Reader, sel priceSelection) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no prices found")
	}

	// line numbers of the file are 1-based
	first := 1
	var header []string
	if _, ok := lastNumber(records[0]); !ok {
		header = records[0]
		records = records[1:]
		first = 2
	}

	pick, err := resolveColumn(header, sel.Column)
	if err != nil {
		return nil, err
	}
	keep, err := resolveName(header, records, sel.Name, sel.Symbol)
	if err != nil {
		return nil, err
	}

	var prices []float64
	for i, record := range records {
		line := first + i
		if !keep(record) {
			continue
		}

		price, ok, err := pick(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			prices = append(prices, price)
		}
	}

	if len(prices) == 0 {
		return nil, fmt.Errorf("no prices found")
	}
	return prices, nil
}

type columnPicker func(record []string) (price float64, ok bool, err error)

func resolveColumn(header []string, column string) (columnPicker, error) {
	if n, err := strconv.Atoi(column); err == nil {
		if n < 1 {
			return nil, fmt.Errorf("column number must be at least 1, got %d", n)
		}
		return fieldPicker(n-1, "column "+column), nil
	}

	if header == nil {
		if column != "" {
			return nil, fmt.Errorf("column %q needs a header row", column)
		}
		return func(record []string) (float64, bool, error) {
			price, ok := lastNumber(record)
			if !ok {
				return 0, false, fmt.Errorf("no numeric column")
			}
			return price, true, nil
		}, nil
	}

	if column == "" {
		column = defaultPriceColumn
	}
	idx := headerIndex(header, column)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found in header %v", column, header)
	}
	return fieldPicker(idx, "column "+column), nil
}

func fieldPicker(idx int, label string) columnPicker {
	return func(record []string) (float64, bool, error) {
		if idx >= len(record) {
			return 0, false, fmt.Errorf("%s is missing", label)
		}
		cell := strings.TrimSpace(record[idx])
		if cell == "" {
			return 0, false, nil
		}
		price, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%s is not a number: %q", label, cell)
		}
		return price, true, nil
	}
}

// resolveName returns the row filter for name. A file mixing several
// instruments must be narrowed to one.
func resolveName(header []string, records [][]string, name, symbol string) (func([]string) bool, error) {
	idx := -1
	for _, candidate := range nameColumns {
		if idx = headerIndex(header, candidate); idx >= 0 {
			break
		}
	}

	if idx < 0 {
		if name != "" {
			return nil, fmt.Errorf("cannot select %q: the file has no name column", name)
		}
		return func([]string) bool { return true }, nil
	}
	if name == "" {
		name = symbol
	}

	cell := func(record []string) string {
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	if name == "" {
		var names []string
		for _, record := range records {
			if n := cell(record); !slices.Contains(names, n) {
				names = append(names, n)
			}
		}
		if len(names) > 1 {
			return nil, fmt.Errorf("the file holds %d instruments %v; choose one with --name", len(names), names)
		}
		return func([]string) bool { return true }, nil
	}

	return func(record []string) bool {
		return strings.EqualFold(cell(record), name)
	}, nil
}

func headerIndex(header []string, column string) int {
	return slices.IndexFunc(header, func(h string) bool {
		return strings.EqualFold(strings.TrimSpace(h), column)
	})
}

func lastNumber(record []string) (float64, bool) {
	for i := len(record) - 1; i >= 0; i-- {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err == nil {
			return v, true
		}
	}
	return 0, false
}
