// Package trajectory reads and writes per-frame simulation traces: headerless
// numeric CSV tables with one row per simulated frame.
package trajectory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Fixed column layout of a trajectory row.
const (
	ColumnSeparation = 0
	ColumnEgoSpeed   = 1
	ColumnOtherSpeed = 2
)

var (
	// ErrEmptyTable is returned when a trajectory has no frames
	ErrEmptyTable = errors.New("trajectory table is empty")
	// ErrColumnOutOfRange is returned when a requested column does not exist in every row
	ErrColumnOutOfRange = errors.New("trajectory column out of range")
)

// Table is a trajectory, one row of measurements per frame.
type Table [][]float64

// Parse reads a headerless numeric CSV table. Rows may have different widths;
// Column rejects rows that are too short.
func Parse(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var table Table
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read trajectory: %w", err)
		}
		row := make([]float64, 0, len(record))
		for col, field := range record {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("trajectory line %d column %d: %w", line, col, err)
			}
			row = append(row, v)
		}
		if len(row) > 0 {
			table = append(table, row)
		}
	}
	return table, nil
}

// ReadFile reads a trajectory table from path
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Frames returns the number of rows
func (t Table) Frames() int {
	return len(t)
}

// Column extracts column i from every frame. It fails on an empty table or
// when any row lacks the column.
func (t Table) Column(i int) ([]float64, error) {
	if len(t) == 0 {
		return nil, ErrEmptyTable
	}
	if i < 0 {
		return nil, fmt.Errorf("%w: column %d", ErrColumnOutOfRange, i)
	}
	out := make([]float64, len(t))
	for frame, row := range t {
		if i >= len(row) {
			return nil, fmt.Errorf("%w: column %d, frame %d has %d columns", ErrColumnOutOfRange, i, frame, len(row))
		}
		out[frame] = row[i]
	}
	return out, nil
}
