package ledger

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
)

// ErrCorrupt marks a table with a malformed row before its final line
var ErrCorrupt = errors.New("ledger table is corrupt")

// Load rebuilds the history recorded in dir. A final iteration that is missing
// from some tables, or whose row was cut short, is dropped. Temperatures are
// not persisted and load as zero.
func Load(dir string, dim, chains int) (*search.History, error) {
	h, _, err := load(dir, dim, chains)
	return h, err
}

type tableData struct {
	rows [][]float64
	// ends[i] is the byte offset just past row i
	ends []int64
}

func load(dir string, dim, chains int) (*search.History, map[search.Table]int64, error) {
	if dim <= 0 || chains <= 0 {
		return nil, nil, fmt.Errorf("dimension and chain count must be positive, got %d and %d", dim, chains)
	}

	data := make(map[search.Table]tableData, len(search.Tables))
	n := -1
	for _, t := range search.Tables {
		td, err := readTable(Path(dir, t), t.Width(dim, chains))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", t, err)
		}
		data[t] = td
		if n < 0 || len(td.rows) < n {
			n = len(td.rows)
		}
	}

	h := search.NewHistory(dim, chains)
	var prev search.Iteration
	for i := 0; i < n; i++ {
		it := search.Iteration{Index: i, Chains: make([]search.ChainStep, chains)}
		for j := range it.Chains {
			c := search.ChainStep{
				Proposed:          search.Sample(data[search.TableX].rows[i][j*dim : (j+1)*dim]),
				ProposedObjective: data[search.TableF].rows[i][j],
				Accepted:          data[search.TableAccepted].rows[i][j] != 0,
				Current:           search.Sample(data[search.TableAcceptedX].rows[i][j*dim : (j+1)*dim]),
				Best:              search.Sample(data[search.TableBestX].rows[i][j*dim : (j+1)*dim]),
				BestObjective:     data[search.TableBestF].rows[i][j],
			}
			if c.Accepted || i == 0 {
				c.CurrentObjective = c.ProposedObjective
			} else {
				c.CurrentObjective = prev.Chains[j].CurrentObjective
			}
			it.Chains[j] = c
		}
		if err := h.Append(it); err != nil {
			return nil, nil, err
		}
		prev = it
	}

	offsets := make(map[search.Table]int64, len(search.Tables))
	for t, td := range data {
		if n > 0 {
			offsets[t] = td.ends[n-1]
		} else {
			offsets[t] = 0
		}
	}
	return h, offsets, nil
}

// readTable parses a table file. Only the final line may be incomplete; it
// is treated as torn and skipped.
func readTable(path string, width int) (tableData, error) {
	var td tableData
	f, err := os.Open(path)
	if err != nil {
		return td, fmt.Errorf("failed to open ledger table: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var offset int64
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] != '\n' {
			// unterminated final line
			break
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return td, err
		}
		offset += int64(len(line))

		row, perr := parseRow(bytes.TrimSpace(line), width)
		if perr != nil {
			if _, peek := r.Peek(1); peek == io.EOF {
				break
			}
			return td, fmt.Errorf("%w: row %d: %w", ErrCorrupt, len(td.rows), perr)
		}
		td.rows = append(td.rows, row)
		td.ends = append(td.ends, offset)
	}
	return td, nil
}

func parseRow(line []byte, width int) ([]float64, error) {
	fields := bytes.Split(line, []byte{','})
	if len(fields) != width {
		return nil, fmt.Errorf("expected %d values, got %d", width, len(fields))
	}
	row := make([]float64, width)
	for i, field := range fields {
		v, err := strconv.ParseFloat(string(bytes.TrimSpace(field)), 64)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}
