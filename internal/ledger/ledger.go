// Package ledger persists search history as append-only CSV tables, one file
// per table and one row per iteration.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
)

// ErrClosed is returned when appending to a closed writer
var ErrClosed = errors.New("ledger is closed")

// Path returns the file holding table t inside dir
func Path(dir string, t search.Table) string {
	return filepath.Join(dir, t.String()+".csv")
}

type tableFile struct {
	file *os.File
	w    *bufio.Writer
}

// Writer appends history rows to the table files of one run. Every Append is
// flushed and synced before it returns, so an interrupted run leaves only
// complete iterations plus at most one torn row per table.
type Writer struct {
	mu     sync.Mutex
	dir    string
	dim    int
	chains int
	rows   int
	files  map[search.Table]*tableFile
	closed bool
}

// Create truncates (or creates) every table file in dir
func Create(dir string, dim, chains int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return open(dir, dim, chains, 0, os.O_CREATE|os.O_TRUNC|os.O_WRONLY)
}

// OpenAppend loads the history recorded in dir, cuts every table back to the
// last iteration present in all of them and returns a writer positioned after it.
func OpenAppend(dir string, dim, chains int) (*Writer, *search.History, error) {
	h, offsets, err := load(dir, dim, chains)
	if err != nil {
		return nil, nil, err
	}
	for t, offset := range offsets {
		if err := os.Truncate(Path(dir, t), offset); err != nil {
			return nil, nil, fmt.Errorf("failed to truncate %s: %w", t, err)
		}
	}
	w, err := open(dir, dim, chains, h.Len(), os.O_APPEND|os.O_WRONLY)
	if err != nil {
		return nil, nil, err
	}
	return w, h, nil
}

func open(dir string, dim, chains, rows, flag int) (*Writer, error) {
	w := &Writer{
		dir:    dir,
		dim:    dim,
		chains: chains,
		rows:   rows,
		files:  make(map[search.Table]*tableFile, len(search.Tables)),
	}
	for _, t := range search.Tables {
		f, err := os.OpenFile(Path(dir, t), flag, 0o644)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to open %s: %w", t, err)
		}
		w.files[t] = &tableFile{file: f, w: bufio.NewWriter(f)}
	}
	return w, nil
}

// Dir returns the ledger directory
func (w *Writer) Dir() string {
	return w.dir
}

// Rows returns the number of iterations written, including the seed row
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Append writes one row to every table and syncs the files.
func (w *Writer) Append(it search.Iteration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if it.Index != w.rows {
		return fmt.Errorf("%w: ledger expects iteration %d, got %d", search.ErrHistoryOutOfOrder, w.rows, it.Index)
	}
	for _, t := range search.Tables {
		row := it.Row(t)
		if len(row) != t.Width(w.dim, w.chains) {
			return fmt.Errorf("%s: row %d has %d values, expected %d", t, it.Index, len(row), t.Width(w.dim, w.chains))
		}
		tf := w.files[t]
		if _, err := tf.w.Write(formatRow(row)); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", t, it.Index, err)
		}
		if err := tf.w.Flush(); err != nil {
			return fmt.Errorf("failed to flush %s row %d: %w", t, it.Index, err)
		}
		if err := tf.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync %s row %d: %w", t, it.Index, err)
		}
	}
	w.rows++
	return nil
}

// Close flushes and closes every table file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	for _, tf := range w.files {
		if err := tf.w.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := tf.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func formatRow(row []float64) []byte {
	buf := make([]byte, 0, 20*len(row)+1)
	for i, v := range row {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, '\n')
}
