package trajectory

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/GoSim-25-26J-441/scenario-search/internal/geometry"
)

// Recorder appends trajectory frames to a file, flushing after every frame so
// a reader sees complete rows even while the simulation is running.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
	rows int
}

// Create truncates path and returns a recorder writing to it
func Create(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create trajectory file: %w", err)
	}
	return &Recorder{file: f, w: bufio.NewWriter(f)}, nil
}

// OpenAppend opens path for appending, creating it if needed
func OpenAppend(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Recorder{file: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one frame
func (r *Recorder) Append(values ...float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := make([]byte, 0, 16*len(values)+1)
	for i, v := range values {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	buf = append(buf, '\n')
	if _, err := r.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", r.rows, err)
	}
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush frame %d: %w", r.rows, err)
	}
	r.rows++
	return nil
}

// RecordSeparation measures the separation of two footprints and appends
// [distance, extras..., collision] where collision is 1 or 0.
func (r *Recorder) RecordSeparation(a, b geometry.Rectangle, extras ...float64) (float64, bool, error) {
	d, colliding := geometry.Separation(a, b)
	flag := 0.0
	if colliding {
		flag = 1
	}
	values := make([]float64, 0, len(extras)+2)
	values = append(values, d)
	values = append(values, extras...)
	values = append(values, flag)
	return d, colliding, r.Append(values...)
}

// Frames returns the number of frames written
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// Close flushes and closes the file
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
