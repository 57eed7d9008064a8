package progress

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// CycleLogger appends one CSV row per cycle to disk when config.output is
// enabled. Unlike an async batched logger, it writes synchronously: the
// driver already calls in at most once per cycle, so there's no hot path
// to protect and no benefit to buffering.
type CycleLogger struct {
	mu   sync.Mutex
	path string
}

// NewCycleLogger prepares a logger writing to path, which is created (with
// a header row) if it does not already exist.
func NewCycleLogger(path string) (*CycleLogger, error) {
	l := &CycleLogger{path: path}
	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		return l, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("progress: creating %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString("cycle,neg_two_ll,delta_objf,num_support,gamma,param_means\n"); err != nil {
		return nil, fmt.Errorf("progress: writing header to %s: %w", path, err)
	}
	return l, nil
}

// Append writes one row for e, including the per-parameter column means
// of e.Theta as a semicolon-separated trailing field.
func (l *CycleLogger) Append(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("progress: opening %s: %w", l.path, err)
	}
	defer f.Close()

	means := paramMeans(e.Theta)
	strs := make([]string, len(means))
	for i, m := range means {
		strs[i] = fmt.Sprintf("%.8g", m)
	}

	_, err = fmt.Fprintf(f, "%d,%.8g,%.8g,%d,%.8g,%s\n",
		e.Cycle, e.NegTwoLL, e.DeltaObjf, e.NumSupport, e.Gamma, strings.Join(strs, ";"))
	return err
}

func paramMeans(theta *mat.Dense) []float64 {
	if theta == nil {
		return nil
	}
	rows, cols := theta.Dims()
	if rows == 0 {
		return make([]float64, cols)
	}
	means := make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += theta.At(i, j)
		}
		means[j] = sum / float64(rows)
	}
	return means
}
