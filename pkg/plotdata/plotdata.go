// Package plotdata writes the diagnostics produced by motion.Mix: the full
// pose distance matrix and the winning frame pairs, as text for offline
// tuning and as heat map images.
package plotdata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/teslashibe/go-mocap/pkg/motion"
)

// File name suffixes, appended to "<source>_<target>".
const (
	HeatmapSuffix = "__heatmap.txt"
	PairsSuffix   = "__refFrames.txt"
	ImageSuffix   = "__heatmap.png"
)

// Prefix returns the file name prefix shared by a mix's diagnostics.
func Prefix(source, target string) string {
	return source + motion.MixSeparator + target
}

// FormatMatrix writes one line per row, values separated by single spaces.
func FormatMatrix(w io.Writer, m *mat.Dense) error {
	bw := bufio.NewWriter(w)
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// FormatPairs writes "source target" per line.
func FormatPairs(w io.Writer, pairs []motion.Pair) error {
	bw := bufio.NewWriter(w)
	for _, p := range pairs {
		fmt.Fprintf(bw, "%d %d\n", p.Source, p.Target)
	}
	return bw.Flush()
}

// TextSink writes the distance matrix and pairs as plain text files in Dir.
type TextSink struct {
	Dir string
}

// WriteMix implements motion.DiagnosticSink.
func (s TextSink) WriteMix(source, target string, distances *mat.Dense, pairs []motion.Pair) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create plot data directory: %w", err)
	}
	prefix := filepath.Join(s.Dir, Prefix(source, target))

	err := writeFile(prefix+HeatmapSuffix, func(w io.Writer) error {
		return FormatMatrix(w, distances)
	})
	if err != nil {
		return err
	}
	return writeFile(prefix+PairsSuffix, func(w io.Writer) error {
		return FormatPairs(w, pairs)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Multi returns a sink that forwards to every sink in order. All sinks are
// attempted; their errors are joined.
func Multi(sinks ...motion.DiagnosticSink) motion.DiagnosticSink {
	return multiSink(sinks)
}

type multiSink []motion.DiagnosticSink

func (ms multiSink) WriteMix(source, target string, distances *mat.Dense, pairs []motion.Pair) error {
	var errs []error
	for _, s := range ms {
		if err := s.WriteMix(source, target, distances, pairs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every diagnostic.
var Discard motion.DiagnosticSink = discard{}

type discard struct{}

func (discard) WriteMix(string, string, *mat.Dense, []motion.Pair) error { return nil }
