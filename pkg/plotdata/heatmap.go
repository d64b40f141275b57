package plotdata

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/teslashibe/go-mocap/pkg/motion"
)

// ErrTooSmall is returned when a matrix has fewer than two rows or columns;
// a heat map needs cell neighbours on both axes.
var ErrTooSmall = errors.New("plotdata: matrix too small to plot")

// PlotSink renders the distance matrix as a PNG heat map with the winning
// pairs marked on top.
type PlotSink struct {
	Dir string

	// Size is the image edge length. Zero means 6 inches.
	Size vg.Length
}

// grid adapts a distance matrix to plotter.GridXYZ: columns are target
// frames, rows are source frames.
type grid struct {
	m *mat.Dense
}

func (g grid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g grid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

// WriteMix implements motion.DiagnosticSink.
func (s PlotSink) WriteMix(source, target string, distances *mat.Dense, pairs []motion.Pair) error {
	p, err := HeatmapPlot(source, target, distances, pairs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create plot data directory: %w", err)
	}
	size := s.Size
	if size == 0 {
		size = 6 * vg.Inch
	}
	path := filepath.Join(s.Dir, Prefix(source, target)+ImageSuffix)
	if err := p.Save(size, size, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// HeatmapPlot builds the heat map plot without saving it.
func HeatmapPlot(source, target string, distances *mat.Dense, pairs []motion.Pair) (*plot.Plot, error) {
	rows, cols := distances.Dims()
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooSmall, rows, cols)
	}

	hm := plotter.NewHeatMap(grid{m: distances}, palette.Heat(16, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}

	winners := make(plotter.XYs, len(pairs))
	for i, pr := range pairs {
		winners[i] = plotter.XY{X: float64(pr.Target), Y: float64(pr.Source)}
	}
	sc, err := plotter.NewScatter(winners)
	if err != nil {
		return nil, fmt.Errorf("failed to plot pairs: %w", err)
	}
	sc.GlyphStyle.Color = color.RGBA{B: 255, A: 255}
	sc.GlyphStyle.Shape = draw.CrossGlyph{}

	p := plot.New()
	p.Title.Text = Prefix(source, target)
	p.X.Label.Text = target + " frame"
	p.Y.Label.Text = source + " frame"
	p.Add(hm, sc)
	return p, nil
}
