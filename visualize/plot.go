// Package visualize draws planned paths and the obstacles they avoid.
package visualize

import (
	"image/color"

	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/rhplan/spatialmath"
)

// Size is the width and height of saved plots.
const Size = 6 * vg.Inch

var (
	pathColor     = color.RGBA{R: 0xdd, G: 0x33, B: 0x55, A: 0xff}
	endpointColor = color.RGBA{R: 0x33, G: 0x55, B: 0xdd, A: 0xff}
)

// ObstaclePalette returns n distinct colors for obstacles, evenly spaced in hue at a fixed
// chroma and lightness so neighbouring obstacles stay distinguishable.
func ObstaclePalette(n int) []color.Color {
	palette := make([]color.Color, n)
	for i := range palette {
		hue := 150 + 360*float64(i)/float64(n)
		palette[i] = colorful.Hcl(hue, 0.5, 0.65).Clamped()
	}
	return palette
}

// Scene is everything drawn in one plot.
type Scene struct {
	Title     string
	Path      []r2.Point
	Start     r2.Point
	Goal      r2.Point
	Obstacles []spatialmath.Obstacle
	Area      spatialmath.SearchArea
}

func toXYs(points []r2.Point) plotter.XYs {
	return lo.Map(points, func(p r2.Point, _ int) plotter.XY {
		return plotter.XY{X: p.X, Y: p.Y}
	})
}

// NewPlot draws the scene. Circles and ellipses are drawn as outlines and every other obstacle as
// the grid points of the area that lie inside it.
func NewPlot(scene Scene) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = scene.Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())

	palette := ObstaclePalette(len(scene.Obstacles))
	for i, o := range scene.Obstacles {
		samples, err := spatialmath.SampleObstacle(o, scene.Area)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot sample obstacle %s", o)
		}
		if len(samples) == 0 {
			continue
		}
		obstacle, err := plotter.NewScatter(toXYs(samples))
		if err != nil {
			return nil, err
		}
		obstacle.GlyphStyle.Color = palette[i]
		obstacle.GlyphStyle.Radius = vg.Points(1)
		p.Add(obstacle)
	}

	if len(scene.Path) > 0 {
		line, points, err := plotter.NewLinePoints(toXYs(scene.Path))
		if err != nil {
			return nil, err
		}
		line.Color = pathColor
		points.Color = pathColor
		points.Shape = draw.BoxGlyph{}
		points.Radius = vg.Points(1)
		p.Add(line, points)
		p.Legend.Add("path", line)
	}

	endpoints, err := plotter.NewScatter(toXYs([]r2.Point{scene.Start, scene.Goal}))
	if err != nil {
		return nil, err
	}
	endpoints.GlyphStyle.Color = endpointColor
	endpoints.GlyphStyle.Shape = draw.CircleGlyph{}
	endpoints.GlyphStyle.Radius = vg.Points(4)
	p.Add(endpoints)
	p.Legend.Add("start and goal", endpoints)
	return p, nil
}

// SavePlot draws the scene into a file. The format follows the extension: .png, .svg, .pdf and
// the other formats gonum/plot supports.
func SavePlot(scene Scene, filename string) error {
	p, err := NewPlot(scene)
	if err != nil {
		return err
	}
	return p.Save(Size, Size, filename)
}
