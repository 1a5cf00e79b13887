// Package chart renders review results as PNG images: a radar chart with one
// polygon per evaluator and simple bar charts for per-competency figures.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/okian/review360/internal/domain/model"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	defaultSize = 800
	minSize     = 200
)

// palette cycles for evaluator series and bars.
var palette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
}

var regular = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// Renderer draws charts on a square canvas. It is safe for concurrent use.
type Renderer struct {
	size     int
	scaleMin float64
	scaleMax float64
}

// New creates a Renderer with an 800px canvas and a [1,5] radar scale.
func New(opts ...Option) *Renderer {
	r := &Renderer{size: defaultSize, scaleMin: 1, scaleMax: 5}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size returns the canvas edge in pixels.
func (r *Renderer) Size() int { return r.size }

func (r *Renderer) face(points float64) (font.Face, error) {
	f, err := regular()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    points * float64(r.size) / defaultSize,
		Hinting: font.HintingNone,
	}), nil
}

// Radar draws one closed polygon per evaluator over the competency axes.
func (r *Renderer) Radar(m model.ScoreMatrix) ([]byte, error) {
	if m.IsEmpty() {
		return nil, ErrNoData
	}
	labelFace, err := r.face(14)
	if err != nil {
		return nil, err
	}

	size := float64(r.size)
	cx, cy := size/2, size*0.46
	radius := size * 0.32
	n := m.Rows()
	competencies := m.Competencies()
	evaluators := m.Evaluators()

	angle := func(i int) float64 {
		return -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
	}
	point := func(i int, v float64) (float64, float64) {
		frac := (clamp(v, r.scaleMin, r.scaleMax) - r.scaleMin) / (r.scaleMax - r.scaleMin)
		a := angle(i)
		return cx + radius*frac*math.Cos(a), cy + radius*frac*math.Sin(a)
	}

	dc := gg.NewContext(r.size, r.size)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(labelFace)

	// Grid rings at each integer step of the scale.
	dc.SetRGB(0.85, 0.85, 0.85)
	dc.SetLineWidth(1)
	for level := math.Ceil(r.scaleMin); level <= r.scaleMax; level++ {
		for i := 0; i < n; i++ {
			x, y := point(i, level)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		dc.Stroke()
		x, y := point(0, level)
		dc.SetRGB(0.5, 0.5, 0.5)
		dc.DrawStringAnchored(strconv.FormatFloat(level, 'f', -1, 64), x+4, y, 0, 0.5)
		dc.SetRGB(0.85, 0.85, 0.85)
	}

	// Axes and competency labels.
	for i, name := range competencies {
		x, y := point(i, r.scaleMax)
		dc.SetRGB(0.75, 0.75, 0.75)
		dc.DrawLine(cx, cy, x, y)
		dc.Stroke()

		a := angle(i)
		lx, ly := cx+(radius+18)*math.Cos(a), cy+(radius+18)*math.Sin(a)
		ax := 0.5 - 0.5*math.Cos(a)
		ay := 0.5 - 0.5*math.Sin(a)
		dc.SetRGB(0.15, 0.15, 0.15)
		dc.DrawStringAnchored(name, lx, ly, ax, ay)
	}

	// One series per evaluator.
	dc.SetLineWidth(2)
	for j := range evaluators {
		c := palette[j%len(palette)]
		col := m.Col(j)
		for i, v := range col {
			x, y := point(i, v)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 0x30)
		dc.FillPreserve()
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 0xff)
		dc.Stroke()
	}

	r.legend(dc, evaluators)

	return encode(dc)
}

func (r *Renderer) legend(dc *gg.Context, names []string) {
	size := float64(r.size)
	swatch := size * 0.018
	x := size * 0.05
	y := size * 0.86
	rowHeight := swatch * 1.8
	colWidth := size * 0.3

	for j, name := range names {
		col := j % 3
		row := j / 3
		px := x + float64(col)*colWidth
		py := y + float64(row)*rowHeight
		c := palette[j%len(palette)]
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 0xff)
		dc.DrawRectangle(px, py-swatch/2, swatch, swatch)
		dc.Fill()
		dc.SetRGB(0.15, 0.15, 0.15)
		dc.DrawStringAnchored(name, px+swatch*1.6, py, 0, 0.5)
	}
}

// Bars draws a vertical bar per label, scaled to the largest value. NaN and
// negative values are drawn as empty bars.
func (r *Renderer) Bars(title string, labels []string, values []float64) ([]byte, error) {
	if len(labels) == 0 {
		return nil, ErrNoData
	}
	if len(labels) != len(values) {
		return nil, fmt.Errorf("%w: %d labels for %d values", ErrInvalidInput, len(labels), len(values))
	}
	titleFace, err := r.face(22)
	if err != nil {
		return nil, err
	}
	labelFace, err := r.face(12)
	if err != nil {
		return nil, err
	}

	size := float64(r.size)
	left, right := size*0.08, size*0.96
	top, bottom := size*0.12, size*0.68

	peak := 0.0
	for _, v := range values {
		if !math.IsNaN(v) && v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	dc := gg.NewContext(r.size, r.size)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetFontFace(titleFace)
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(title, size/2, size*0.05, 0.5, 0.5)

	dc.SetFontFace(labelFace)
	dc.SetRGB(0.3, 0.3, 0.3)
	dc.SetLineWidth(1)
	dc.DrawLine(left, bottom, right, bottom)
	dc.DrawLine(left, top, left, bottom)
	dc.Stroke()

	slot := (right - left) / float64(len(labels))
	width := slot * 0.7
	for i, label := range labels {
		v := values[i]
		if math.IsNaN(v) || v < 0 {
			v = 0
		}
		h := (bottom - top) * v / peak
		x := left + slot*float64(i) + (slot-width)/2

		c := palette[i%len(palette)]
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 0xff)
		dc.DrawRectangle(x, bottom-h, width, h)
		dc.Fill()

		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(strconv.FormatFloat(values[i], 'f', 2, 64), x+width/2, bottom-h-8, 0.5, 0)

		dc.Push()
		dc.RotateAbout(gg.Radians(-45), x+width/2, bottom+10)
		dc.DrawStringAnchored(label, x+width/2, bottom+10, 1, 0.5)
		dc.Pop()
	}

	return encode(dc)
}

func encode(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
