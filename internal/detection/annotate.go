package detection

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LabelFormat renders a detection label from its class and confidence.
const LabelFormat = "%s: %.2f"

const (
	defaultThickness = 2
	labelGap         = 4 // pixels between the box top and the label baseline
)

// Style controls how detections are drawn.
type Style struct {
	Color       color.RGBA
	Thickness   int
	LabelFormat string
}

// DefaultStyle draws red 2px boxes with "class: 0.93" labels.
func DefaultStyle() Style {
	return Style{
		Color:       color.RGBA{R: 255, A: 255},
		Thickness:   defaultThickness,
		LabelFormat: LabelFormat,
	}
}

// Annotate draws every detection onto a copy of src, in order. src is left
// untouched. Anything that falls outside the grid is clipped.
func Annotate(src *PixelGrid, detections []Detection, style Style) *PixelGrid {
	out := src.Clone()
	if style.Thickness <= 0 {
		style.Thickness = defaultThickness
	}
	if style.LabelFormat == "" {
		style.LabelFormat = LabelFormat
	}

	fill := image.NewUniform(style.Color)
	for _, d := range detections {
		rect := roundRect(d.BBox)
		drawOutline(out, rect, fill, style.Thickness)
		drawLabel(out, fmt.Sprintf(style.LabelFormat, d.Class, d.Confidence), rect.Min, fill)
	}
	return out
}

// roundRect converts a box to an inclusive integer rectangle. Swapped
// corners are normalised.
func roundRect(b Box) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)),
	)
}

func drawOutline(dst *PixelGrid, r image.Rectangle, src image.Image, thickness int) {
	// r.Max is inclusive here, like an OpenCV rectangle.
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X+1, r.Max.Y+1
	bands := []image.Rectangle{
		image.Rect(x0, y0, x1, y0+thickness),
		image.Rect(x0, y1-thickness, x1, y1),
		image.Rect(x0, y0, x0+thickness, y1),
		image.Rect(x1-thickness, y0, x1, y1),
	}
	for _, band := range bands {
		band = band.Intersect(dst.Bounds())
		if band.Empty() {
			continue
		}
		draw.Draw(dst, band, src, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *PixelGrid, text string, corner image.Point, src image.Image) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	width := font.MeasureString(face, text).Ceil()

	x := corner.X
	if x+width > dst.Width {
		x = dst.Width - width
	}
	if x < 0 {
		x = 0
	}

	baseline := corner.Y - labelGap
	if baseline-ascent < 0 {
		baseline = ascent
	}
	if baseline+descent > dst.Height {
		baseline = dst.Height - descent
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}
