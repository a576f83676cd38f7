package detection

import (
	"image"
	"image/color"
)

// PixelGrid is a decoded image: Height rows of Width pixels, three samples
// per pixel in BGR order, rows stored back to back.
//
// PixelGrid implements draw.Image so the standard encoders and font drawers
// can work on it directly.
type PixelGrid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelGrid allocates a black grid.
func NewPixelGrid(width, height int) *PixelGrid {
	return &PixelGrid{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// GridFromImage copies img into a new grid. Alpha is dropped after
// compositing onto black.
func GridFromImage(img image.Image) *PixelGrid {
	b := img.Bounds()
	g := NewPixelGrid(b.Dx(), b.Dy())

	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < g.Height; y++ {
			src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := g.Pix[y*g.Stride():]
			for x := 0; x < g.Width; x++ {
				dst[x*3] = src[x*4+2]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4]
			}
		}
		return g
	}

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			r, gr, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := g.offset(x, y)
			g.Pix[i] = uint8(bl >> 8)
			g.Pix[i+1] = uint8(gr >> 8)
			g.Pix[i+2] = uint8(r >> 8)
		}
	}
	return g
}

// Stride is the number of bytes per row.
func (g *PixelGrid) Stride() int {
	return g.Width * 3
}

// Clone returns a deep copy.
func (g *PixelGrid) Clone() *PixelGrid {
	pix := make([]uint8, len(g.Pix))
	copy(pix, g.Pix)
	return &PixelGrid{Width: g.Width, Height: g.Height, Pix: pix}
}

func (g *PixelGrid) ColorModel() color.Model {
	return color.RGBAModel
}

func (g *PixelGrid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

func (g *PixelGrid) At(x, y int) color.Color {
	if !image.Pt(x, y).In(g.Bounds()) {
		return color.RGBA{}
	}
	i := g.offset(x, y)
	return color.RGBA{R: g.Pix[i+2], G: g.Pix[i+1], B: g.Pix[i], A: 0xff}
}

func (g *PixelGrid) Set(x, y int, c color.Color) {
	if !image.Pt(x, y).In(g.Bounds()) {
		return
	}
	r, gr, b, _ := c.RGBA()
	i := g.offset(x, y)
	g.Pix[i] = uint8(b >> 8)
	g.Pix[i+1] = uint8(gr >> 8)
	g.Pix[i+2] = uint8(r >> 8)
}

// Opaque lets the PNG encoder skip its per-pixel alpha scan.
func (g *PixelGrid) Opaque() bool {
	return true
}

func (g *PixelGrid) offset(x, y int) int {
	return y*g.Stride() + x*3
}
