package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	textColor  = color.RGBA{R: 0x77, G: 0x77, B: 0x77, A: 0xff}
	titleColor = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}
)

// PNG rasterizes the sheet at 1x. Raw SVG fragments are skipped.
func (c *Composer) PNG() ([]byte, error) {
	w, h := int(math.Ceil(c.width)), int(math.Ceil(c.height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: empty canvas %dx%d", w, h)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	for _, it := range c.items {
		switch it.kind {
		case itemText:
			col := textColor
			if it.class == titleClass {
				col = titleColor
			}
			drawText(canvas, it.text, it.x, it.y, col)
		case itemBadge:
			if err := drawAvatar(canvas, it); err != nil {
				return nil, err
			}
			if it.hasLabel {
				drawText(canvas, it.text, it.x, it.y, textColor)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawText centers s horizontally on x with its baseline at y.
func drawText(dst draw.Image, s string, x, y float64, col color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: basicfont.Face7x13}
	width := d.MeasureString(s)
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(x*64) - width/2,
		Y: fixed.Int26_6(y * 64),
	}
	d.DrawString(s)
}

func drawAvatar(dst draw.Image, it item) error {
	size := int(math.Round(it.size))
	if len(it.avatar) == 0 || size <= 0 {
		return nil
	}
	src, _, err := image.Decode(bytes.NewReader(it.avatar))
	if err != nil {
		return fmt.Errorf("render: decode avatar: %w", err)
	}
	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	at := image.Pt(int(math.Round(it.imgX)), int(math.Round(it.imgY)))
	rect := image.Rectangle{Min: at, Max: at.Add(image.Pt(size, size))}
	mask := roundedMask{rect: rect, radius: float64(size) * it.radius}
	draw.DrawMask(dst, rect, scaled, image.Point{}, mask, rect.Min, draw.Over)
	return nil
}

// roundedMask is opaque inside a rounded rectangle.
type roundedMask struct {
	rect   image.Rectangle
	radius float64
}

func (m roundedMask) ColorModel() color.Model { return color.AlphaModel }

func (m roundedMask) Bounds() image.Rectangle { return m.rect }

func (m roundedMask) At(x, y int) color.Color {
	px, py := float64(x)+0.5, float64(y)+0.5
	minX, minY := float64(m.rect.Min.X)+m.radius, float64(m.rect.Min.Y)+m.radius
	maxX, maxY := float64(m.rect.Max.X)-m.radius, float64(m.rect.Max.Y)-m.radius
	cx := math.Max(minX, math.Min(px, maxX))
	cy := math.Max(minY, math.Min(py, maxY))
	if math.Hypot(px-cx, py-cy) <= m.radius {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}
