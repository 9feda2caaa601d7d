package avatar

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"sync"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultSize is the edge length stored in AvatarBuffer.
const DefaultSize = 120

type resizeKey struct {
	sum  [sha256.Size]byte
	size int
}

var resized sync.Map

// Resize decodes data (png, jpeg, gif or webp), scales it to cover a
// size x size square, crops the overflow around the center and encodes the
// result as PNG. Results are memoized per input and size.
func Resize(data []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	key := resizeKey{sum: sha256.Sum256(data), size: size}
	if v, ok := resized.Load(key); ok {
		return v.([]byte), nil
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("avatar: decode: %w", err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, coverRect(src.Bounds()), draw.Src, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("avatar: encode: %w", err)
	}
	out := buf.Bytes()
	resized.Store(key, out)
	return out, nil
}

// coverRect returns the centered square of b.
func coverRect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w == h {
		return b
	}
	if w > h {
		off := (w - h) / 2
		return image.Rect(b.Min.X+off, b.Min.Y, b.Min.X+off+h, b.Max.Y)
	}
	off := (h - w) / 2
	return image.Rect(b.Min.X, b.Min.Y+off, b.Max.X, b.Min.Y+off+w)
}

// DataURI encodes a PNG buffer for inline use in SVG.
func DataURI(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

// DefaultFallback draws the generic silhouette used when no fallback
// avatar is configured.
func DefaultFallback() []byte {
	const size = DefaultSize
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	bg := color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	fg := color.RGBA{R: 0xbb, G: 0xbb, B: 0xbb, A: 0xff}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	fillCircle(img, size/2, size*2/5, size/5, fg)
	fillCircle(img, size/2, size+size/8, size/2, fg)
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func fillCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	b := img.Bounds()
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > r*r || !(image.Point{X: x, Y: y}).In(b) {
				continue
			}
			img.SetRGBA(x, y, c)
		}
	}
}
