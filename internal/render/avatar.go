package render

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"  // register gif avatars
	_ "image/jpeg" // register jpeg avatars
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register webp avatars
)

// maxAvatarPixels rejects images whose header claims an absurd size before
// the full decode allocates for it.
const maxAvatarPixels = 4096 * 4096

// decodeAvatar returns nil when data is empty, unsupported or corrupt.
func decodeAvatar(data []byte) image.Image {
	if len(data) == 0 {
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxAvatarPixels {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return img
}

// drawAvatar center-crops src to a square, scales it into the placement and
// clips it to a circle.
func drawAvatar(dst draw.Image, src image.Image, at AvatarPlacement) {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	crop := image.Rect(0, 0, side, side).Add(image.Pt(b.Min.X+(b.Dx()-side)/2, b.Min.Y+(b.Dy()-side)/2))

	scaled := image.NewRGBA(image.Rect(0, 0, at.Size, at.Size))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, crop, draw.Src, nil)

	target := image.Rect(at.X, at.Y, at.X+at.Size, at.Y+at.Size)
	draw.DrawMask(dst, target, scaled, image.Point{}, circleMask{size: at.Size}, image.Point{}, draw.Over)
}

// circleMask is an anti-aliased disc inscribed in a size×size square.
type circleMask struct{ size int }

func (c circleMask) ColorModel() color.Model { return color.AlphaModel }

func (c circleMask) Bounds() image.Rectangle { return image.Rect(0, 0, c.size, c.size) }

func (c circleMask) At(x, y int) color.Color {
	r := float64(c.size) / 2
	dx := float64(x) + 0.5 - r
	dy := float64(y) + 0.5 - r
	coverage := r + 0.5 - math.Hypot(dx, dy)
	switch {
	case coverage >= 1:
		return color.Alpha{A: 0xff}
	case coverage <= 0:
		return color.Alpha{}
	}
	return color.Alpha{A: uint8(coverage * 0xff)}
}
