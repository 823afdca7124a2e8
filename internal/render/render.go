// Package render draws member identity cards as PNG images.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"idcard/pkg/domain"
)

// Card canvas size in pixels.
const (
	Width  = 900
	Height = 550
)

const (
	marginX    = 50
	textGutter = 30 // minimum gap between the text block and the avatar
)

// Renderer turns members into card images. It is safe for concurrent use.
type Renderer struct {
	theme Theme
	pal   palette
	fonts fontSet
}

// New validates theme and loads the bundled fonts.
func New(theme Theme) (*Renderer, error) {
	pal, err := theme.palette()
	if err != nil {
		return nil, fmt.Errorf("invalid theme: %w", err)
	}
	fs, err := loadFonts()
	if err != nil {
		return nil, err
	}
	return &Renderer{theme: theme, pal: pal, fonts: fs}, nil
}

// Theme returns the styling in use.
func (r *Renderer) Theme() Theme { return r.theme }

// Render draws m and returns PNG bytes. avatar may be nil; bytes that do not
// decode as png, jpeg, gif or webp leave the avatar region empty. A member
// missing id, name, role or status fails with domain.ErrRender.
func (r *Renderer) Render(m domain.Member, avatar []byte) ([]byte, error) {
	if err := checkRenderable(m); err != nil {
		return nil, err
	}
	fc, err := r.fonts.faces()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRender, err)
	}
	defer fc.Close()

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.pal.background), image.Point{}, draw.Src)
	r.drawAccentBar(img)

	if src := decodeAvatar(avatar); src != nil {
		drawAvatar(img, src, r.theme.Avatar)
	}

	t := r.theme
	headerWidth := Width - 2*marginX
	textWidth := t.Avatar.textWidth()
	statusColor, ok := r.pal.status[m.Status]
	if !ok {
		statusColor = r.pal.detail
	}
	lines := []struct {
		face  font.Face
		c     color.RGBA
		y     int
		width int
		text  string
	}{
		{fc.title, r.pal.header, 80, headerWidth, t.Title},
		{fc.subtitle, r.pal.header, 120, headerWidth, t.Subtitle},
		{fc.name, r.pal.name, 200, textWidth, m.Name},
		{fc.id, r.pal.id, 260, textWidth, "ID: " + m.ID},
		{fc.detail, r.pal.detail, 320, textWidth, "Role: " + m.Role},
		{fc.detail, statusColor, 360, textWidth, "Status: " + string(m.Status)},
		{fc.meta, r.pal.meta, 420, textWidth, "Issued: " + m.IssuedOn},
		{fc.meta, r.pal.meta, 460, textWidth, "Internal Ref: " + m.InternalID},
	}
	for _, l := range lines {
		drawText(img, l.face, l.c, marginX, l.y, fitText(l.face, l.text, l.width))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode png: %w", domain.ErrRender, err)
	}
	return buf.Bytes(), nil
}

func checkRenderable(m domain.Member) error {
	for _, f := range []struct{ name, value string }{
		{"id", m.ID},
		{"name", m.Name},
		{"role", m.Role},
		{"status", string(m.Status)},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: member is missing %s", domain.ErrRender, f.name)
		}
	}
	return nil
}

func (r *Renderer) drawAccentBar(img *image.RGBA) {
	h := r.theme.AccentHeight
	if h == 0 {
		return
	}
	stops := r.pal.accent
	for x := 0; x < Width; x++ {
		c := gradientAt(stops, float64(x)/float64(Width-1))
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// gradientAt linearly interpolates evenly spaced stops at t in [0,1].
func gradientAt(stops []color.RGBA, t float64) color.RGBA {
	if len(stops) == 1 {
		return stops[0]
	}
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	f := pos - float64(i)
	a, b := stops[i], stops[i+1]
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*f + 0.5) }
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 0xff}
}

func drawText(dst draw.Image, face font.Face, c color.RGBA, x, y int, text string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// fitText shortens text with an ellipsis until it fits maxWidth pixels.
func fitText(face font.Face, text string, maxWidth int) string {
	limit := fixed.I(maxWidth)
	if font.MeasureString(face, text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimRight(string(runes), " ") + "…"
		if font.MeasureString(face, candidate) <= limit {
			return candidate
		}
	}
	return ""
}
