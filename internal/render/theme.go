package render

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"idcard/pkg/domain"
)

// Theme holds the card styling. Colors are CSS-style hex strings.
type Theme struct {
	Title        string            `yaml:"title"`
	Subtitle     string            `yaml:"subtitle"`
	Background   string            `yaml:"background"`
	AccentStops  []string          `yaml:"accent_stops"` // left-to-right gradient of the top bar
	AccentHeight int               `yaml:"accent_height"`
	Text         TextColors        `yaml:"text"`
	StatusColors map[string]string `yaml:"status_colors,omitempty"`
	Avatar       AvatarPlacement   `yaml:"avatar"`
}

// TextColors colors each line group of the text block.
type TextColors struct {
	Header string `yaml:"header"`
	Name   string `yaml:"name"`
	ID     string `yaml:"id"`
	Detail string `yaml:"detail"`
	Meta   string `yaml:"meta"`
}

// AvatarPlacement is the bounding square of the circular avatar.
type AvatarPlacement struct {
	X    int `yaml:"x"`
	Y    int `yaml:"y"`
	Size int `yaml:"size"`
}

// DefaultTheme is the dark card with the saffron, white and green bar.
func DefaultTheme() Theme {
	return Theme{
		Title:        "UNION OF INDIANS",
		Subtitle:     "OFFICIAL IDENTIFICATION CARD",
		Background:   "#0f172a",
		AccentStops:  []string{"#ff9933", "#ffffff", "#138808"},
		AccentHeight: 12,
		Text: TextColors{
			Header: "#ffffff",
			Name:   "#ffffff",
			ID:     "#fbbf24",
			Detail: "#cbd5e1",
			Meta:   "#94a3b8",
		},
		StatusColors: map[string]string{
			string(domain.StatusActive):    "#22c55e",
			string(domain.StatusSuspended): "#f59e0b",
			string(domain.StatusRevoked):   "#ef4444",
		},
		Avatar: AvatarPlacement{X: 600, Y: 150, Size: 220},
	}
}

// LoadTheme reads a YAML theme. Keys absent from the file keep their default.
func LoadTheme(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("failed to read theme: %w", err)
	}
	theme := DefaultTheme()
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return Theme{}, fmt.Errorf("failed to parse theme YAML: %w", err)
	}
	if err := theme.Validate(); err != nil {
		return Theme{}, fmt.Errorf("invalid theme: %w", err)
	}
	return theme, nil
}

// Validate checks colors parse and the avatar fits on the canvas.
func (t Theme) Validate() error {
	_, err := t.palette()
	return err
}

type palette struct {
	background color.RGBA
	accent     []color.RGBA
	header     color.RGBA
	name       color.RGBA
	id         color.RGBA
	detail     color.RGBA
	meta       color.RGBA
	status     map[domain.Status]color.RGBA
}

func (t Theme) palette() (palette, error) {
	var p palette
	var err error
	parse := func(field, raw string) color.RGBA {
		if err != nil {
			return color.RGBA{}
		}
		var c color.RGBA
		c, err = ParseHexColor(raw)
		if err != nil {
			err = fmt.Errorf("%s: %w", field, err)
		}
		return c
	}
	p.background = parse("background", t.Background)
	p.header = parse("text.header", t.Text.Header)
	p.name = parse("text.name", t.Text.Name)
	p.id = parse("text.id", t.Text.ID)
	p.detail = parse("text.detail", t.Text.Detail)
	p.meta = parse("text.meta", t.Text.Meta)
	if len(t.AccentStops) == 0 {
		return palette{}, fmt.Errorf("accent_stops: at least one color required")
	}
	for i, raw := range t.AccentStops {
		p.accent = append(p.accent, parse(fmt.Sprintf("accent_stops[%d]", i), raw))
	}
	p.status = make(map[domain.Status]color.RGBA, len(t.StatusColors))
	for key, raw := range t.StatusColors {
		status, perr := domain.ParseStatus(key)
		if perr != nil {
			return palette{}, fmt.Errorf("status_colors: unknown status %q", key)
		}
		p.status[status] = parse("status_colors."+key, raw)
	}
	if err != nil {
		return palette{}, err
	}
	if t.AccentHeight < 0 || t.AccentHeight > Height {
		return palette{}, fmt.Errorf("accent_height %d outside canvas", t.AccentHeight)
	}
	a := t.Avatar
	if a.Size <= 0 || a.X < 0 || a.Y < 0 || a.X+a.Size > Width || a.Y+a.Size > Height {
		return palette{}, fmt.Errorf("avatar %dpx at (%d,%d) does not fit a %dx%d canvas", a.Size, a.X, a.Y, Width, Height)
	}
	if w := a.textWidth(); w < MinTextWidth {
		return palette{}, fmt.Errorf("avatar at x=%d leaves a %dpx text column, need at least %dpx", a.X, w, MinTextWidth)
	}
	return p, nil
}

// MinTextWidth is the narrowest text column, left of the avatar, a theme may leave.
const MinTextWidth = 300

// textWidth is the space between the left margin and the avatar.
func (a AvatarPlacement) textWidth() int {
	return a.X - marginX - textGutter
}

// ParseHexColor parses #rgb or #rrggbb.
func ParseHexColor(raw string) (color.RGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", raw)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", raw)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
