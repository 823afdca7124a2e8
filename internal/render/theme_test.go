package render

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"idcard/pkg/domain"
)

func writeTheme(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "theme.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write theme: %v", err)
	}
	return path
}

func TestDefaultThemeValid(t *testing.T) {
	if err := DefaultTheme().Validate(); err != nil {
		t.Fatalf("default theme invalid: %v", err)
	}
}

func TestLoadThemeOverridesDefaults(t *testing.T) {
	path := writeTheme(t, `
title: "COMMUNITY OF MAKERS"
background: "#000"
status_colors:
  revoked: "#800000"
avatar:
  x: 620
  y: 160
  size: 200
`)
	theme, err := LoadTheme(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if theme.Title != "COMMUNITY OF MAKERS" || theme.Subtitle != DefaultTheme().Subtitle {
		t.Fatalf("unexpected titles %q / %q", theme.Title, theme.Subtitle)
	}
	if theme.Avatar != (AvatarPlacement{X: 620, Y: 160, Size: 200}) {
		t.Fatalf("unexpected avatar %+v", theme.Avatar)
	}
	pal, err := theme.palette()
	if err != nil {
		t.Fatalf("palette: %v", err)
	}
	if pal.background != (color.RGBA{0, 0, 0, 0xff}) {
		t.Fatalf("background %v", pal.background)
	}
	if pal.status[domain.StatusRevoked] != (color.RGBA{0x80, 0, 0, 0xff}) {
		t.Fatalf("revoked color %v", pal.status[domain.StatusRevoked])
	}
	if _, ok := pal.status[domain.StatusActive]; !ok {
		t.Fatalf("default status colors should survive a partial override")
	}
	if _, err := New(theme); err != nil {
		t.Fatalf("renderer from loaded theme: %v", err)
	}
}

func TestLoadThemeErrors(t *testing.T) {
	cases := map[string]string{
		"bad color":      "background: \"#zzzzzz\"\n",
		"off canvas":     "avatar: {x: 800, y: 150, size: 220}\n",
		"unknown status": "status_colors: {expired: \"#fff\"}\n",
		"no accent":      "accent_stops: []\n",
		"malformed yaml": "title: [unterminated\n",
	}
	for name, body := range cases {
		if _, err := LoadTheme(writeTheme(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadTheme(filepath.Join(t.TempDir(), "missing.yml")); err == nil || !strings.Contains(err.Error(), "read theme") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestValidateRejectsNarrowTextColumn(t *testing.T) {
	theme := DefaultTheme()
	theme.Avatar = AvatarPlacement{X: 40, Y: 150, Size: 220}
	err := theme.Validate()
	if err == nil || !strings.Contains(err.Error(), "text column") {
		t.Fatalf("avatar on the left should be rejected, got %v", err)
	}
	if _, err := New(theme); err == nil {
		t.Fatal("renderer accepted a theme with no room for text")
	}

	theme.Avatar.X = marginX + textGutter + MinTextWidth
	if err := theme.Validate(); err != nil {
		t.Fatalf("minimum text column rejected: %v", err)
	}
	if _, err := LoadTheme(writeTheme(t, "avatar: {x: 300, y: 150, size: 220}\n")); err == nil {
		t.Fatal("LoadTheme accepted a 220px text column")
	}
}

func TestParseHexColor(t *testing.T) {
	for raw, want := range map[string]color.RGBA{
		"#fbbf24":   {0xfb, 0xbf, 0x24, 0xff},
		"fff":       {0xff, 0xff, 0xff, 0xff},
		" #0F172A ": {0x0f, 0x17, 0x2a, 0xff},
	} {
		got, err := ParseHexColor(raw)
		if err != nil || got != want {
			t.Fatalf("ParseHexColor(%q) = %v, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"", "#12", "#1234567", "#gggggg"} {
		if _, err := ParseHexColor(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
