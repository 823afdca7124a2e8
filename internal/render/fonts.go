package render

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type fontSet struct {
	regular *opentype.Font
	bold    *opentype.Font
	mono    *opentype.Font
}

// Parsed fonts are shared; faces are not safe for concurrent use and are
// built per render.
var loadFonts = sync.OnceValues(func() (fontSet, error) {
	var fs fontSet
	var err error
	if fs.regular, err = opentype.Parse(goregular.TTF); err != nil {
		return fontSet{}, fmt.Errorf("parse regular font: %w", err)
	}
	if fs.bold, err = opentype.Parse(gobold.TTF); err != nil {
		return fontSet{}, fmt.Errorf("parse bold font: %w", err)
	}
	if fs.mono, err = opentype.Parse(gomono.TTF); err != nil {
		return fontSet{}, fmt.Errorf("parse mono font: %w", err)
	}
	return fs, nil
})

type faces struct {
	title, subtitle, name, id, detail, meta font.Face
}

func (fs fontSet) faces() (faces, error) {
	var out faces
	specs := []struct {
		dst  *font.Face
		f    *opentype.Font
		size float64
	}{
		{&out.title, fs.bold, 36},
		{&out.subtitle, fs.regular, 24},
		{&out.name, fs.bold, 42},
		{&out.id, fs.mono, 32},
		{&out.detail, fs.regular, 28},
		{&out.meta, fs.regular, 22},
	}
	for _, s := range specs {
		face, err := opentype.NewFace(s.f, &opentype.FaceOptions{Size: s.size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			out.Close()
			return faces{}, fmt.Errorf("build %vpt face: %w", s.size, err)
		}
		*s.dst = face
	}
	return out, nil
}

func (f faces) Close() {
	for _, face := range []font.Face{f.title, f.subtitle, f.name, f.id, f.detail, f.meta} {
		if face != nil {
			_ = face.Close()
		}
	}
}
