package core

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var ErrNoGlyph = errors.New("font has no glyph")

// GlyphMetrics are in pixels at the font's point size. BearingY is the
// distance from the baseline up to the glyph top.
type GlyphMetrics struct {
	AdvanceX float32
	BearingX float32
	BearingY float32
	Height   float32
}

// FontService rasterizes single characters and reports their metrics.
type FontService interface {
	// Size is the point size glyphs are rasterized at.
	Size() float32
	// Rasterize renders r in white over a fully transparent background. The
	// image covers the whole character cell: advance wide, line tall.
	Rasterize(r rune) (*image.RGBA, error)
	Metrics(r rune) (GlyphMetrics, error)
}

type OpenTypeFonts struct {
	face    font.Face
	size    float32
	ascent  int
	descent int
}

// NewOpenTypeFonts loads a TTF/OTF file. An empty path selects the embedded
// Go Regular font.
func NewOpenTypeFonts(fontPath string, size float64) (*OpenTypeFonts, error) {
	fontBytes := goregular.TTF
	if fontPath != "" {
		var err error
		fontBytes, err = os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
	}

	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}

	m := face.Metrics()
	return &OpenTypeFonts{
		face:    face,
		size:    float32(size),
		ascent:  m.Ascent.Ceil(),
		descent: m.Descent.Ceil(),
	}, nil
}

func (o *OpenTypeFonts) Size() float32 {
	return o.size
}

func (o *OpenTypeFonts) Rasterize(r rune) (*image.RGBA, error) {
	adv, ok := o.face.GlyphAdvance(r)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoGlyph, r)
	}
	w := adv.Ceil()
	if w < 1 {
		w = 1
	}
	h := o.ascent + o.descent
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: o.face,
		Dot:  fixed.P(0, o.ascent),
	}
	d.DrawString(string(r))
	return img, nil
}

func (o *OpenTypeFonts) Metrics(r rune) (GlyphMetrics, error) {
	bounds, adv, ok := o.face.GlyphBounds(r)
	if !ok {
		return GlyphMetrics{}, fmt.Errorf("%w: %q", ErrNoGlyph, r)
	}
	return GlyphMetrics{
		AdvanceX: fixedToFloat(adv),
		BearingX: fixedToFloat(bounds.Min.X),
		BearingY: -fixedToFloat(bounds.Min.Y),
		Height:   fixedToFloat(bounds.Max.Y - bounds.Min.Y),
	}, nil
}

func (o *OpenTypeFonts) Close() error {
	return o.face.Close()
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64.0
}
