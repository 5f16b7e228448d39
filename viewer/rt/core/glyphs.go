package core

import (
	"fmt"
	"unicode"

	"github.com/gekko3d/levelview"
)

// GlyphEntry is one rasterized character. Width and Height are the texture
// size in pixels; whitespace has metrics but no texture.
type GlyphEntry struct {
	Texture TextureHandle
	Width   float32
	Height  float32
	Metrics GlyphMetrics
}

// GlyphAtlas lazily rasterizes characters into per-glyph textures. Entries
// live until Dispose; nothing is evicted.
type GlyphAtlas struct {
	fonts  FontService
	device Device
	logger levelview.Logger
	glyphs map[rune]*GlyphEntry
	failed map[rune]error
}

func NewGlyphAtlas(fonts FontService, device Device, logger levelview.Logger) *GlyphAtlas {
	return &GlyphAtlas{
		fonts:  fonts,
		device: device,
		logger: levelview.OrNop(logger),
		glyphs: make(map[rune]*GlyphEntry),
		failed: make(map[rune]error),
	}
}

func (a *GlyphAtlas) FontSize() float32 {
	return a.fonts.Size()
}

// EnsureGlyph returns the cached entry for r, creating it on first use.
// A character that failed once keeps failing without another attempt.
func (a *GlyphAtlas) EnsureGlyph(r rune) (*GlyphEntry, error) {
	if e, ok := a.glyphs[r]; ok {
		return e, nil
	}
	if err, ok := a.failed[r]; ok {
		return nil, err
	}
	e, err := a.load(r)
	if err != nil {
		a.failed[r] = err
		a.logger.Warnf("glyph %q unavailable: %v", r, err)
		return nil, err
	}
	a.glyphs[r] = e
	return e, nil
}

func (a *GlyphAtlas) load(r rune) (*GlyphEntry, error) {
	m, err := a.fonts.Metrics(r)
	if err != nil {
		return nil, err
	}
	e := &GlyphEntry{Metrics: m}
	if unicode.IsSpace(r) {
		return e, nil
	}
	img, err := a.fonts.Rasterize(r)
	if err != nil {
		return nil, err
	}
	tex, err := a.device.CreateTexture(fmt.Sprintf("glyph %q", r), img)
	if err != nil {
		return nil, fmt.Errorf("failed to upload glyph texture: %w", err)
	}
	b := img.Bounds()
	e.Texture = tex
	e.Width = float32(b.Dx())
	e.Height = float32(b.Dy())
	return e, nil
}

func (a *GlyphAtlas) Len() int {
	return len(a.glyphs)
}

// Dispose releases every glyph texture. The atlas is empty afterwards and
// can be refilled.
func (a *GlyphAtlas) Dispose() {
	for r, e := range a.glyphs {
		if e.Texture != NoTexture {
			a.device.ReleaseTexture(e.Texture)
		}
		delete(a.glyphs, r)
	}
	clear(a.failed)
}
