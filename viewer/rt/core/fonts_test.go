package core_test

import (
	"testing"

	"github.com/gekko3d/levelview/viewer/rt/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenTypeFontsEmbeddedFace(t *testing.T) {
	fonts, err := core.NewOpenTypeFonts("", 24)
	require.NoError(t, err)
	defer fonts.Close()

	assert.Equal(t, float32(24), fonts.Size())

	m, err := fonts.Metrics('A')
	require.NoError(t, err)
	assert.Greater(t, m.AdvanceX, float32(0))
	assert.Greater(t, m.BearingY, float32(0))
	assert.Greater(t, m.Height, float32(0))

	img, err := fonts.Rasterize('A')
	require.NoError(t, err)
	assert.Equal(t, int(m.AdvanceX+0.999), img.Bounds().Dx())

	lit := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			lit++
		}
	}
	assert.Positive(t, lit, "glyph coverage is drawn")
}

func TestOpenTypeFontsMissingFile(t *testing.T) {
	_, err := core.NewOpenTypeFonts("does/not/exist.ttf", 24)
	assert.Error(t, err)
}
