package levelview

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_LevelsAndSinks(t *testing.T) {
	var out, errOut bytes.Buffer
	l := newLogger("viewer", false, &out, &errOut)

	l.Debugf("hidden %d", 1)
	l.Infof("frame %d", 2)
	l.Warnf("glyph %q", 'x')
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[viewer] INFO: frame 2")
	assert.Contains(t, errOut.String(), "[viewer] WARN: glyph 'x'")

	l.SetDebug(true)
	l.Debugf("shown")
	assert.Contains(t, out.String(), "[viewer] DEBUG: shown")
}

func TestDefaultLogger_Named(t *testing.T) {
	var out, errOut bytes.Buffer
	root := newLogger("levelview", true, &out, &errOut)
	gpu := root.Named("gpu")

	gpu.Errorf("lost device")
	assert.Contains(t, errOut.String(), "[levelview/gpu] ERROR: lost device")
	assert.True(t, gpu.DebugEnabled())

	root.SetDebug(false)
	assert.True(t, gpu.DebugEnabled(), "children keep their own flag")

	bare := newLogger("", false, &out, &errOut).Named("cache")
	bare.Infof("ok")
	assert.Contains(t, out.String(), "[cache] INFO: ok")
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
	l.Errorf("dropped")

	d := NewDefaultLogger("x", false)
	assert.Same(t, d, OrNop(d))
}
