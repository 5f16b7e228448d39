package app_test

import (
	"testing"

	"github.com/gekko3d/levelview/viewer/rt/app"
	"github.com/gekko3d/levelview/viewer/rt/core"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

func TestKeyFromGlfw(t *testing.T) {
	assert.Equal(t, core.KeyA, app.KeyFromGlfw(glfw.KeyA))
	assert.Equal(t, core.KeyW, app.KeyFromGlfw(glfw.KeyW))
	assert.Equal(t, core.KeyZ, app.KeyFromGlfw(glfw.KeyZ))
	assert.Equal(t, core.KeyF2, app.KeyFromGlfw(glfw.KeyF2))
	assert.Equal(t, core.KeyUnknown, app.KeyFromGlfw(glfw.KeyLeftShift))
}
