package app

import (
	"time"

	"github.com/gekko3d/levelview"
	"github.com/gekko3d/levelview/viewer/rt/core"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Loop drives one viewport from a GLFW window. Input callbacks only record
// state; rendering happens on the fixed-rate tick when a redraw is due.
type Loop struct {
	Window   *glfw.Window
	Viewport *Viewport
	TickRate int

	// Resize reconfigures the presentation surface. Optional.
	Resize func(width, height int) error
	// OnTick runs before every tick, e.g. to apply reloaded files.
	OnTick []func()

	logger levelview.Logger
}

func NewLoop(window *glfw.Window, vp *Viewport, tickRate int, logger levelview.Logger) *Loop {
	return &Loop{
		Window:   window,
		Viewport: vp,
		TickRate: tickRate,
		logger:   levelview.OrNop(logger),
	}
}

// Bind installs the window callbacks.
func (l *Loop) Bind() {
	vp := l.Viewport
	l.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if width == 0 || height == 0 {
			return
		}
		if l.Resize != nil {
			if err := l.Resize(width, height); err != nil {
				l.logger.Errorf("resize to %dx%d failed: %v", width, height, err)
				return
			}
		}
		vp.Resize(width, height)
	})

	l.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
			return
		}
		k := KeyFromGlfw(key)
		if k == core.KeyUnknown {
			return
		}
		switch action {
		case glfw.Press:
			vp.HandleKeyDown(k)
		case glfw.Release:
			vp.HandleKeyUp(k)
		}
	})

	l.Window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		b, ok := mouseFromGlfw[button]
		if !ok {
			return
		}
		if action == glfw.Press {
			vp.HandleMouseDown(b)
		} else if action == glfw.Release {
			vp.HandleMouseUp(b)
		}
	})

	l.Window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		vp.HandleMouseMove(xpos, ypos)
	})

	l.Window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		vp.HandleWheel(float32(yoff * 120))
	})
}

// Run blocks until the window is closed.
func (l *Loop) Run() {
	next := time.Now()
	for !l.Window.ShouldClose() {
		if wait := time.Until(next); wait > 0 {
			glfw.WaitEventsTimeout(wait.Seconds())
		} else {
			glfw.PollEvents()
		}
		now := time.Now()
		if now.Before(next) {
			continue
		}
		next = next.Add(time.Second / time.Duration(max(l.TickRate, 1)))
		if next.Before(now) {
			next = now
		}
		l.tick()
	}
}

func (l *Loop) tick() {
	for _, f := range l.OnTick {
		f()
	}
	if !l.Viewport.Tick() {
		return
	}
	if err := l.Viewport.RenderFrame(); err != nil {
		l.logger.Errorf("render failed: %v", err)
	}
}

// KeyFromGlfw maps a GLFW key to the viewer key set.
func KeyFromGlfw(k glfw.Key) core.Key {
	if k >= glfw.KeyA && k <= glfw.KeyZ {
		return core.KeyA + core.Key(k-glfw.KeyA)
	}
	return glfwKeys[k]
}

var glfwKeys = map[glfw.Key]core.Key{
	glfw.KeySpace:  core.KeySpace,
	glfw.KeyEscape: core.KeyEscape,
	glfw.KeyTab:    core.KeyTab,
	glfw.KeyF1:     core.KeyF1,
	glfw.KeyF2:     core.KeyF2,
	glfw.KeyF3:     core.KeyF3,
}

var mouseFromGlfw = map[glfw.MouseButton]core.MouseButton{
	glfw.MouseButtonLeft:   core.MouseButtonLeft,
	glfw.MouseButtonRight:  core.MouseButtonRight,
	glfw.MouseButtonMiddle: core.MouseButtonMiddle,
}
