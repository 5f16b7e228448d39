package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/gekko3d/levelview"
	"github.com/gekko3d/levelview/viewer/rt/app"
	"github.com/gekko3d/levelview/viewer/rt/collision"
	"github.com/gekko3d/levelview/viewer/rt/core"
	"github.com/gekko3d/levelview/viewer/rt/gpu"
	"github.com/gekko3d/levelview/viewer/rt/level"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "levelview.yaml", "Viewer config file")
	levelPath := flag.String("level", "", "Level scene file; the built-in demo level when empty")
	dumpDemo := flag.String("dump-demo", "", "Write the demo level to this file and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	width := flag.Int("width", 0, "Window width, overrides the config")
	height := flag.Int("height", 0, "Window height, overrides the config")
	flag.Parse()

	logger := levelview.NewDefaultLogger("levelview", *debug)

	if *dumpDemo != "" {
		if err := writeDemo(*dumpDemo); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		logger.Infof("demo level written to %s", *dumpDemo)
		return
	}

	cfg, err := levelview.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	override := func(c *levelview.Config) {
		if *debug {
			c.Debug = true
		}
		if *width > 0 {
			c.Window.Width = *width
		}
		if *height > 0 {
			c.Window.Height = *height
		}
	}
	override(&cfg)
	logger.SetDebug(cfg.Debug)

	scene := level.Demo()
	if *levelPath != "" {
		if scene, err = level.Load(*levelPath); err != nil {
			panic(err)
		}
	}
	changes := level.NewChangeTracker()
	editor := level.NewEditor(scene, changes)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	renderer, err := gpu.NewRenderer(window, logger.Named("gpu"))
	if err != nil {
		panic(err)
	}
	defer renderer.Release()

	fonts, err := core.NewOpenTypeFonts(cfg.FontPath, cfg.FontSize)
	if err != nil {
		panic(err)
	}
	defer fonts.Close()

	fbWidth, fbHeight := window.GetFramebufferSize()
	vp := app.NewViewport(renderer, fonts, fbWidth, fbHeight, logger.Named("viewport"))
	vp.ApplyConfig(cfg)
	collision.New(vp, scene, changes)
	defer vp.Dispose()

	loop := app.NewLoop(window, vp, cfg.TickRate, logger)
	loop.Resize = renderer.Resize
	loop.Bind()

	if w, err := levelview.WatchConfig(*configPath, logger.Named("config")); err != nil {
		logger.Warnf("config reload disabled: %v", err)
	} else {
		defer w.Close()
		loop.OnTick = append(loop.OnTick, func() {
			select {
			case next := <-w.Updates():
				override(&next)
				logger.SetDebug(next.Debug)
				vp.ApplyConfig(next)
				loop.TickRate = next.TickRate
				logger.Infof("config reloaded from %s", *configPath)
			default:
			}
		})
	}

	if *levelPath != "" {
		if w, err := levelview.WatchFile(*levelPath, level.Load, logger.Named("level")); err != nil {
			logger.Warnf("level reload disabled: %v", err)
		} else {
			defer w.Close()
			loop.OnTick = append(loop.OnTick, func() {
				select {
				case next := <-w.Updates():
					cs := editor.Replace(next)
					vp.Invalidate()
					logger.Infof("level reloaded: collision changed=%v, sections %v", cs.Collision, cs.Instances.Slice())
				default:
				}
			})
		}
	}

	logger.Infof("viewing %q (%d sections)", scene.Name, len(scene.SectionIDs()))
	loop.Run()
}

func writeDemo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := level.Encode(f, level.Demo()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
