//go:build !tinygo && cgo

package glvisaux

import (
	"log"
	"time"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"

	"github.com/glvis/glvis/gl33"
	"github.com/glvis/glvis/glprog"
)

// Show opens a window, constructs a GL driver bound to its context and runs
// the paint loop over the painters returned by setup. Show blocks until the
// window is closed or the configured context is cancelled. Must run on the
// main OS thread.
func Show(cfg UIConfig, setup func(drv glprog.Driver) ([]Painter, error)) error {
	cfg.defaults()
	window, terminate, err := startGLFW(cfg.Title, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer terminate()
	drv, err := gl33.New()
	if err != nil {
		return err
	}
	painters, err := setup(drv)
	if err != nil {
		return err
	}
	ctx := cfg.Context
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		gl.ClearColor(cfg.ClearColor[0], cfg.ClearColor[1], cfg.ClearColor[2], cfg.ClearColor[3])
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		for _, p := range painters {
			if err := p.Paint(); err != nil {
				return err
			}
		}
		window.SwapBuffers()
		glfw.PollEvents()
		time.Sleep(time.Second / 60) // Limit frame rate.
	}
	return nil
}

// Init1x1 starts a hidden 1x1 GLFW window so the caller can work with the
// GPU without opening a visible window. It returns a termination function to
// call once done running loads on the GPU.
func Init1x1() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "glvis",
		Version: [2]int{3, 3},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

func startGLFW(title string, width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, err
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		log.Println("failed to create GLFW window:", err)
		glfw.Terminate()
		return nil, nil, err
	}
	window.MakeContextCurrent()
	return window, glfw.Terminate, nil
}
