// Package glvisaux helps users get a window and GL context set up quickly
// for drawing visuals. Ideally applications implement their own event loop
// since windowing needs vary widely; this package covers the common case of
// one window repainting a set of visuals.
package glvisaux

import "context"

// Painter is anything that can draw itself with the current GL context.
type Painter interface {
	Paint() error
}

// UIConfig configures the window opened by Show.
type UIConfig struct {
	Title  string
	Width  int
	Height int
	// ClearColor is the RGBA background color. Zero value is opaque black.
	ClearColor [4]float32
	// Context cancels the render loop when done.
	Context context.Context
}

func (cfg *UIConfig) defaults() {
	if cfg.Title == "" {
		cfg.Title = "glvis"
	}
	if cfg.Width == 0 {
		cfg.Width = 800
	}
	if cfg.Height == 0 {
		cfg.Height = 600
	}
	if cfg.ClearColor == ([4]float32{}) {
		cfg.ClearColor[3] = 1
	}
}
