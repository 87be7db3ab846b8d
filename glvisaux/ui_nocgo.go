//go:build tinygo || !cgo

package glvisaux

import (
	"errors"

	"github.com/glvis/glvis/glprog"
)

var errNoCGO = errors.New("require cgo for UI rendering")

// Show opens a window, constructs a GL driver bound to its context and runs
// the paint loop over the painters returned by setup.
func Show(cfg UIConfig, setup func(drv glprog.Driver) ([]Painter, error)) error {
	return errNoCGO
}

// Init1x1 starts a hidden 1x1 GLFW window so the caller can work with the
// GPU without opening a visible window.
func Init1x1() (terminate func(), err error) {
	return nil, errNoCGO
}
