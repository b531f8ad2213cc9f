package ebitenview

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/sprig"
)

// sysInfoRefresh is how often the readout is recomputed, in seconds.
const sysInfoRefresh = 0.5

// NewSystemInfo creates a screen-space node showing the current FPS and TPS
// in the top-left corner. The text refreshes every half second.
func NewSystemInfo() *sprig.Node {
	n := sprig.NewNode2D("sysinfo")
	n.ScreenSpace = true
	n.SetZIndex(1 << 20)

	var (
		since float64
		label = "FPS: -\nTPS: -"
	)
	n.OnProcess = func(dt float64) {
		since += dt
		if since < sysInfoRefresh {
			return
		}
		since = 0
		label = fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS())
	}
	n.OnDraw = func(vp sprig.Viewport) {
		size := vp.Size()
		x, y := -size.X/2+4, -size.Y/2+4
		c := vp.Canvas()
		c.FillRect(x-2, y-2, 100, 36, sprig.Color{A: 0.5})
		c.Text(label, x, y, sprig.ColorWhite)
	}
	return n
}
