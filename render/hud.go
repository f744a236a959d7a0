package render

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/cadence/clock"
	"github.com/lixenwraith/cadence/service"
	"github.com/lixenwraith/cadence/status"
)

// KeyTitle overrides the HUD title row
const KeyTitle = "title"

const defaultTitle = "cadence"

// Layout
const (
	rowTitle   = 0
	rowState   = 1
	rowMetrics = 3
	labelWidth = 20
)

// HUD is the graphics subsystem: one frame per cycle showing run state,
// game time and the live metrics of every cycle owner
type HUD struct {
	screen  tcell.Screen
	state   func() string
	game    clock.Source
	metrics *status.Registry

	title  string
	frames atomic.Int64
}

var _ service.Subsystem = (*HUD)(nil)

// NewHUD creates the graphics subsystem
// state returns the run state name; game is the clock whose elapsed time is shown
func NewHUD(screen tcell.Screen, state func() string, game clock.Source, metrics *status.Registry) *HUD {
	if metrics == nil {
		metrics = status.NewRegistry()
	}
	return &HUD{
		screen:  screen,
		state:   state,
		game:    game,
		metrics: metrics,
		title:   defaultTitle,
	}
}

// Name implements service.Subsystem
func (h *HUD) Name() string {
	return "graphics"
}

// Setup implements service.Subsystem
func (h *HUD) Setup(cfg service.Config) error {
	h.title = cfg.String(KeyTitle, defaultTitle)
	return nil
}

// Startup implements service.Subsystem
func (h *HUD) Startup(mode service.Mode) error {
	h.screen.HideCursor()
	return nil
}

// Cycle implements service.Subsystem: draws and presents one frame
func (h *HUD) Cycle() bool {
	h.Draw()
	h.screen.Show()
	h.frames.Add(1)
	return true
}

// Teardown implements service.Subsystem
func (h *HUD) Teardown() error {
	h.screen.Clear()
	h.screen.Show()
	return nil
}

// Frames returns the number of frames presented
func (h *HUD) Frames() int64 {
	return h.frames.Load()
}

// Draw renders the frame into the screen buffer without presenting it
func (h *HUD) Draw() {
	bg := tcell.StyleDefault.Background(RgbBackground)
	h.screen.Fill(' ', bg)
	width, height := h.screen.Size()

	drawText(h.screen, 0, rowTitle, width, h.title, bg.Foreground(RgbTitle).Bold(true))

	state := "NORMAL"
	if h.state != nil {
		state = h.state()
	}
	x := drawText(h.screen, 0, rowState, width, "state ", bg.Foreground(RgbLabel))
	x = drawText(h.screen, x, rowState, width, state, bg.Foreground(stateColor(state)).Bold(true))
	if h.game != nil {
		x = drawText(h.screen, x, rowState, width, "  time ", bg.Foreground(RgbLabel))
		drawText(h.screen, x, rowState, width, formatElapsed(h.game.Elapsed()), bg.Foreground(RgbValue))
	}

	row := rowMetrics
	for _, line := range h.metrics.Snapshot() {
		if row >= height {
			break
		}
		drawText(h.screen, 0, row, labelWidth, line.Key, bg.Foreground(RgbLabel))
		drawText(h.screen, labelWidth, row, width, line.Value, bg.Foreground(RgbValue))
		row++
	}

	if state == "PAUSED" {
		drawOverlay(h.screen, width, height, bg)
	}
}

// drawOverlay centers the pause banner
func drawOverlay(screen tcell.Screen, width, height int, bg tcell.Style) {
	const banner = " PAUSED "
	x := (width - len(banner)) / 2
	if x < 0 {
		x = 0
	}
	style := bg.Background(RgbPaused).Foreground(tcell.ColorBlack).Bold(true)
	drawText(screen, x, height/2, width, banner, style)
}

// drawText writes s from (x, y), clipped at maxX; returns the next free column
func drawText(screen tcell.Screen, x, y, maxX int, s string, style tcell.Style) int {
	for _, r := range s {
		if x >= maxX {
			break
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

// formatElapsed renders a duration as mm:ss.mmm
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := float64(d%time.Minute) / float64(time.Second)
	return fmt.Sprintf("%02d:%06.3f", minutes, seconds)
}
