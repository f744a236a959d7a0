package render

import "github.com/gdamore/tcell/v2"

// HUD palette
var (
	RgbBackground = tcell.NewRGBColor(26, 27, 38)    // Tokyo Night background
	RgbTitle      = tcell.NewRGBColor(255, 165, 0)   // Orange
	RgbLabel      = tcell.NewRGBColor(180, 180, 180) // Brighter gray
	RgbValue      = tcell.NewRGBColor(255, 255, 255) // White
	RgbNormal     = tcell.NewRGBColor(0, 200, 0)     // Normal Green
	RgbPaused     = tcell.NewRGBColor(255, 255, 0)   // Bright Yellow
	RgbQuitting   = tcell.NewRGBColor(255, 80, 80)   // Normal Red
)

// stateColor returns the indicator color for a run state name
func stateColor(state string) tcell.Color {
	switch state {
	case "PAUSED":
		return RgbPaused
	case "QUITTING":
		return RgbQuitting
	default:
		return RgbNormal
	}
}
