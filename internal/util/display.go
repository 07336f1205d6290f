package util

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal control sequences
const (
	ColorReset = "\033[0m"
	ColorCyan  = "\033[36m"
	ColorGreen = "\033[32m"
	ColorRed   = "\033[31m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ClearScreen       = "\033[2J"     // Clear entire screen
	ClearLine         = "\033[2K"     // Clear entire line
	ClearScrollback   = "\033[3J"     // Clear scrollback buffer
	ResetScrollRegion = "\033[r"      // Reset scroll region
	MoveCursorHome    = "\033[H"      // Move cursor to home position
	HideCursor        = "\033[?25l"   // Hide cursor
	ShowCursor        = "\033[?25h"   // Show cursor
	AltScreenOn       = "\033[?1049h" // Enter alternate screen buffer
	AltScreenOff      = "\033[?1049l" // Leave alternate screen buffer
)

// GetDisplayWidth calculates the display width of a string, accounting for wide runes
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// PadString pads s with spaces to the display width, truncating when it is wider
func PadString(s string, width int, leftAlign bool) string {
	actual := runewidth.StringWidth(s)
	if actual > width {
		return runewidth.Truncate(s, width, "")
	}
	padding := strings.Repeat(" ", width-actual)
	if leftAlign {
		return s + padding
	}
	return padding + s
}

// MoveCursor returns ANSI sequence to move cursor to specific position
func MoveCursor(row, col int) string {
	return fmt.Sprintf("\033[%d;%dH", row, col)
}

// HeatRGB maps a count to a white-to-red ramp relative to maxCount.
func HeatRGB(count, maxCount int) (r, g, b uint8) {
	if count <= 0 || maxCount <= 0 {
		return 255, 255, 255
	}
	red := int(float64(count) / float64(maxCount+25) * 255)
	if red > 255 {
		red = 255
	}
	return 255, uint8(255 - red), uint8(255 - red)
}

// Background returns the truecolor background escape sequence for r, g, b
func Background(r, g, b uint8) string {
	return fmt.Sprintf("\033[48;2;%d;%d;%dm", r, g, b)
}
