package color

import (
	"os"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Bold   = "\033[1m"
)

// Color represents a colorizer that can be enabled or disabled
type Color struct {
	enabled bool
}

// New creates a new Color instance
func New(enabled bool) *Color {
	return &Color{enabled: enabled && shouldEnableColor()}
}

// shouldEnableColor determines if color should be enabled based on environment
func shouldEnableColor() bool {
	// Check NO_COLOR environment variable (https://no-color.org/)
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	term := os.Getenv("TERM")
	if term == "dumb" || term == "" {
		return false
	}

	return true
}

// Create colors a string to indicate created objects
func (c *Color) Create(text string) string {
	if !c.enabled {
		return text
	}
	return Green + text + Reset
}

// Update colors a string to indicate modified objects
func (c *Color) Update(text string) string {
	if !c.enabled {
		return text
	}
	return Yellow + text + Reset
}

// Drop colors a string to indicate removed objects
func (c *Color) Drop(text string) string {
	if !c.enabled {
		return text
	}
	return Red + text + Reset
}

// Header colors a string used as a section label
func (c *Color) Header(text string) string {
	if !c.enabled {
		return text
	}
	return Cyan + text + Reset
}

// Strong makes text bold
func (c *Color) Strong(text string) string {
	if !c.enabled {
		return text
	}
	return Bold + text + Reset
}
