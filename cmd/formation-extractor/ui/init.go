package ui

import (
	"github.com/fatih/color"
)

var (
	noColorFlag bool

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// InitUI initializes the UI color settings.
func InitUI(noColor bool) {
	noColorFlag = noColor

	if noColor {
		color.NoColor = true
	}
}
