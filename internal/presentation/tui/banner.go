package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	" _                        _             _   ",
	"| |_ _   _ _ __ _ __  ___| |_ __ _  ___| | __",
	"| __| | | | '__| '_ \\/ __| __/ _` |/ __| |/ /",
	"| |_| |_| | |  | | | \\__ \\ || (_| | (__|   < ",
	" \\__|\\__,_|_|  |_| |_|___/\\__\\__,_|\\___|_|\\_\\",
}

// Subtle gradient-like color scheme (Indigo/Violet).
var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

// PrintBanner writes the turnstack banner and version to w. Colors degrade to
// plain text when w is not a color terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(out.Color(bannerColors[i%len(bannerColors)])))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
