package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the forge ASCII art banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	// Warm gradient (Amber/Orange/Red)
	lines := []struct {
		text, color string
	}{
		{"   __                       ", "#fbbf24"},
		{"  / _| ___  _ __ __ _  ___  ", "#f59e0b"},
		{" | |_ / _ \\| '__/ _` |/ _ \\ ", "#f97316"},
		{" |  _| (_) | | | (_| |  __/ ", "#ea580c"},
		{" |_|  \\___/|_|  \\__, |\\___| ", "#dc2626"},
		{"                |___/       ", "#b91c1c"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
