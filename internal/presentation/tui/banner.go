package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner of the CLI to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{` _        _                         _       _`, "#818cf8"},
		{`| |_ _ __(_) __ _ _ __   __ _ _   _| | __ _| |_ ___  _ __`, "#a78bfa"},
		{`| __| '__| |/ _' | '_ \ / _' | | | | |/ _' | __/ _ \| '__|`, "#c084fc"},
		{`| |_| |  | | (_| | | | | (_| | |_| | | (_| | || (_) | |`, "#e879f9"},
		{` \__|_|  |_|\__,_|_| |_|\__, |\__,_|_|\__,_|\__\___/|_|`, "#f472b6"},
		{`                        |___/`, "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
