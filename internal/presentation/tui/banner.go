package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"     _                       _          ", "#818cf8"},
		{"  __| |_ ___ _ ____ __ _(_)___ ___ ", "#a78bfa"},
		{" (_-<  _/ -_) '_ \\ V  V / (_-</ -_)", "#c084fc"},
		{" /__/\\__\\___| .__/\\_/\\_/|_/__/\\___|", "#e879f9"},
		{"            |_|                     ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
