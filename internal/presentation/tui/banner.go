package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`   __ _                _                            `, "#fbbf24"},
	{`  / _(_)_ __ ___  ___| |_ _ __ ___  __ _ _ __ ___  `, "#f59e0b"},
	{` | |_| | '__/ _ \/ __| __| '__/ _ \/ _' | '_ ' _ \ `, "#f97316"},
	{` |  _| | | |  __/\__ \ |_| | |  __/ (_| | | | | | |`, "#ef4444"},
	{` |_| |_|_|  \___||___/\__|_|  \___|\__,_|_| |_| |_|`, "#e11d48"},
}

// PrintBanner writes the ASCII art banner followed by the version and the
// listen address. p selects the color profile; termenv.Ascii prints plain text.
func PrintBanner(w io.Writer, p termenv.Profile, version, addr string) {
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  version %s  listening on %s\n\n", version,
		termenv.String(addr).Bold())
}
