package tui_test

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/firestream/internal/presentation/tui"
)

func TestPrintBanner_Plain(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, termenv.Ascii, "0.1.0", ":8080")

	out := buf.String()
	assert.Contains(t, out, "version 0.1.0")
	assert.Contains(t, out, ":8080")
	assert.NotContains(t, out, "\x1b[38", "no color sequences")
}
