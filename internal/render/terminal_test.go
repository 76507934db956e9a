package render

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neat-flappy/internal/sim"
)

func newTestTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	term, err := NewTerminalWithScreen(screen)
	require.NoError(t, err)
	screen.SetSize(60, 41)
	t.Cleanup(func() { _ = term.Close() })
	return term, screen
}

func runeAt(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func row(s tcell.Screen, y, n int) string {
	var b strings.Builder
	for x := 0; x < n; x++ {
		b.WriteRune(runeAt(s, x, y))
	}
	return b.String()
}

func countRune(s tcell.Screen, want rune) int {
	w, h := s.Size()
	n := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if runeAt(s, x, y) == want {
				n++
			}
		}
	}
	return n
}

func testFrame() sim.Frame {
	return sim.Frame{
		Birds:      []sim.BirdState{{X: 230, Y: 350}},
		Pipes:      []sim.PipeState{{X: 400, Height: 300, Top: -340, Bottom: 500}},
		BaseY:      730,
		BaseX1:     0,
		BaseX2:     672,
		Score:      3,
		Generation: 7,
		Alive:      1,
		Target:     0,
	}
}

func TestTerminalRender(t *testing.T) {
	term, screen := newTestTerminal(t)
	term.Render(testFrame())

	assert.Equal(t, "Score: 3  Gen: 7  Alive: 1", row(screen, 0, 26))
	assert.Equal(t, birdGlyph, runeAt(screen, 26, 19))
	assert.Equal(t, pipeGlyph, runeAt(screen, 45, 5), "top pipe")
	assert.Equal(t, pipeGlyph, runeAt(screen, 45, 30), "bottom pipe")
	assert.Equal(t, ' ', runeAt(screen, 45, 20), "gap")
	assert.Equal(t, '=', runeAt(screen, 5, 38), "ground")
	assert.Zero(t, countRune(screen, guideGlyph), "guide lines are off")
}

func TestTerminalGuideLines(t *testing.T) {
	term, screen := newTestTerminal(t)

	f := testFrame()
	f.DrawLines = true
	term.Render(f)
	assert.Positive(t, countRune(screen, guideGlyph))

	f.Target = 3
	term.Render(f)
	assert.Zero(t, countRune(screen, guideGlyph), "an out of range target draws nothing")
}

func TestTerminalQuitKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tcell.Key
		r    rune
	}{
		{"escape", tcell.KeyEscape, 0},
		{"q", tcell.KeyRune, 'q'},
		{"ctrl-c", tcell.KeyCtrlC, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, screen := newTestTerminal(t)
			screen.InjectKey(tt.key, tt.r, tcell.ModNone)
			select {
			case <-term.Quit():
			case <-time.After(2 * time.Second):
				t.Fatal("quit was not signalled")
			}
		})
	}
}

func TestTerminalIgnoresOtherKeys(t *testing.T) {
	term, screen := newTestTerminal(t)
	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	select {
	case <-term.Quit():
		t.Fatal("unexpected quit")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTerminalCloseTwice(t *testing.T) {
	term, _ := newTestTerminal(t)
	assert.NoError(t, term.Close())
	assert.NoError(t, term.Close())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard{}.Render(testFrame()) })
}
