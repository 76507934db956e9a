package render

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/baldhumanity/neat-flappy/internal/game"
	"github.com/baldhumanity/neat-flappy/internal/sim"
)

const hudRows = 1

const (
	birdGlyph  = '@'
	pipeGlyph  = '█'
	guideGlyph = '.'
)

var (
	styleSky   = tcell.StyleDefault.Background(tcell.ColorBlack)
	styleHUD   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	stylePipe  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleBase  = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	styleBird  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleGuide = tcell.StyleDefault.Foreground(tcell.ColorRed)

	// alternating tiles make the scrolling ground visible
	baseGlyphs = []rune{'=', '-'}
)

// Terminal renders frames onto a tcell screen. The world is scaled to fit
// below a one-line HUD.
type Terminal struct {
	screen tcell.Screen

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	closed   sync.Once
}

// NewTerminal opens the controlling terminal.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	return NewTerminalWithScreen(screen)
}

// NewTerminalWithScreen initialises screen and starts watching it for quit keys.
func NewTerminalWithScreen(screen tcell.Screen) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}
	screen.SetStyle(styleSky)
	screen.HideCursor()
	screen.Clear()

	t := &Terminal{
		screen: screen,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.pollEvents()
	return t, nil
}

// Quit is closed when the user presses Esc, q or Ctrl-C.
func (t *Terminal) Quit() <-chan struct{} {
	return t.quit
}

func (t *Terminal) pollEvents() {
	defer close(t.done)
	for {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				t.quitOnce.Do(func() { close(t.quit) })
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	t.closed.Do(func() {
		t.screen.Fini()
		<-t.done
	})
	return nil
}

// viewport maps world pixels to screen cells.
type viewport struct {
	sx, sy float64
	w, h   int
}

func newViewport(w, h int) viewport {
	rows := max(h-hudRows, 1)
	return viewport{
		sx: float64(w) / game.WindowWidth,
		sy: float64(rows) / game.WindowHeight,
		w:  w,
		h:  h,
	}
}

func (v viewport) cell(x, y float64) (int, int) {
	return int(x * v.sx), int(y*v.sy) + hudRows
}

func (v viewport) set(s tcell.Screen, cx, cy int, r rune, style tcell.Style) {
	if cx < 0 || cx >= v.w || cy < hudRows || cy >= v.h {
		return
	}
	s.SetContent(cx, cy, r, nil, style)
}

// fill paints the world rectangle [x0, x1) x [y0, y1).
func (v viewport) fill(s tcell.Screen, x0, y0, x1, y1 float64, r rune, style tcell.Style) {
	cx0, cy0 := v.cell(x0, y0)
	cx1, cy1 := v.cell(x1, y1)
	for cy := cy0; cy < max(cy1, cy0+1); cy++ {
		for cx := cx0; cx < max(cx1, cx0+1); cx++ {
			v.set(s, cx, cy, r, style)
		}
	}
}

// line draws a Bresenham line between two world points.
func (v viewport) line(s tcell.Screen, x0, y0, x1, y1 float64, r rune, style tcell.Style) {
	ax, ay := v.cell(x0, y0)
	bx, by := v.cell(x1, y1)
	dx, dy := abs(bx-ax), -abs(by-ay)
	stepX, stepY := sign(bx-ax), sign(by-ay)
	e := dx + dy
	for {
		v.set(s, ax, ay, r, style)
		if ax == bx && ay == by {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			ax += stepX
		}
		if e2 <= dx {
			e += dx
			ay += stepY
		}
	}
}

// Render implements sim.Renderer.
func (t *Terminal) Render(f sim.Frame) {
	s := t.screen
	s.Clear()
	v := newViewport(s.Size())

	for _, p := range f.Pipes {
		v.fill(s, p.X, 0, p.X+game.PipeWidth, p.Height, pipeGlyph, stylePipe)
		v.fill(s, p.X, p.Bottom, p.X+game.PipeWidth, f.BaseY, pipeGlyph, stylePipe)
	}

	for i, x := range []float64{f.BaseX1, f.BaseX2} {
		v.fill(s, x, f.BaseY, x+game.BaseWidth, game.WindowHeight, baseGlyphs[i], styleBase)
	}

	if f.DrawLines && f.Target >= 0 && f.Target < len(f.Pipes) {
		p := f.Pipes[f.Target]
		gapX := p.X + game.PipeWidth/2
		for _, b := range f.Birds {
			cx, cy := b.X+game.BirdWidth/2, b.Y+game.BirdHeight/2
			v.line(s, cx, cy, gapX, p.Height, guideGlyph, styleGuide)
			v.line(s, cx, cy, gapX, p.Bottom, guideGlyph, styleGuide)
		}
	}

	for _, b := range f.Birds {
		cx, cy := v.cell(b.X+game.BirdWidth/2, b.Y+game.BirdHeight/2)
		v.set(s, cx, cy, birdGlyph, styleBird)
	}

	hud := fmt.Sprintf("Score: %d  Gen: %d  Alive: %d", f.Score, f.Generation, f.Alive)
	for i, r := range hud {
		if i >= v.w {
			break
		}
		s.SetContent(i, 0, r, nil, styleHUD)
	}
	s.Show()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

var _ sim.Renderer = (*Terminal)(nil)
