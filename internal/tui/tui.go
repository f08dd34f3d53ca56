// Package tui is the full-screen live view behind the monitor-midi and
// monitor-mouse commands, so a rider can watch raw device activity scroll by
// without guessing which physical control just moved.
package tui

import (
	"fmt"

	"github.com/gdamore/tcell"
)

// View is a scrolling line log drawn full-screen, most recent line at the
// bottom, with a fixed header row above it.
type View struct {
	screen  tcell.Screen
	header  string
	lines   []string
	maxRows int
}

// Open initializes the terminal for full-screen drawing and prints header as
// a static first row. Callers must call Close when done.
func Open(header string) (*View, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("tui: opening screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("tui: initializing screen: %w", err)
	}
	s.SetStyle(tcell.StyleDefault)
	s.Clear()
	return &View{screen: s, header: header}, nil
}

// Close tears down the terminal, restoring the caller's shell.
func (v *View) Close() {
	v.screen.Fini()
}

// Events exposes the underlying tcell event source so callers can multiplex
// key and resize events alongside their own channels.
func (v *View) Events() <-chan tcell.Event {
	out := make(chan tcell.Event)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				close(out)
				return
			}
			out <- ev
		}
	}()
	return out
}

// HandleResize re-syncs the terminal after an *tcell.EventResize.
func (v *View) HandleResize() {
	v.screen.Sync()
}

// Log appends line to the scrollback and redraws, dropping the oldest line
// once the screen's height is exceeded.
func (v *View) Log(line string) {
	_, height := v.screen.Size()
	v.maxRows = height - 1
	if v.maxRows < 1 {
		v.maxRows = 1
	}
	v.lines = append(v.lines, line)
	if len(v.lines) > v.maxRows {
		v.lines = v.lines[len(v.lines)-v.maxRows:]
	}
	v.redraw()
}

func (v *View) redraw() {
	v.screen.Clear()
	putLine(v.screen, 0, v.header, tcell.StyleDefault.Bold(true))
	for i, line := range v.lines {
		putLine(v.screen, i+1, line, tcell.StyleDefault)
	}
	v.screen.Show()
}

func putLine(s tcell.Screen, row int, text string, style tcell.Style) {
	for col, r := range []rune(text) {
		s.SetContent(col, row, r, nil, style)
	}
}
