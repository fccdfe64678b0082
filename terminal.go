package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// density glyphs, from one alive particle in a cell up to a crowded one
var shades = []rune{'.', ':', '+', '*', '#', '@'}

var (
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	cellStyles  = []tcell.Style{
		tcell.StyleDefault.Foreground(tcell.ColorGreen),
		tcell.StyleDefault.Foreground(tcell.ColorYellow),
		tcell.StyleDefault.Foreground(tcell.ColorRed),
	}
)

// tuiView draws the arena scaled down onto a terminal screen. the last
// row holds a status line.
type tuiView struct {
	screen        tcell.Screen
	arenaW        int
	arenaH        int
	counts        []int // alive particles per screen cell
	events        chan tcell.Event
	width, height int
}

func newTUIView(screen tcell.Screen, arenaW, arenaH int) *tuiView {
	v := &tuiView{
		screen: screen,
		arenaW: arenaW,
		arenaH: arenaH,
		events: make(chan tcell.Event, 100),
	}
	v.resize()
	return v
}

// listen forwards screen events until the screen is finalized.
func (v *tuiView) listen() {
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				close(v.events)
				return
			}
			v.events <- ev
		}
	}()
}

func (v *tuiView) resize() {
	v.width, v.height = v.screen.Size()
	rows := v.height - 1
	if rows < 0 {
		rows = 0
	}
	v.counts = make([]int, v.width*rows)
}

// stopRequested drains pending events. true once the user asked to quit
// or the screen went away.
func (v *tuiView) stopRequested() bool {
	for {
		select {
		case ev, ok := <-v.events:
			if !ok {
				return true
			}
			if v.handle(ev) {
				return true
			}
		default:
			return false
		}
	}
}

// handle reacts to one event and reports whether it asks to stop.
func (v *tuiView) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
			(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
			return true
		}
	case *tcell.EventResize:
		v.resize()
		v.screen.Sync()
	}
	return false
}

// cell maps an arena position to a screen cell.
func (v *tuiView) cell(x, y int) (int, int) {
	rows := v.height - 1
	cx := x * v.width / v.arenaW
	cy := y * rows / v.arenaH
	if cx >= v.width {
		cx = v.width - 1
	}
	if cy >= rows {
		cy = rows - 1
	}
	return cx, cy
}

func (v *tuiView) render(particles []particle, stats tickStats) {
	rows := v.height - 1
	if v.width < 1 || rows < 1 {
		return
	}
	for i := range v.counts {
		v.counts[i] = 0
	}
	for i := range particles {
		if particles[i].State != alive {
			continue
		}
		cx, cy := v.cell(particles[i].X, particles[i].Y)
		v.counts[cy*v.width+cx]++
	}

	v.screen.Clear()
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < v.width; cx++ {
			n := v.counts[cy*v.width+cx]
			if n == 0 {
				continue
			}
			r, style := shade(n)
			v.screen.SetContent(cx, cy, r, nil, style)
		}
	}

	status := fmt.Sprintf(" tick %d  alive %d  killed %d  dropped %d  %.1fms  [q] quit ",
		stats.Tick, stats.Alive, stats.Killed, stats.Dropped, float64(stats.total().Microseconds())/1000)
	for x := 0; x < v.width; x++ {
		r := ' '
		if x < len(status) {
			r = rune(status[x])
		}
		v.screen.SetContent(x, rows, r, nil, statusStyle)
	}
	v.screen.Show()
}

// shade picks the glyph and color for a cell holding n alive particles.
func shade(n int) (rune, tcell.Style) {
	i := 0
	for limit := 1; n > limit && i < len(shades)-1; limit *= 2 {
		i++
	}
	style := cellStyles[i*len(cellStyles)/len(shades)]
	return shades[i], style
}
