package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func simScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func TestShade(t *testing.T) {
	cases := []struct {
		n    int
		want rune
	}{
		{1, '.'},
		{2, ':'},
		{3, '+'},
		{4, '+'},
		{5, '*'},
		{16, '#'},
		{17, '@'},
		{1000, '@'},
	}
	for _, c := range cases {
		if got, _ := shade(c.n); got != c.want {
			t.Errorf("shade(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestTUIRender(t *testing.T) {
	s := simScreen(t, 20, 11)
	v := newTUIView(s, 200, 100)

	particles := []particle{at(5, 5, 2), at(55, 55, 2), at(56, 57, 2), at(58, 52, 2), at(150, 50, 2)}
	particles[4].State = dead
	v.render(particles, tickStats{Tick: 7, Alive: 4})

	if r, _, _, _ := s.GetContent(0, 0); r != '.' {
		t.Errorf("cell (0, 0) = %q, want '.'", r)
	}
	if r, _, _, _ := s.GetContent(5, 5); r != '+' {
		t.Errorf("cell (5, 5) = %q, want '+'", r)
	}
	if r, _, _, _ := s.GetContent(15, 5); r != ' ' {
		t.Errorf("dead particle drawn as %q", r)
	}

	var status []rune
	for x := 0; x < 7; x++ {
		r, _, _, _ := s.GetContent(x, 10)
		status = append(status, r)
	}
	if string(status) != " tick 7" {
		t.Errorf("status row starts %q", string(status))
	}
}

func TestTUIRenderTinyScreen(t *testing.T) {
	s := simScreen(t, 5, 1)
	v := newTUIView(s, 100, 100)
	// only the status row fits, nothing to draw
	v.render([]particle{at(50, 50, 2)}, tickStats{})
}

func TestTUICellStaysOnScreen(t *testing.T) {
	s := simScreen(t, 30, 9)
	v := newTUIView(s, 300, 80)
	for _, p := range [][2]int{{0, 0}, {300, 80}, {299, 79}, {150, 40}} {
		cx, cy := v.cell(p[0], p[1])
		if cx < 0 || cx >= 30 || cy < 0 || cy >= 8 {
			t.Errorf("(%d, %d) mapped off screen to (%d, %d)", p[0], p[1], cx, cy)
		}
	}
}

func TestTUIStopKeys(t *testing.T) {
	s := simScreen(t, 20, 10)
	v := newTUIView(s, 100, 100)

	for _, ev := range []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl),
		tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone),
	} {
		if !v.handle(ev) {
			t.Errorf("%s did not stop", ev.Name())
		}
	}
	if v.handle(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("'x' stopped the run")
	}
}

func TestTUIResize(t *testing.T) {
	s := simScreen(t, 20, 10)
	v := newTUIView(s, 100, 100)
	s.SetSize(40, 12)
	if v.handle(tcell.NewEventResize(40, 12)) {
		t.Error("resize stopped the run")
	}
	if v.width != 40 || v.height != 12 || len(v.counts) != 40*11 {
		t.Errorf("view %dx%d with %d cells after resize", v.width, v.height, len(v.counts))
	}
}

func TestTUIStopRequested(t *testing.T) {
	s := simScreen(t, 20, 10)
	v := newTUIView(s, 100, 100)
	if v.stopRequested() {
		t.Fatal("stop requested with no events")
	}

	v.events <- tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone)
	if v.stopRequested() {
		t.Fatal("ordinary key stopped the run")
	}
	v.events <- tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)
	if !v.stopRequested() {
		t.Fatal("q did not stop the run")
	}

	close(v.events)
	if !v.stopRequested() {
		t.Error("closed event stream did not stop the run")
	}
}
