package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

/*

frame output section

*/

// frameJob is a copy of the store taken after a tick.
// sinks may read it freely, the simulation never touches it again.
type frameJob struct {
	Frame     int
	Particles []particle
}

type frameSink interface {
	consume(job *frameJob) error
	close() error
}

// sinkWorker feeds every job on ch to sink until ch is closed.
// a failing frame is logged and counted, the worker keeps draining so
// the simulation is never blocked by a broken sink.
func sinkWorker(sink frameSink, failures *atomic.Int64, wg *sync.WaitGroup, ch <-chan *frameJob) {
	defer wg.Done()
	for job := range ch {
		if err := sink.consume(job); err != nil {
			failures.Add(1)
			log.Printf("frame %d: %v", job.Frame, err)
		}
	}
}

type pngSink struct {
	dir           string
	width, height int // image size in pixels
	proj          mgl64.Mat4
	scale         float64 // pixels per arena unit
}

// newPNGSink writes images at most maxSide pixels on their long side,
// keeping the arena's aspect ratio.
func newPNGSink(dir string, arenaWidth, arenaHeight, maxSide int) (*pngSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	scale := float64(maxSide) / math.Max(float64(arenaWidth), float64(arenaHeight))
	if scale > 1 {
		scale = 1
	}
	return &pngSink{
		dir:    dir,
		width:  int(math.Max(1, math.Round(float64(arenaWidth)*scale))),
		height: int(math.Max(1, math.Round(float64(arenaHeight)*scale))),
		// arena y grows downwards like image y, so bottom is the arena height
		proj:  mgl64.Ortho2D(0, float64(arenaWidth), float64(arenaHeight), 0),
		scale: scale,
	}, nil
}

func (s *pngSink) consume(job *frameJob) error {
	film := s.draw(job)
	file, err := os.Create(filepath.Join(s.dir, fmt.Sprintf("%010d.png", job.Frame)))
	if err != nil {
		return err
	}
	if err := png.Encode(file, film); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (s *pngSink) close() error { return nil }

// draw paints alive particles as filled circles on a black background.
func (s *pngSink) draw(job *frameJob) *image.RGBA {
	film := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	draw.Draw(film, film.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	// arena border
	w, h := s.width-1, s.height-1
	plotline(film, gray, 0, 0, w, 0)
	plotline(film, gray, w, 0, w, h)
	plotline(film, gray, w, h, 0, h)
	plotline(film, gray, 0, h, 0, 0)

	for i := range job.Particles {
		p := &job.Particles[i]
		if p.State != alive {
			continue
		}
		x, y := s.toScreen(p.X, p.Y)
		r := int(float64(p.radius()) * s.scale)
		if r < 1 {
			film.Set(x, y, c(p.Kind))
			continue
		}
		plotcirclefilled(film, c(p.Kind), x, y, r)
	}
	return film
}

// toScreen maps an arena position to pixel coordinates.
func (s *pngSink) toScreen(x, y int) (int, int) {
	t := s.proj.Mul4x1(mgl64.Vec4{float64(x), float64(y), 0, 1})
	return mgl64.GLToScreenCoords(t.X(), t.Y(), s.width, s.height)
}

var (
	gray   = color.RGBA{128, 128, 128, 255}
	red    = color.RGBA{255, 0, 0, 255}
	yellow = color.RGBA{255, 255, 0, 255}
)

func c(k kind) color.Color {
	switch k {
	case aggressive:
		return red
	default:
		return yellow
	}
}

// plotline draws a simple line on img from (x0,y0) to (x1,y1).
//
// This is basically a copy of a version of Bresenham's line algorithm
// from https://en.wikipedia.org/wiki/Bresenham%27s_line_algorithm.
func plotline(img draw.Image, c color.Color, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// abs cuz no integer abs function in the Go standard library.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// plotcirclefilled draws a filled circle at (x0,y0) of radius r.
func plotcirclefilled(img draw.Image, c color.Color, x0, y0, r int) {
	rsqr := float64(r * r)
	for y := r; y >= 0; y-- {
		xright := int(math.Sqrt(rsqr - float64(y*y)))
		for x := -xright; x <= xright; x++ {
			img.Set(x0+x, y0+y, c)
			img.Set(x0+x, y0-y, c)
		}
	}
}
