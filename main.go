// simulates a crowd of moving balls that die when they touch.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gdamore/tcell/v2"
	"golang.org/x/exp/rand"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
)

// longest side of a png frame, in pixels
const pngMaxSide = 1500

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	if cfg.LogFile != "" {
		f, err := os.Create(cfg.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	} else if cfg.TUI {
		log.SetOutput(io.Discard) // would scribble over the screen
	}

	k := normal
	if cfg.Aggressive {
		k = aggressive
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	particles := makeparticles(cfg.Count, cfg.Diameter, k, cfg.Turning, cfg.Width, cfg.Height, rng)
	sim, err := newSimulation(cfg, particles)
	if err != nil {
		return err
	}

	sinks, err := openSinks(cfg)
	if err != nil {
		return err
	}
	rec := newRecorder(sinks)

	var view *tuiView
	if cfg.TUI {
		screen, err := tcell.NewScreen()
		if err != nil {
			rec.close()
			return err
		}
		if err := screen.Init(); err != nil {
			rec.close()
			return err
		}
		defer screen.Fini()
		view = newTUIView(screen, cfg.Width, cfg.Height)
		view.listen()
	} else {
		printParameters(cfg, len(particles), len(sinks))
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	start := time.Now()
	totalKilled, totalDropped := 0, 0
	for cfg.Ticks == 0 || sim.tick < cfg.Ticks {
		stats := sim.runTick()
		totalKilled += stats.Killed
		totalDropped += stats.Dropped
		if cfg.Verbose {
			log.Print(stats)
		}

		// enque a copy of the store for the sinks
		if rec.active() && stats.Tick%cfg.Every == 0 {
			rec.send(&frameJob{Frame: stats.Tick, Particles: sim.snapshot()})
		}

		if view != nil {
			view.render(sim.particles, stats)
			if view.stopRequested() {
				break
			}
		} else {
			printProgress(stats, start)
		}

		if interrupted(interrupt) {
			break
		}
	}

	err = rec.close()
	if view == nil {
		fmt.Printf("\n%s %s ticks, %s killed, %s alive, %s dropped insertions, took %s\n",
			valueStyle.Render("Done."),
			valueStyle.Render(fmt.Sprint(sim.tick)),
			valueStyle.Render(fmt.Sprint(totalKilled)),
			valueStyle.Render(fmt.Sprint(countAlive(sim.particles))),
			valueStyle.Render(fmt.Sprint(totalDropped)),
			time.Since(start).Truncate(time.Millisecond))
	}
	return err
}

func interrupted(ch <-chan os.Signal) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// openSinks creates every frame sink the config asks for.
func openSinks(cfg config) ([]frameSink, error) {
	var sinks []frameSink
	fail := func(err error) ([]frameSink, error) {
		for _, s := range sinks {
			s.close()
		}
		return nil, err
	}

	if cfg.PNGDir != "" {
		s, err := newPNGSink(cfg.PNGDir, cfg.Width, cfg.Height, pngMaxSide)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if cfg.SqliteFile != "" {
		s, err := newSqliteSink(cfg.SqliteFile)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if cfg.ChunkDir != "" {
		s, err := newChunkSink(cfg.ChunkDir, cfg.ChunkFormat, cfg.FramesPerChunk)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// recorder hands every frame to each sink on its own worker goroutine.
type recorder struct {
	sinks    []frameSink
	chans    []chan *frameJob
	wg       sync.WaitGroup
	failures atomic.Int64
}

func newRecorder(sinks []frameSink) *recorder {
	r := &recorder{sinks: sinks}
	r.wg.Add(len(sinks))
	for _, s := range sinks {
		ch := make(chan *frameJob, 32)
		r.chans = append(r.chans, ch)
		go sinkWorker(s, &r.failures, &r.wg, ch)
	}
	return r
}

func (r *recorder) active() bool { return len(r.sinks) > 0 }

// send shares one job between all sinks; they only read it.
func (r *recorder) send(job *frameJob) {
	for _, ch := range r.chans {
		ch <- job
	}
}

// close drains the workers and closes every sink.
func (r *recorder) close() error {
	for _, ch := range r.chans {
		close(ch)
	}
	r.wg.Wait()

	var errs []error
	for _, s := range r.sinks {
		if err := s.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if n := r.failures.Load(); n > 0 {
		errs = append(errs, fmt.Errorf("%d frame(s) failed to record", n))
	}
	return errors.Join(errs...)
}

func printParameters(cfg config, n, sinks int) {
	row := func(label string, value interface{}) {
		fmt.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), valueStyle.Render(fmt.Sprint(value)))
	}
	row("particles", n)
	row("diameter", cfg.Diameter)
	row("arena", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	row("aggressive", cfg.Aggressive)
	row("turning", cfg.Turning)
	row("seed", cfg.Seed)
	row("workers", cfg.Workers)
	row("capacity", cfg.Capacity)
	if cfg.Ticks == 0 {
		row("ticks", "until interrupted")
	} else {
		row("ticks", cfg.Ticks)
	}
	row("sinks", sinks)
}

func printProgress(stats tickStats, start time.Time) {
	avg := time.Since(start) / time.Duration(stats.Tick)
	fmt.Printf("tick %d, %d alive, %d killed, %s/tick (detect %s), %s elapsed                    \r",
		stats.Tick, stats.Alive, stats.Killed,
		avg.Truncate(time.Microsecond),
		stats.Detect.Truncate(time.Microsecond),
		time.Since(start).Truncate(time.Second))
}
