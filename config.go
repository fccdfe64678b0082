package main

import (
	"errors"
	"flag"
	"fmt"
	"runtime"
)

var errInvalidConfig = errors.New("invalid configuration")

type config struct {
	// arena and population
	Width, Height int
	Count         int
	Diameter      int
	Aggressive    bool
	Turning       float64
	Seed          uint64

	// run
	Ticks    int // 0 runs until stopped
	Workers  int
	Capacity int
	Chunk    int
	Verbose  bool
	LogFile  string

	// output
	PNGDir         string
	SqliteFile     string
	ChunkDir       string
	ChunkFormat    string
	FramesPerChunk int
	Every          int
	TUI            bool
}

func defaultConfig() config {
	return config{
		Width:          1500,
		Height:         800,
		Count:          200000,
		Diameter:       1,
		Aggressive:     true,
		Turning:        0.02,
		Seed:           1,
		Workers:        runtime.NumCPU(),
		Capacity:       defaultCapacity,
		Chunk:          defaultChunk,
		ChunkFormat:    "gob",
		FramesPerChunk: 48,
		Every:          1,
	}
}

// parseFlags fills a config from command line args.
func parseFlags(args []string) (config, error) {
	cfg := defaultConfig()
	fs := flag.NewFlagSet("ballsim", flag.ContinueOnError)

	fs.IntVar(&cfg.Count, "n", cfg.Count, "number of particles")
	fs.IntVar(&cfg.Diameter, "d", cfg.Diameter, "particle diameter")
	fs.IntVar(&cfg.Width, "w", cfg.Width, "arena width")
	fs.IntVar(&cfg.Height, "h", cfg.Height, "arena height")
	fs.BoolVar(&cfg.Aggressive, "aggressive", cfg.Aggressive, "aggressive particles move at speed 2")
	fs.Float64Var(&cfg.Turning, "turn", cfg.Turning, "probability of turning each way per tick")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "master random seed")

	fs.IntVar(&cfg.Ticks, "ticks", cfg.Ticks, "number of ticks to run, 0 runs until interrupted")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "worker goroutines for movement and collisions")
	fs.IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "particles per quadtree node before it splits")
	fs.IntVar(&cfg.Chunk, "chunk", cfg.Chunk, "particles a collision worker claims at a time")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "log per tick diagnostics")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "write log output to this file")

	fs.StringVar(&cfg.PNGDir, "png", cfg.PNGDir, "write a png per recorded frame to this directory")
	fs.StringVar(&cfg.SqliteFile, "sqlite", cfg.SqliteFile, "record frames to this new sqlite database")
	fs.StringVar(&cfg.ChunkDir, "chunks", cfg.ChunkDir, "record frames as compressed chunks in this directory")
	fs.StringVar(&cfg.ChunkFormat, "chunkformat", cfg.ChunkFormat, "chunk encoding: gob or msgpack")
	fs.IntVar(&cfg.FramesPerChunk, "framesperchunk", cfg.FramesPerChunk, "frames per chunk file")
	fs.IntVar(&cfg.Every, "every", cfg.Every, "record every k-th tick")
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "show the arena in the terminal")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

// validate rejects configurations the simulation cannot run with.
func (c config) validate() error {
	switch {
	case c.Width < 1 || c.Height < 1:
		return fmt.Errorf("%w: arena %dx%d must be positive", errInvalidConfig, c.Width, c.Height)
	case c.Count < 0:
		return fmt.Errorf("%w: negative particle count %d", errInvalidConfig, c.Count)
	case c.Diameter < 1:
		return fmt.Errorf("%w: diameter %d must be at least 1", errInvalidConfig, c.Diameter)
	case c.Width < c.Diameter || c.Height < c.Diameter:
		return fmt.Errorf("%w: arena %dx%d is smaller than diameter %d", errInvalidConfig, c.Width, c.Height, c.Diameter)
	case c.Turning < 0 || c.Turning > 0.5:
		return fmt.Errorf("%w: turning probability %g outside [0, 0.5]", errInvalidConfig, c.Turning)
	case c.Ticks < 0:
		return fmt.Errorf("%w: negative tick count %d", errInvalidConfig, c.Ticks)
	case c.Workers < 1:
		return fmt.Errorf("%w: need at least one worker", errInvalidConfig)
	case c.Capacity < 1:
		return fmt.Errorf("%w: node capacity %d must be at least 1", errInvalidConfig, c.Capacity)
	case c.Chunk < 1:
		return fmt.Errorf("%w: chunk %d must be at least 1", errInvalidConfig, c.Chunk)
	case c.ChunkFormat != "gob" && c.ChunkFormat != "msgpack":
		return fmt.Errorf("%w: unknown chunk format %q", errInvalidConfig, c.ChunkFormat)
	case c.FramesPerChunk < 1:
		return fmt.Errorf("%w: frames per chunk %d must be at least 1", errInvalidConfig, c.FramesPerChunk)
	case c.Every < 1:
		return fmt.Errorf("%w: record interval %d must be at least 1", errInvalidConfig, c.Every)
	}
	return nil
}

// validateParticles checks particles built outside makeparticles
// against the arena. a particle wider than the arena has no valid position.
func (c config) validateParticles(particles []particle) error {
	for i := range particles {
		d := particles[i].Diameter
		if d < 1 {
			return fmt.Errorf("%w: particle %d has diameter %d", errInvalidConfig, i, d)
		}
		if c.Width < d || c.Height < d {
			return fmt.Errorf("%w: particle %d diameter %d exceeds arena %dx%d", errInvalidConfig, i, d, c.Width, c.Height)
		}
	}
	return nil
}
