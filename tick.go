package main

import (
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

/*

tick section

one tick: rebuild the tree, move, reinsert, detect, commit.
nothing in here stops half way through a tick; the host decides
between ticks whether to ask for another.

*/

type tickStats struct {
	Tick     int
	Alive    int
	Inserted int
	Dropped  int // alive particles no tree node accepted
	Killed   int
	Nodes    int

	Rebuild, Move, Insert, Detect, Commit time.Duration
}

func (s tickStats) total() time.Duration {
	return s.Rebuild + s.Move + s.Insert + s.Detect + s.Commit
}

func (s tickStats) String() string {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	return fmt.Sprintf("tick %d: %d alive, %d killed, %d dropped, %d nodes | rebuild %.2fms move %.2fms insert %.2fms detect %.2fms commit %.2fms",
		s.Tick, s.Alive, s.Killed, s.Dropped, s.Nodes,
		ms(s.Rebuild), ms(s.Move), ms(s.Insert), ms(s.Detect), ms(s.Commit))
}

type simulation struct {
	cfg       config
	bounds    rect
	particles []particle
	tree      *quadtree
	detector  *detector
	rngs      []*rand.Rand // one per movement block
	tick      int
}

// newSimulation takes ownership of particles.
func newSimulation(cfg config, particles []particle) (*simulation, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateParticles(particles); err != nil {
		return nil, err
	}

	// every movement block gets its own generator, seeded from the master
	master := rand.New(rand.NewSource(cfg.Seed))
	rngs := make([]*rand.Rand, cfg.Workers)
	for i := range rngs {
		rngs[i] = rand.New(rand.NewSource(master.Uint64()))
	}

	return &simulation{
		cfg:       cfg,
		bounds:    rect{0, 0, cfg.Width, cfg.Height},
		particles: particles,
		tree:      newQuadtree(cfg.Capacity),
		detector:  newDetector(cfg.Workers, cfg.Chunk),
		rngs:      rngs,
	}, nil
}

// runTick advances the simulation one step.
func (s *simulation) runTick() (stats tickStats) {
	s.tick++
	stats.Tick = s.tick

	start := time.Now()
	s.tree.reset(s.bounds, s.particles)
	stats.Rebuild = time.Since(start)

	start = time.Now()
	s.moveAll()
	stats.Move = time.Since(start)

	start = time.Now()
	stats.Inserted, stats.Dropped = s.insertAll()
	stats.Nodes = s.tree.size()
	stats.Insert = time.Since(start)
	if stats.Dropped > 0 && s.cfg.Verbose {
		log.Printf("tick %d: %d of %d alive particles not indexed", s.tick, stats.Dropped, stats.Inserted+stats.Dropped)
	}

	start = time.Now()
	s.detector.detect(s.particles, s.tree)
	stats.Detect = time.Since(start)

	start = time.Now()
	stats.Killed = s.detector.commit(s.particles)
	stats.Commit = time.Since(start)

	stats.Alive = countAlive(s.particles)
	return
}

// moveAll moves every particle. the store is split into one contiguous
// block per generator, so a given seed and worker count always produce
// the same run.
func (s *simulation) moveAll() {
	n := len(s.particles)
	if n == 0 {
		return
	}
	groups := len(s.rngs)
	groupsize := (n + groups - 1) / groups

	wg := sync.WaitGroup{}
	for g := 0; g < groups; g++ {
		lo := g * groupsize
		if lo >= n {
			break
		}
		hi := lo + groupsize
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(group []particle, rng *rand.Rand) {
			defer wg.Done()
			for i := range group {
				group[i].move(s.cfg.Width, s.cfg.Height, rng)
			}
		}(s.particles[lo:hi], s.rngs[g])
	}
	wg.Wait()
}

// insertAll pushes every alive particle into the fresh tree.
func (s *simulation) insertAll() (inserted, dropped int) {
	for i := range s.particles {
		if s.particles[i].State != alive {
			continue
		}
		if s.tree.insert(int32(i)) {
			inserted++
		} else {
			dropped++
		}
	}
	return
}

// snapshot copies the store for a renderer.
func (s *simulation) snapshot() []particle {
	c := make([]particle, len(s.particles))
	copy(c, s.particles)
	return c
}
