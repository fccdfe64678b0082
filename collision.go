package main

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dgravesa/go-parallel/parallel"
)

/*

collision section

two passes per tick. detect only ever raises per-particle flags,
commit turns raised flags into deaths. commit starts after every
detect worker has finished.

*/

// default number of particles a detect worker claims at a time.
const defaultChunk = 256

type detector struct {
	workers int
	chunk   int
	found   [][]int32     // one candidate buffer per worker, reused every tick
	dead    []atomic.Bool // one flag per particle, only ever set to true by detect
}

func newDetector(workers, chunk int) *detector {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if chunk < 1 {
		chunk = defaultChunk
	}
	d := &detector{
		workers: workers,
		chunk:   chunk,
		found:   make([][]int32, workers),
	}
	for w := range d.found {
		d.found[w] = make([]int32, 0, 64)
	}
	return d
}

// grow the flag array to cover n particles.
func (d *detector) ensure(n int) {
	if len(d.dead) < n {
		d.dead = make([]atomic.Bool, n)
	}
}

// detect flags every alive particle that overlaps another alive particle.
// particles and the tree are only read.
func (d *detector) detect(particles []particle, tree *quadtree) {
	n := len(particles)
	d.ensure(n)
	if n == 0 {
		return
	}

	var cursor atomic.Int64
	wg := sync.WaitGroup{}
	wg.Add(d.workers)
	for w := 0; w < d.workers; w++ {
		go func(w int) {
			defer wg.Done()
			found := d.found[w]
			for {
				lo := int(cursor.Add(int64(d.chunk))) - d.chunk
				if lo >= n {
					break
				}
				hi := lo + d.chunk
				if hi > n {
					hi = n
				}
				for i := lo; i < hi; i++ {
					found = d.check(particles, tree, int32(i), found)
				}
			}
			d.found[w] = found[:0] // keep memory for the next tick
		}(w)
	}
	wg.Wait()
}

// check tests particle i against every candidate in its neighbourhood.
// returns the candidate buffer so its memory can be reused.
func (d *detector) check(particles []particle, tree *quadtree, i int32, found []int32) []int32 {
	p := &particles[i]
	if p.State != alive {
		return found
	}

	// square of twice the diameter centered on p
	r := rect{p.X - p.Diameter, p.Y - p.Diameter, p.Diameter * 2, p.Diameter * 2}
	found = tree.query(r, found[:0])
	for _, j := range found {
		if j == i {
			continue // identity, not position
		}
		other := &particles[j]
		if other.State != alive {
			continue
		}
		if overlaps(p, other) {
			d.dead[i].Store(true)
			d.dead[j].Store(true)
		}
	}
	return found
}

// commit marks every flagged particle dead and lowers its flag again.
// returns how many particles died this tick.
func (d *detector) commit(particles []particle) int {
	n := len(particles)
	if n == 0 {
		return 0
	}
	d.ensure(n)

	var killed atomic.Int64
	parallel.WithNumGoroutines(d.workers).For(n, func(i, _ int) {
		if !d.dead[i].Load() {
			return
		}
		d.dead[i].Store(false)
		if particles[i].State == alive {
			particles[i].State = dead
			killed.Add(1)
		}
	})
	return int(killed.Load())
}

// flagged reports whether particle i is currently flagged.
func (d *detector) flagged(i int) bool {
	return i < len(d.dead) && d.dead[i].Load()
}
