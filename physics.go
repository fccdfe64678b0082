package main

import (
	"fmt"

	"golang.org/x/exp/rand"
)

/*

physics section

*/

type state uint8

const (
	alive state = iota
	dead
)

func (s state) String() string {
	if s == dead {
		return "dead"
	}
	return "alive"
}

// behavior class of a particle.
type kind uint8

const (
	normal kind = iota
	aggressive
)

// speed used by particles of kind k.
func (k kind) speed() int {
	if k == aggressive {
		return 2
	}
	return 1
}

// one of 8 compass directions, 0 is north (y decreasing) and each
// step turns 45 degrees clockwise.
type direction uint8

const numDirections = 8

// unit step for each direction.
var steps = [numDirections][2]int{
	{0, -1},  // N
	{1, -1},  // NE
	{1, 0},   // E
	{1, 1},   // SE
	{0, 1},   // S
	{-1, 1},  // SW
	{-1, 0},  // W
	{-1, -1}, // NW
}

func (d direction) turn(by int) direction {
	return direction((int(d) + by) % numDirections)
}

func (d direction) reverse() direction {
	return d.turn(numDirections / 2)
}

type particle struct {
	ID        uint32
	Diameter  int
	X, Y      int
	State     state
	Kind      kind
	Direction direction
	Turning   float64 // probability of turning each way per tick
	Speed     int
}

func (p *particle) radius() int {
	return p.Diameter / 2
}

// move advances an alive particle one tick inside a width x height arena.
// afterwards the position lies within [r, dim-r] on both axes.
func (p *particle) move(width, height int, rng *rand.Rand) {
	if p.State != alive {
		return
	}

	u := rng.Float64()
	switch {
	case u < p.Turning:
		p.Direction = p.Direction.turn(1)
	case u > 1-p.Turning:
		p.Direction = p.Direction.turn(numDirections - 1)
	}

	s := steps[p.Direction]
	p.X += s[0] * p.Speed
	p.Y += s[1] * p.Speed

	r := p.radius()
	if p.X <= r || p.X >= width-r || p.Y <= r || p.Y >= height-r {
		p.Direction = p.Direction.reverse()
	}

	p.X = clamp(p.X, r, width-r)
	p.Y = clamp(p.Y, r, height-r)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p particle) String() string {
	return fmt.Sprintf("#%d %s d:%d p:[%d, %d] dir:%d",
		p.ID, p.State, p.Diameter, p.X, p.Y, p.Direction)
}

// initializes n particles of one kind spread uniformly over the
// part of the arena their diameter allows.
func makeparticles(n, diameter int, k kind, turning float64, width, height int, rng *rand.Rand) []particle {
	particles := make([]particle, n)
	r := diameter / 2
	for i := range particles {
		particles[i] = particle{
			ID:        uint32(i),
			Diameter:  diameter,
			X:         r + rng.Intn(width-2*r+1),
			Y:         r + rng.Intn(height-2*r+1),
			Kind:      k,
			Direction: direction(rng.Intn(numDirections)),
			Turning:   turning,
			Speed:     k.speed(),
		}
	}
	return particles
}

func countAlive(particles []particle) (n int) {
	for i := range particles {
		if particles[i].State == alive {
			n++
		}
	}
	return
}

// squared distance between the centers of a and b.
func distSqr(a, b *particle) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// do a and b overlap? both radii are taken together, like the
// diameter sum halved, then squared.
func overlaps(a, b *particle) bool {
	combined := (a.Diameter + b.Diameter) / 2
	return distSqr(a, b) <= combined*combined
}
