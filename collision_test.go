package main

import (
	"fmt"
	"testing"

	"golang.org/x/exp/rand"
)

// detectOnce indexes particles and runs both collision passes.
func detectOnce(particles []particle, width, height, workers, chunk int) (*detector, int) {
	tree, _ := buildIndex(particles, width, height)
	d := newDetector(workers, chunk)
	d.detect(particles, tree)
	return d, d.commit(particles)
}

func deadSet(particles []particle) []bool {
	s := make([]bool, len(particles))
	for i := range particles {
		s[i] = particles[i].State == dead
	}
	return s
}

// onQueryEdge reports pairs of equal diameter touching along an axis at
// exactly one diameter; each sits on the other's open query boundary.
func onQueryEdge(a, b *particle) bool {
	if a.Diameter != b.Diameter {
		return false
	}
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	return (dx == a.Diameter && dy == 0) || (dy == a.Diameter && dx == 0)
}

func TestTwoOverlappingParticlesDie(t *testing.T) {
	particles := []particle{at(40, 50, 10), at(45, 50, 10)}
	_, killed := detectOnce(particles, 100, 100, 2, 1)
	if killed != 2 {
		t.Errorf("killed %d, want 2", killed)
	}
	for i, p := range particles {
		if p.State != dead {
			t.Errorf("particle %d still alive", i)
		}
	}
}

func TestSeparatedParticlesLive(t *testing.T) {
	particles := []particle{at(20, 20, 10), at(40, 20, 10), at(20, 40, 10), at(80, 80, 10)}
	_, killed := detectOnce(particles, 100, 100, 4, 1)
	if killed != 0 {
		t.Errorf("killed %d, want 0", killed)
	}
}

func TestCoincidentParticlesCollide(t *testing.T) {
	// same position, different identity
	particles := []particle{at(30, 30, 4), at(30, 30, 4), at(70, 70, 4)}
	_, killed := detectOnce(particles, 100, 100, 2, 2)
	if killed != 2 {
		t.Errorf("killed %d, want 2", killed)
	}
	if particles[2].State != alive {
		t.Error("distant particle died")
	}
}

func TestDeadParticlesDoNotCollide(t *testing.T) {
	particles := []particle{at(40, 50, 10), at(45, 50, 10)}
	particles[1].State = dead
	_, killed := detectOnce(particles, 100, 100, 1, 1)
	if killed != 0 {
		t.Errorf("killed %d, want 0", killed)
	}
	if particles[0].State != alive {
		t.Error("alive particle killed by a dead one")
	}
}

func TestCommitLowersFlags(t *testing.T) {
	particles := []particle{at(40, 50, 10), at(45, 50, 10), at(80, 80, 2)}
	d, _ := detectOnce(particles, 100, 100, 2, 1)
	for i := range particles {
		if d.flagged(i) {
			t.Errorf("flag %d still raised after commit", i)
		}
	}
}

func TestDetectOnlyRaisesFlags(t *testing.T) {
	particles := []particle{at(40, 50, 10), at(45, 50, 10), at(80, 80, 2)}
	tree, _ := buildIndex(particles, 100, 100)
	d := newDetector(3, 1)
	d.detect(particles, tree)

	if !d.flagged(0) || !d.flagged(1) || d.flagged(2) {
		t.Errorf("flags %t %t %t, want true true false", d.flagged(0), d.flagged(1), d.flagged(2))
	}
	for i, p := range particles {
		if p.State != alive {
			t.Errorf("detect changed particle %d state", i)
		}
	}
}

func TestRedetectionFindsNothingNew(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	particles := makeparticles(3000, 4, normal, 0, 400, 400, rng)
	_, first := detectOnce(particles, 400, 400, 4, 16)
	if first == 0 {
		t.Fatal("dense population produced no collisions")
	}
	before := deadSet(particles)

	_, second := detectOnce(particles, 400, 400, 4, 16)
	if second != 0 {
		t.Errorf("second pass killed %d more", second)
	}
	after := deadSet(particles)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("particle %d changed from dead=%t to dead=%t", i, before[i], after[i])
		}
	}
}

func TestDetectMatchesBruteForce(t *testing.T) {
	for _, tc := range []struct {
		workers, chunk int
		diameters      []int
	}{
		{1, 1, []int{3}},
		{4, 7, []int{3}},
		{8, 256, []int{2, 5, 9}},
		{3, 64, []int{1, 12}},
	} {
		t.Run(fmt.Sprintf("w%d_c%d_d%v", tc.workers, tc.chunk, tc.diameters), func(t *testing.T) {
			rng := rand.New(rand.NewSource(uint64(tc.workers*1000 + tc.chunk)))
			const w, h = 600, 400
			var particles []particle
			for _, d := range tc.diameters {
				particles = append(particles, makeparticles(1500, d, normal, 0, w, h, rng)...)
			}

			tree, _ := buildIndex(particles, w, h)
			indexed := make(map[int32]bool)
			for _, i := range tree.query(rect{0, 0, w, h}, nil) {
				indexed[i] = true
			}

			d := newDetector(tc.workers, tc.chunk)
			d.detect(particles, tree)
			for i := range particles {
				for j := i + 1; j < len(particles); j++ {
					a, b := &particles[i], &particles[j]
					if !overlaps(a, b) || onQueryEdge(a, b) {
						continue
					}
					if !indexed[int32(i)] || !indexed[int32(j)] {
						continue
					}
					if !d.flagged(i) || !d.flagged(j) {
						t.Fatalf("overlapping %v and %v not both flagged", *a, *b)
					}
				}
			}
			for i := range particles {
				if !d.flagged(i) {
					continue
				}
				hit := false
				for j := range particles {
					if j != i && overlaps(&particles[i], &particles[j]) {
						hit = true
						break
					}
				}
				if !hit {
					t.Fatalf("%v flagged without overlapping anything", particles[i])
				}
			}
		})
	}
}

func TestQueryEdgePairIsMissed(t *testing.T) {
	// equal diameters exactly one diameter apart on an axis. the overlap
	// test says they touch, but each sits on the other's open query edge.
	particles := []particle{at(40, 50, 10), at(50, 50, 10)}
	if !overlaps(&particles[0], &particles[1]) {
		t.Fatal("pair should overlap")
	}
	_, killed := detectOnce(particles, 100, 100, 1, 1)
	if killed != 0 {
		t.Errorf("killed %d, the query edge pair is expected to survive", killed)
	}
}

func TestDetectorGrowsWithStore(t *testing.T) {
	d := newDetector(2, 4)
	small := []particle{at(10, 10, 2)}
	tree, _ := buildIndex(small, 100, 100)
	d.detect(small, tree)

	big := []particle{at(10, 10, 4), at(12, 10, 4), at(60, 60, 4)}
	tree, _ = buildIndex(big, 100, 100)
	d.detect(big, tree)
	if killed := d.commit(big); killed != 2 {
		t.Errorf("killed %d, want 2", killed)
	}
}

func TestEmptyStoreDetection(t *testing.T) {
	d, killed := detectOnce(nil, 100, 100, 4, 8)
	if killed != 0 {
		t.Errorf("killed %d in an empty store", killed)
	}
	if d.flagged(0) {
		t.Error("flag raised for a particle that does not exist")
	}
}

func BenchmarkDetect(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	const w, h = 1500, 800
	particles := makeparticles(200000, 1, aggressive, 0.02, w, h, rng)
	tree, _ := buildIndex(particles, w, h)
	d := newDetector(0, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.detect(particles, tree)
	}
}
