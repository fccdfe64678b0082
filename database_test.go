package main

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestSqliteSinkRecordsFrames(t *testing.T) {
	name := filepath.Join(t.TempDir(), "frames.sqlite")
	s, err := newSqliteSink(name)
	if err != nil {
		t.Fatal(err)
	}
	for _, frame := range []int{1, 2} {
		if err := s.consume(testFrame(frame)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.close(); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite3", "file:"+name)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	particles, err := readFrame(db, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := testFrame(2).Particles
	if len(particles) != len(want) {
		t.Fatalf("read %d particles, want %d", len(particles), len(want))
	}
	for i, p := range particles {
		w := want[i]
		if p.ID != w.ID || p.X != w.X || p.Y != w.Y || p.Diameter != w.Diameter || p.State != w.State {
			t.Errorf("row %d = %v, want %v", i, p, w)
		}
	}

	counts, err := deathCounts(db)
	if err != nil {
		t.Fatal(err)
	}
	if counts[1] != 1 || counts[2] != 1 {
		t.Errorf("death counts %v, want one per frame", counts)
	}
}

func TestOpendbRefusesExistingFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "frames.sqlite")
	db, err := opendb(name)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := opendb(name); err == nil {
		t.Error("opened an existing database for recording")
	}
}
