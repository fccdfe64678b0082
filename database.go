package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

/*
note: one row per particle per recorded frame. dead particles are kept
so a frame always has the full store, same as the renderer sees it.

really only 1 worker is useful for sqlite since it allows only 1 writer at a time.
*/

const schema = `
CREATE TABLE particles (
	frame 		INTEGER,
	id 			INTEGER, -- store index
	x 			INTEGER,
	y 			INTEGER,
	diameter 	INTEGER,
	alive 		INTEGER);
`

const indices = `
CREATE INDEX idx_frame ON particles (frame, id);
CREATE INDEX idx_id ON particles (id);
`

const insert = `INSERT INTO particles VALUES (?, ?, ?, ?, ?, ?);`
const queryFrame = `SELECT id, x, y, diameter, alive FROM particles WHERE frame = ? ORDER BY id ASC;`
const queryDeaths = `SELECT frame, COUNT(*) FROM particles WHERE alive = 0 GROUP BY frame ORDER BY frame ASC;`

type sqliteSink struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// opens and initializes a new db in filename. an existing file is an error.
func opendb(filename string) (*sql.DB, error) {
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("%s exists", filename)
	}
	//_journal_mode=OFF&_synchronous=OFF
	db, err := sql.Open("sqlite3", "file:"+filename+"?_journal_mode=OFF&_synchronous=OFF")
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// runs create table statements on db.
func createTables(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// runs create index statements on db.
func createIndices(db *sql.DB) error {
	_, err := db.Exec(indices)
	return err
}

func newSqliteSink(filename string) (*sqliteSink, error) {
	db, err := opendb(filename)
	if err != nil {
		return nil, err
	}
	stmt, err := db.Prepare(insert)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteSink{db: db, stmt: stmt}, nil
}

// consume writes one frame inside a single transaction.
func (s *sqliteSink) consume(job *frameJob) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(s.stmt)
	for i := range job.Particles {
		p := &job.Particles[i]
		_, err = stmt.Exec(job.Frame, p.ID, p.X, p.Y, p.Diameter, p.State == alive)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("frame %d: %w", job.Frame, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteSink) close() error {
	s.stmt.Close()
	err := createIndices(s.db)
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// readFrame loads the particles recorded for frame.
func readFrame(db *sql.DB, frame int) ([]particle, error) {
	rows, err := db.Query(queryFrame, frame)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var particles []particle
	for rows.Next() {
		var p particle
		var isAlive bool
		if err := rows.Scan(&p.ID, &p.X, &p.Y, &p.Diameter, &isAlive); err != nil {
			return nil, err
		}
		if !isAlive {
			p.State = dead
		}
		particles = append(particles, p)
	}
	return particles, rows.Err()
}

// deathCounts returns the number of dead particles in every recorded frame.
func deathCounts(db *sql.DB) (map[int]int, error) {
	rows, err := db.Query(queryDeaths)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var frame, n int
		if err := rows.Scan(&frame, &n); err != nil {
			return nil, err
		}
		counts[frame] = n
	}
	return counts, rows.Err()
}
