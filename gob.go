package main

import (
	"compress/zlib"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

/*
chunk recording. every recorded frame is reduced to a compact record
per particle and kept in memory until its bucket of frames is complete,
then the bucket is written as one zlib compressed file.

gob skips zero fields, so the Alive flag of a dead particle costs
nothing. msgpack chunks are a bit larger but readable
outside of Go.
*/

type chunkindex map[uint32]map[uint32]chunkparticle

type chunkparticle struct {
	X, Y     int32
	Diameter int32
	Alive    bool
}

type chunkSink struct {
	dir        string
	format     string
	bucketSize int
	next       int // recorded frames so far
	buckets    map[int]chunkindex

	dumperWG sync.WaitGroup
	sem      chan struct{}
	m        sync.Mutex

	errm sync.Mutex
	errs []error
}

func newChunkSink(dir, format string, framesPerBucket int) (*chunkSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &chunkSink{
		dir:        dir,
		format:     format,
		bucketSize: framesPerBucket,
		buckets:    make(map[int]chunkindex),
		sem:        make(chan struct{}, 4),
	}, nil
}

// consume files the frame into the current bucket. a bucket is dumped
// in the background as soon as it holds bucketSize frames.
func (cs *chunkSink) consume(job *frameJob) error {
	frameData := make(map[uint32]chunkparticle, len(job.Particles))
	for i := range job.Particles {
		p := &job.Particles[i]
		frameData[p.ID] = chunkparticle{
			X:        int32(p.X),
			Y:        int32(p.Y),
			Diameter: int32(p.Diameter),
			Alive:    p.State == alive,
		}
	}

	cs.m.Lock()
	bnum := cs.next / cs.bucketSize
	cs.next++
	bucket := cs.buckets[bnum]
	if bucket == nil {
		bucket = make(chunkindex, cs.bucketSize)
		cs.buckets[bnum] = bucket
	}
	bucket[uint32(job.Frame)] = frameData
	full := len(bucket) == cs.bucketSize
	if full {
		delete(cs.buckets, bnum)
	}
	cs.m.Unlock()

	if full {
		cs.dumperWG.Add(1)
		go func() {
			defer cs.dumperWG.Done()
			cs.sem <- struct{}{}
			defer func() { <-cs.sem }()
			cs.fail(cs.dump(bnum, bucket))
		}()
	}
	return nil
}

func (cs *chunkSink) fail(err error) {
	if err == nil {
		return
	}
	cs.errm.Lock()
	cs.errs = append(cs.errs, err)
	cs.errm.Unlock()
}

// close writes whatever partial buckets remain and waits for all dumps.
func (cs *chunkSink) close() error {
	cs.m.Lock()
	remaining := cs.buckets
	cs.buckets = make(map[int]chunkindex)
	cs.m.Unlock()

	for bnum, bucket := range remaining {
		cs.fail(cs.dump(bnum, bucket))
	}
	cs.dumperWG.Wait()

	cs.errm.Lock()
	defer cs.errm.Unlock()
	if len(cs.errs) > 0 {
		return fmt.Errorf("%d chunk(s) failed, first: %w", len(cs.errs), cs.errs[0])
	}
	return nil
}

func (cs *chunkSink) dump(bucket int, dump chunkindex) error {
	start := time.Now()
	name := chunkName(cs.dir, cs.format, bucket)
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer file.Close()

	zw, err := zlib.NewWriterLevel(file, zlib.DefaultCompression)
	if err != nil {
		return err
	}
	if err := encodeChunk(zw, cs.format, dump); err != nil {
		zw.Close()
		os.Remove(name)
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	log.Printf("%s to dump chunk %d (%d frames)", time.Since(start).Truncate(time.Millisecond), bucket, len(dump))
	return nil
}

func encodeChunk(w io.Writer, format string, dump chunkindex) error {
	if format == "msgpack" {
		return msgpack.NewEncoder(w).Encode(dump)
	}
	return gob.NewEncoder(w).Encode(dump)
}

// readChunk loads a chunk file written by a chunkSink.
func readChunk(name, format string) (chunkindex, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	zr, err := zlib.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var dump chunkindex
	if format == "msgpack" {
		err = msgpack.NewDecoder(zr).Decode(&dump)
	} else {
		err = gob.NewDecoder(zr).Decode(&dump)
	}
	return dump, err
}

func chunkName(dir, format string, bucket int) string {
	return filepath.Join(dir, fmt.Sprintf("%06d.%s.chunk", bucket, format))
}
