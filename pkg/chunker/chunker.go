// Package chunker splits byte streams into content-defined chunks using a
// Rabin rolling hash. Boundaries depend only on local content, so identical
// byte sequences chunk identically and edits shift only nearby boundaries.
package chunker

import (
	"fmt"
	"io"
	"math/bits"

	restic "github.com/restic/chunker"
)

const (
	kiB = 1024
	miB = 1024 * kiB
)

// splitPol is the polynomial evaluated by the rolling hash. It is a fixed
// package constant rather than a per-repository random value: boundaries
// must be identical across repositories for cross-repo deduplication.
const splitPol = restic.Pol(0x3DA3358B4DC173)

// Config holds the chunk size boundaries. AvgSize controls the boundary
// mask and must be a power of two between MinSize and MaxSize.
type Config struct {
	MinSize uint
	AvgSize uint
	MaxSize uint
}

// DefaultConfig is tuned for large-file dedup: 512 KiB min, 1 MiB average,
// 8 MiB max. Files smaller than MinSize become a single chunk.
var DefaultConfig = Config{
	MinSize: 512 * kiB,
	AvgSize: 1 * miB,
	MaxSize: 8 * miB,
}

func (c Config) validate() (Config, error) {
	if c.MinSize == 0 && c.AvgSize == 0 && c.MaxSize == 0 {
		return DefaultConfig, nil
	}
	if c.MinSize < 64 {
		return c, fmt.Errorf("chunker: min size %d below rolling hash window", c.MinSize)
	}
	if c.AvgSize&(c.AvgSize-1) != 0 {
		return c, fmt.Errorf("chunker: avg size %d is not a power of two", c.AvgSize)
	}
	if c.MinSize > c.AvgSize || c.AvgSize > c.MaxSize {
		return c, fmt.Errorf("chunker: sizes must satisfy min <= avg <= max (got %d/%d/%d)",
			c.MinSize, c.AvgSize, c.MaxSize)
	}
	return c, nil
}

// Chunk is one content-defined piece of the input stream.
type Chunk struct {
	Start  uint
	Length uint
	Data   []byte
}

// Chunker produces content-defined chunks from a reader. A cut is accepted
// when the rolling hash matches the average-size mask and at least MinSize
// bytes have accumulated; a cut is forced at MaxSize. The final chunk may
// be shorter than MinSize.
type Chunker struct {
	c   *restic.Chunker
	buf []byte
}

// New creates a Chunker over r. A zero Config selects DefaultConfig.
func New(r io.Reader, cfg Config) (*Chunker, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	c := restic.NewWithBoundaries(r, splitPol, cfg.MinSize, cfg.MaxSize)
	c.SetAverageBits(bits.TrailingZeros(cfg.AvgSize))
	return &Chunker{
		c:   c,
		buf: make([]byte, cfg.MaxSize),
	}, nil
}

// Next returns the next chunk. The returned Data is an independent copy.
// After the last chunk, Next returns io.EOF; empty input yields io.EOF
// immediately (zero chunks). Read errors from the underlying reader are
// passed through unchanged.
func (ch *Chunker) Next() (Chunk, error) {
	for {
		c, err := ch.c.Next(ch.buf)
		if err != nil {
			return Chunk{}, err
		}
		if c.Length == 0 {
			continue
		}
		data := make([]byte, c.Length)
		copy(data, c.Data)
		return Chunk{Start: c.Start, Length: c.Length, Data: data}, nil
	}
}

// Split consumes r entirely and returns all chunks in order.
func Split(r io.Reader, cfg Config) ([]Chunk, error) {
	ch, err := New(r, cfg)
	if err != nil {
		return nil, err
	}
	var out []Chunk
	for {
		c, err := ch.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
}
