/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package words hands out category words to a hosted session without
// repeating any word until the category runs dry.
package words

import (
	"math/rand/v2"
	"sync"
)

const defaultAttempts = 8

// Distributor draws words from a Source and remembers what it has issued
// since the last Reset. It is safe for concurrent use.
type Distributor struct {
	src      Source
	attempts int

	mu   sync.Mutex
	rng  *rand.Rand
	used map[string]struct{}

	// exhausted counts how often a category ran dry and the used set was
	// cleared to keep drawing.
	exhausted int
}

type Option func(*Distributor)

// WithRand fixes the random source, for reproducible draws.
func WithRand(rng *rand.Rand) Option {
	return func(d *Distributor) {
		d.rng = rng
	}
}

func WithAttempts(n int) Option {
	return func(d *Distributor) {
		if n > 0 {
			d.attempts = n
		}
	}
}

func NewDistributor(src Source, opts ...Option) *Distributor {
	d := &Distributor{
		src:      src,
		attempts: defaultAttempts,
		used:     make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return d
}

func (d *Distributor) Source() Source {
	return d.src
}

// Reset forgets every issued word. Called when a new round or category
// starts.
func (d *Distributor) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	clear(d.used)
}

// Exhaustions reports how many times a pool ran out and was recycled.
func (d *Distributor) Exhaustions() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.exhausted
}

// DrawUnique returns a word from category that has not been issued since
// the last Reset. Once every word has been issued the used set is cleared and
// the draw starts over, so a repeat is possible from then on.
func (d *Distributor) DrawUnique(category string) (string, error) {
	pool, err := d.src.Words(category)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.drawLocked(pool), nil
}

// DrawPair returns two distinct words for one round, the common word and
// the odd one out. A single-word pool yields the same word twice.
func (d *Distributor) DrawPair(category string) (common, odd string, err error) {
	pool, err := d.src.Words(category)
	if err != nil {
		return "", "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	common = d.drawLocked(pool)
	odd = d.drawLocked(pool)

	for i := 0; odd == common && len(pool) > 1 && i < d.attempts; i++ {
		odd = d.drawLocked(pool)
	}

	return common, odd, nil
}

// DrawSet returns n words drawn with DrawUnique semantics, all under one
// lock so concurrent draws cannot interleave.
func (d *Distributor) DrawSet(category string, n int) ([]string, error) {
	pool, err := d.src.Words(category)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, 0, n)
	for range n {
		out = append(out, d.drawLocked(pool))
	}

	return out, nil
}

func (d *Distributor) drawLocked(pool []string) string {
	for range d.attempts {
		w := pool[d.rng.IntN(len(pool))]
		if _, ok := d.used[w]; !ok {
			d.used[w] = struct{}{}
			return w
		}
	}

	remaining := make([]string, 0, len(pool))
	for _, w := range pool {
		if _, ok := d.used[w]; !ok {
			remaining = append(remaining, w)
		}
	}

	if len(remaining) == 0 {
		clear(d.used)
		d.exhausted++
		remaining = pool
	}

	w := remaining[d.rng.IntN(len(remaining))]
	d.used[w] = struct{}{}

	return w
}
