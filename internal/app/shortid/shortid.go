package shortid

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	DefaultLength = 6
)

var base = big.NewInt(int64(len(alphabet)))

// Generate returns length characters drawn uniformly from the 62-char
// alphanumeric alphabet. The result is not guaranteed to be unused.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// Alphabet exposes the id alphabet for validation and tests.
func Alphabet() string { return alphabet }

// Generator produces fixed-length ids and remembers issued ids in a bloom
// filter so that candidates which are probably taken can be skipped without
// a store round trip. The filter only ever produces false positives, so the
// store insert remains the uniqueness gate.
type Generator struct {
	length int

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// maxFilterRejects bounds regeneration when the filter keeps reporting hits,
// e.g. after it has saturated.
const maxFilterRejects = 8

// NewGenerator returns a generator of ids with the given length. A zero
// capacity disables the bloom pre-check.
func NewGenerator(length int, capacity uint) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	g := &Generator{length: length}
	if capacity > 0 {
		g.filter = bloom.NewWithEstimates(capacity, 0.001)
	}
	return g
}

// Length returns the configured id length.
func (g *Generator) Length() int { return g.length }

// Next returns a candidate id, preferring ones the filter has never seen.
func (g *Generator) Next() (string, error) {
	var candidate string
	for i := 0; i < maxFilterRejects; i++ {
		id, err := Generate(g.length)
		if err != nil {
			return "", err
		}
		candidate = id
		if !g.MaybeTaken(id) {
			return id, nil
		}
	}
	return candidate, nil
}

// MaybeTaken reports whether id may already be in use.
func (g *Generator) MaybeTaken(id string) bool {
	if g.filter == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.filter.TestString(id)
}

// Remember records ids that are known to exist.
func (g *Generator) Remember(ids ...string) {
	if g.filter == nil || len(ids) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		g.filter.AddString(id)
	}
}
