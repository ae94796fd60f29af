package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/covmatch/internal/covset"
)

// ErrRaggedRows is returned when units do not all have the same number of covariates.
var ErrRaggedRows = errors.New("encoder: units have different covariate counts")

// Key is the bucket key of a unit under a covariate set.
// Equal keys are necessary but not sufficient for exact agreement; use Equal to confirm.
type Key uint64

// Encoder holds the packed representation of a fixed unit table.
// It is immutable after New and safe for concurrent use.
type Encoder struct {
	p       int
	offsets []uint
	widths  []uint
	nbits   uint

	packed  []*bitset.BitSet
	missing []covset.Set
	hashes  []uint64 // n*p, row-major

	masks sync.Map // covset.Set -> []uint64
}

// New encodes the given covariate rows. Every row must have the same length, at most
// covset.MaxCovariates.
func New(rows [][]int32) (*Encoder, error) {
	p := 0
	if len(rows) > 0 {
		p = len(rows[0])
	}
	if p > covset.MaxCovariates {
		return nil, covset.ErrTooManyCovariates
	}

	maxCode := make([]int32, p)
	for i, row := range rows {
		if len(row) != p {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrRaggedRows, i, len(row), p)
		}
		for j, c := range row {
			if c > maxCode[j] {
				maxCode[j] = c
			}
		}
	}

	e := &Encoder{
		p:       p,
		offsets: make([]uint, p),
		widths:  make([]uint, p),
		packed:  make([]*bitset.BitSet, len(rows)),
		missing: make([]covset.Set, len(rows)),
		hashes:  make([]uint64, len(rows)*p),
	}
	for j := range p {
		w := uint(bits.Len32(uint32(maxCode[j])))
		if w == 0 {
			w = 1
		}
		e.offsets[j] = e.nbits
		e.widths[j] = w
		e.nbits += w
	}

	var buf [8]byte
	for i, row := range rows {
		b := bitset.New(e.nbits)
		for j, c := range row {
			if c < 0 {
				e.missing[i] = e.missing[i].With(j)
				continue
			}
			for k := uint(0); k < e.widths[j]; k++ {
				if uint32(c)&(1<<k) != 0 {
					b.Set(e.offsets[j] + k)
				}
			}
			binary.LittleEndian.PutUint32(buf[0:], uint32(j))
			binary.LittleEndian.PutUint32(buf[4:], uint32(c))
			e.hashes[i*p+j] = xxhash.Sum64(buf[:])
		}
		e.packed[i] = b
	}

	return e, nil
}

// Len returns the number of encoded units.
func (e *Encoder) Len() int { return len(e.packed) }

// Covariates returns the number of covariates per unit.
func (e *Encoder) Covariates() int { return e.p }

// Missing returns the covariates on which unit u has a missing value.
func (e *Encoder) Missing(u int) covset.Set { return e.missing[u] }

// Key returns the bucket key of unit u under s. ok is false when u has a missing value on a
// covariate in s.
func (e *Encoder) Key(u int, s covset.Set) (key Key, ok bool) {
	if e.missing[u].Intersect(s) != covset.Empty {
		return 0, false
	}
	row := e.hashes[u*e.p : (u+1)*e.p]
	var sum uint64
	for w := uint64(s); w != 0; w &= w - 1 {
		j := bits.TrailingZeros64(w)
		if j >= e.p {
			break
		}
		sum += row[j]
	}
	return Key(sum), true
}

// Equal reports whether units a and b agree on every covariate in s. Units with a missing
// value inside s are never equal, not even to themselves.
func (e *Encoder) Equal(a, b int, s covset.Set) bool {
	if (e.missing[a]|e.missing[b]).Intersect(s) != covset.Empty {
		return false
	}
	mask := e.mask(s)
	wa, wb := e.packed[a].Words(), e.packed[b].Words()
	for i, m := range mask {
		var x, y uint64
		if i < len(wa) {
			x = wa[i]
		}
		if i < len(wb) {
			y = wb[i]
		}
		if (x^y)&m != 0 {
			return false
		}
	}
	return true
}

// mask returns the packed-word mask selecting the bit ranges of s.
func (e *Encoder) mask(s covset.Set) []uint64 {
	if m, ok := e.masks.Load(s); ok {
		return m.([]uint64)
	}
	b := bitset.New(e.nbits)
	for _, j := range s.Indices() {
		if j >= e.p {
			break
		}
		for k := uint(0); k < e.widths[j]; k++ {
			b.Set(e.offsets[j] + k)
		}
	}
	words := append([]uint64(nil), b.Words()...)
	m, _ := e.masks.LoadOrStore(s, words)
	return m.([]uint64)
}
