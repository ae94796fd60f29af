package match

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/covmatch/internal/covset"
	"github.com/hupe1980/covmatch/internal/encoder"
)

// Bucket is a set of units that agree on a covariate set.
type Bucket struct {
	// Members are unit indices in ascending order.
	Members []uint32
	Treated int
	Control int
}

// Valid reports whether the bucket holds both treatment arms.
func (b Bucket) Valid() bool { return b.Treated > 0 && b.Control > 0 }

// Engine groups units of a fixed table. It is safe for concurrent use.
type Engine struct {
	enc     *encoder.Encoder
	treated *roaring.Bitmap
}

// New creates an engine over enc. treated[i] is the arm of unit i.
func New(enc *encoder.Encoder, treated []bool) *Engine {
	t := roaring.New()
	for i, isTreated := range treated {
		if isTreated {
			t.Add(uint32(i))
		}
	}
	return &Engine{enc: enc, treated: t}
}

// Treated returns a copy of the treated-arm bitmap.
func (e *Engine) Treated() *roaring.Bitmap { return e.treated.Clone() }

// Buckets groups every unit of pool that has a key under s. Buckets are ordered by their
// smallest member. Single-arm buckets are included.
func (e *Engine) Buckets(s covset.Set, pool *roaring.Bitmap) []Bucket {
	var (
		buckets []Bucket
		index   = make(map[encoder.Key][]int)
	)

	it := pool.Iterator()
	for it.HasNext() {
		u := it.Next()
		key, ok := e.enc.Key(int(u), s)
		if !ok {
			continue
		}

		slot := -1
		for _, bi := range index[key] {
			if e.enc.Equal(int(buckets[bi].Members[0]), int(u), s) {
				slot = bi
				break
			}
		}
		if slot < 0 {
			slot = len(buckets)
			buckets = append(buckets, Bucket{})
			index[key] = append(index[key], slot)
		}

		b := &buckets[slot]
		b.Members = append(b.Members, u)
		if e.treated.Contains(u) {
			b.Treated++
		} else {
			b.Control++
		}
	}
	return buckets
}

// Match returns the buckets of pool under s that contain at least one treated and one
// control unit, ordered by their smallest member.
func (e *Engine) Match(s covset.Set, pool *roaring.Bitmap) []Bucket {
	all := e.Buckets(s, pool)
	out := all[:0]
	for _, b := range all {
		if b.Valid() {
			out = append(out, b)
		}
	}
	return out
}

// Covered returns the units contained in the given buckets.
func Covered(buckets []Bucket) *roaring.Bitmap {
	bm := roaring.New()
	for _, b := range buckets {
		bm.AddMany(b.Members)
	}
	return bm
}
