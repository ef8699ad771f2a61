package bulletproofs

import (
	"encoding/binary"

	"github.com/bwesterb/go-ristretto"
	"github.com/dchest/blake2b"
	"golang.org/x/crypto/sha3"
)

// PedersenGens holds the two primary generators: B commits to values,
// BBlinding to blinding factors.
type PedersenGens struct {
	B         *ristretto.Point
	BBlinding *ristretto.Point
}

// NewPedersenGens uses the ristretto basepoint for blinding and a
// blake2b hash-to-point of it for values.
func NewPedersenGens() *PedersenGens {
	var base ristretto.Point
	base.SetBase()

	return &PedersenGens{
		B:         hashToPoint(&base),
		BBlinding: &base,
	}
}

// DefaultPedersenGens is the opposite orientation: the basepoint commits
// to values and a sha3-512 hash-to-point of it to blindings.
func DefaultPedersenGens() *PedersenGens {
	var base ristretto.Point
	base.SetBase()

	h := sha3.New512()
	h.Write(base.Bytes())

	return &PedersenGens{
		B:         &base,
		BBlinding: pointFromUniformBytes(h.Sum(nil)),
	}
}

// Commit computes value*B + blinding*BBlinding.
func (pg *PedersenGens) Commit(value, blinding *ristretto.Scalar) *ristretto.Point {
	return multiscalarMul([]*ristretto.Scalar{value, blinding}, []*ristretto.Point{pg.B, pg.BBlinding})
}

// BulletproofGens holds per-party G and H generator vectors, each
// derived from its own SHAKE256 chain so they are reproducible and
// extendable without recomputing earlier entries.
type BulletproofGens struct {
	GensCapacity  int64
	PartyCapacity int64
	GVec          [][]*ristretto.Point
	HVec          [][]*ristretto.Point
}

func NewBulletproofGens(gensCapacity, partyCapacity int64) *BulletproofGens {
	b := &BulletproofGens{
		GensCapacity:  0,
		PartyCapacity: partyCapacity,
		GVec:          make([][]*ristretto.Point, partyCapacity),
		HVec:          make([][]*ristretto.Point, partyCapacity),
	}
	b.IncreaseCapacity(gensCapacity)
	return b
}

func (b *BulletproofGens) IncreaseCapacity(capacity int64) {
	if b.GensCapacity >= capacity {
		return
	}
	for i := int64(0); i < b.PartyCapacity; i++ {
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], uint32(i))
		label := append([]byte("G"), idx[:]...)
		chainG := NewGeneratorsChain(label)
		chainG.FastForward(b.GensCapacity)

		for j := b.GensCapacity; j < capacity; j++ {
			b.GVec[i] = append(b.GVec[i], chainG.Next())
		}

		label[0] = 'H'
		chainH := NewGeneratorsChain(label)
		chainH.FastForward(b.GensCapacity)
		for j := b.GensCapacity; j < capacity; j++ {
			b.HVec[i] = append(b.HVec[i], chainH.Next())
		}
	}
	b.GensCapacity = capacity
}

// G iterates the first n generators of each of the first m parties, in
// party order, so the aggregated statement sees one n*m-long vector.
func (b *BulletproofGens) G(n, m int64) *AggregatedGensIter {
	return &AggregatedGensIter{N: n, M: m, Array: b.GVec}
}

func (b *BulletproofGens) H(n, m int64) *AggregatedGensIter {
	return &AggregatedGensIter{N: n, M: m, Array: b.HVec}
}

type AggregatedGensIter struct {
	Array    [][]*ristretto.Point
	N, M     int64
	PartyIdx int64
	GenIdx   int64
}

func (a *AggregatedGensIter) Next() *ristretto.Point {
	if a.GenIdx >= a.N {
		a.GenIdx = 0
		a.PartyIdx++
	}
	if a.PartyIdx >= a.M {
		return nil
	}
	cur := a.GenIdx
	a.GenIdx++
	return a.Array[a.PartyIdx][cur]
}

// BulletproofGensShare is party j's view of the shared generators.
type BulletproofGensShare struct {
	Gens  *BulletproofGens
	Share int
}

func (b *BulletproofGens) Share(j int) *BulletproofGensShare {
	return &BulletproofGensShare{Gens: b, Share: j}
}

func (g *BulletproofGensShare) G(n int64) []*ristretto.Point {
	return g.Gens.GVec[g.Share][:n]
}

func (g *BulletproofGensShare) H(n int64) []*ristretto.Point {
	return g.Gens.HVec[g.Share][:n]
}

// GeneratorsChain is a SHAKE256 stream seeded by a domain label, read in
// 64-byte blocks that map to points via double Elligator.
type GeneratorsChain struct {
	sha3.ShakeHash
}

func NewGeneratorsChain(label []byte) *GeneratorsChain {
	h := sha3.NewShake256()
	h.Write([]byte("GeneratorsChain"))
	h.Write(label)
	return &GeneratorsChain{h}
}

func (c *GeneratorsChain) FastForward(n int64) {
	for i := int64(0); i < n; i++ {
		var data [64]byte
		c.Read(data[:])
	}
}

func (c *GeneratorsChain) Next() *ristretto.Point {
	var data [64]byte
	c.Read(data[:])
	return pointFromUniformBytes(data[:])
}

func pointFromUniformBytes(key []byte) *ristretto.Point {
	var r1Bytes, r2Bytes [32]byte
	copy(r1Bytes[:], key[:32])
	copy(r2Bytes[:], key[32:])
	var r, r1, r2 ristretto.Point
	return r.Add(r1.SetElligator(&r1Bytes), r2.SetElligator(&r2Bytes))
}

func hashToPoint(public *ristretto.Point) *ristretto.Point {
	hash := blake2b.New512()
	hash.Write([]byte(hashToPointDomainTag))
	hash.Write(public.Bytes())
	var key [64]byte
	copy(key[:], hash.Sum(nil))
	return pointFromUniformBytes(key[:])
}

// multiscalarMul sums scalar_i * point_i using the constant-time scalar
// multiplication of the underlying group.
func multiscalarMul(scalars []*ristretto.Scalar, points []*ristretto.Point) *ristretto.Point {
	var p ristretto.Point
	p.SetZero()
	for i := range scalars {
		var t ristretto.Point
		t.ScalarMult(points[i], scalars[i])
		p.Add(&p, &t)
	}
	return &p
}

// vartimeMultiscalarMul is used only on public data (verification and
// the publicly-derivable cross terms).
func vartimeMultiscalarMul(scalars []*ristretto.Scalar, points []*ristretto.Point) *ristretto.Point {
	var r ristretto.Point
	r.SetZero()
	for i := range scalars {
		var rr ristretto.Point
		rr.ScalarMult(points[i], scalars[i])
		r.Add(&r, &rr)
	}
	return &r
}
