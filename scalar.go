package bulletproofs

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bwesterb/go-ristretto"
)

func uint64ToScalar(i uint64) *ristretto.Scalar {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:], i)
	var s ristretto.Scalar
	return s.SetBytes(&buf)
}

// randomScalar samples a scalar from rng via 64-byte wide reduction. A
// nil rng falls back to crypto/rand; tests inject seeded readers to get
// reproducible proofs.
func randomScalar(rng io.Reader) *ristretto.Scalar {
	if rng == nil {
		rng = rand.Reader
	}
	var wide [64]byte
	if _, err := io.ReadFull(rng, wide[:]); err != nil {
		panic(fmt.Sprintf("randomScalar: rng failure: %v", err))
	}
	var s ristretto.Scalar
	return s.SetReduced(&wide)
}

func innerProduct(a []*ristretto.Scalar, b []*ristretto.Scalar) *ristretto.Scalar {
	if len(a) != len(b) {
		panic(fmt.Sprintf("innerProduct lengths of vectors do not match %d, %d", len(a), len(b)))
	}

	var acc ristretto.Scalar
	acc.SetZero()
	for i := range a {
		var r ristretto.Scalar
		acc.Add(&acc, r.Mul(a[i], b[i]))
	}
	return &acc
}

func addVec(a []*ristretto.Scalar, b []*ristretto.Scalar) []*ristretto.Scalar {
	if len(a) != len(b) {
		panic(fmt.Sprintf("addVec lengths of vectors do not match %d, %d", len(a), len(b)))
	}

	out := make([]*ristretto.Scalar, len(a))
	for i := range a {
		var r ristretto.Scalar
		out[i] = r.Add(a[i], b[i])
	}
	return out
}

// ScalarExp yields 1, x, x^2, ... on successive Next calls.
type ScalarExp struct {
	X        *ristretto.Scalar
	NextExpX *ristretto.Scalar
}

func NewScalarExp(x *ristretto.Scalar) *ScalarExp {
	var one ristretto.Scalar
	return &ScalarExp{
		X:        x,
		NextExpX: one.SetOne(),
	}
}

func (s *ScalarExp) Next() *ristretto.Scalar {
	var cur ristretto.Scalar
	cur.Add(cur.SetZero(), s.NextExpX)
	s.NextExpX.Mul(s.NextExpX, s.X)
	return &cur
}

// ScalarExpVartime computes x^n by square-and-multiply. The exponent is
// public in every call site, so variable time is fine.
func ScalarExpVartime(x *ristretto.Scalar, n uint64) *ristretto.Scalar {
	var result, aux ristretto.Scalar
	result.SetOne()
	aux.SetZero()
	aux.Add(&aux, x)

	for n > 0 {
		if n&1 == 1 {
			result.Mul(&result, &aux)
		}
		n >>= 1
		aux.Mul(&aux, &aux)
	}
	return &result
}

// sumOfPowers returns 1 + x + ... + x^(n-1).
func sumOfPowers(x *ristretto.Scalar, n int64) *ristretto.Scalar {
	var sum ristretto.Scalar
	sum.SetZero()
	exp := NewScalarExp(x)
	for i := int64(0); i < n; i++ {
		sum.Add(&sum, exp.Next())
	}
	return &sum
}

// VecPoly1 is a degree-1 polynomial whose coefficients are scalar
// vectors: l(x) = As + x * Bs.
type VecPoly1 struct {
	As []*ristretto.Scalar
	Bs []*ristretto.Scalar
}

func ZeroVecPoly1(n int64) *VecPoly1 {
	vec := &VecPoly1{As: make([]*ristretto.Scalar, n), Bs: make([]*ristretto.Scalar, n)}
	for i := int64(0); i < n; i++ {
		var a, b ristretto.Scalar
		a.SetZero()
		b.SetZero()
		vec.As[i] = &a
		vec.Bs[i] = &b
	}
	return vec
}

// InnerProduct computes <l(x), r(x)> as a degree-2 polynomial using
// Karatsuba for the middle coefficient.
func (v *VecPoly1) InnerProduct(rhs *VecPoly1) *Poly2 {
	t0 := innerProduct(v.As, rhs.As)
	t2 := innerProduct(v.Bs, rhs.Bs)

	l0PlusL1 := addVec(v.As, v.Bs)
	r0PlusR1 := addVec(rhs.As, rhs.Bs)

	var t1 ristretto.Scalar
	t1.Sub(innerProduct(l0PlusL1, r0PlusR1), t0)
	t1.Sub(&t1, t2)

	return &Poly2{
		A: t0,
		B: &t1,
		C: t2,
	}
}

func (v *VecPoly1) Eval(x *ristretto.Scalar) []*ristretto.Scalar {
	out := make([]*ristretto.Scalar, len(v.As))
	for i := range v.As {
		var r ristretto.Scalar
		r.Mul(v.Bs[i], x)
		out[i] = r.Add(v.As[i], &r)
	}
	return out
}

func (v *VecPoly1) wipe() {
	wipeScalars(v.As)
	wipeScalars(v.Bs)
}

// Poly2 is a degree-2 polynomial t(x) = A + B*x + C*x^2.
type Poly2 struct {
	A *ristretto.Scalar
	B *ristretto.Scalar
	C *ristretto.Scalar
}

func (p *Poly2) Eval(x *ristretto.Scalar) *ristretto.Scalar {
	var r ristretto.Scalar
	r.Mul(x, p.C)
	r.Add(p.B, &r)
	r.Mul(x, &r)
	return r.Add(p.A, &r)
}

func (p *Poly2) wipe() {
	p.A.SetZero()
	p.B.SetZero()
	p.C.SetZero()
}

// wipeScalars scrubs secret scalar slices once a proof share has been
// produced or a session aborted.
func wipeScalars(vec []*ristretto.Scalar) {
	for i := range vec {
		if vec[i] != nil {
			vec[i].SetZero()
		}
	}
}

// scalarFromCanonicalBytes decodes 32 little-endian bytes, rejecting
// any encoding that is not already reduced mod the group order. This
// keeps proof encodings non-malleable: each scalar has exactly one
// accepted byte form.
func scalarFromCanonicalBytes(buf []byte) (*ristretto.Scalar, bool) {
	var s32 [32]byte
	copy(s32[:], buf)
	var s ristretto.Scalar
	s.SetBytes(&s32)
	if !bytes.Equal(s.Bytes(), buf) {
		return nil, false
	}
	return &s, true
}

func cloneScalars(vec []*ristretto.Scalar) []*ristretto.Scalar {
	out := make([]*ristretto.Scalar, len(vec))
	for i := range vec {
		var s ristretto.Scalar
		out[i] = s.Add(s.SetZero(), vec[i])
	}
	return out
}

// ResizeValuesToPow2 pads a value batch by repeating the last entry
// until the length is a power of two. The result is freshly allocated;
// the caller's slice and its backing array are never written.
func ResizeValuesToPow2(vec []uint64) []uint64 {
	l := nextPowerOfTwo(len(vec))
	out := make([]uint64, len(vec), l)
	copy(out, vec)
	for i := len(out); i < l; i++ {
		out = append(out, out[i-1])
	}
	return out
}

func ResizeScalarsToPow2(vec []*ristretto.Scalar) []*ristretto.Scalar {
	l := nextPowerOfTwo(len(vec))
	out := make([]*ristretto.Scalar, len(vec), l)
	copy(out, vec)
	for i := len(out); i < l; i++ {
		var s ristretto.Scalar
		out = append(out, s.Add(s.SetZero(), out[i-1]))
	}
	return out
}

func nextPowerOfTwo(v int) int {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
