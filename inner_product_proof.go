package bulletproofs

import (
	"fmt"
	"math/bits"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// InnerProductProof is the compressed certificate for <a,b> = c:
// log2(k) cross-term pairs plus the two fully-folded scalars.
type InnerProductProof struct {
	LVec []*ristretto.Point
	RVec []*ristretto.Point
	A, B *ristretto.Scalar
}

// CreateInnerProductProof proves knowledge of aVec, bVec with
// P = <a, gFactors*G> + <b, hFactors*H> + <a,b>*Q by recursive halving.
// The first round folds the factor vectors into the generators; later
// rounds fold the already-adjusted generators. aVec and bVec are
// consumed: the folding overwrites them in place.
func CreateInnerProductProof(transcript *merlin.Transcript, Q *ristretto.Point, gFactors, hFactors []*ristretto.Scalar, gVec, hVec []*ristretto.Point, aVec, bVec []*ristretto.Scalar) *InnerProductProof {
	n := len(gVec)

	if len(hVec) != n ||
		len(aVec) != n ||
		len(bVec) != n ||
		len(gFactors) != n ||
		len(hFactors) != n {
		panic(fmt.Sprintf("CreateInnerProductProof mismatched vector lengths %d, %d, %d, %d, %d, %d", len(gVec), len(hVec), len(aVec), len(bVec), len(gFactors), len(hFactors)))
	}
	if bits.OnesCount64(uint64(n)) > 1 {
		panic(fmt.Sprintf("CreateInnerProductProof length %d not a power of two", n))
	}

	G := gVec
	H := hVec
	a := aVec
	b := bVec

	InnerproductDomainSep(uint64(n), transcript)

	var LVec, RVec []*ristretto.Point

	if n != 1 {
		n = n / 2
		aL, aR := a[:n], a[n:]
		bL, bR := b[:n], b[n:]
		gL, gR := G[:n], G[n:]
		hL, hR := H[:n], H[n:]

		cL := innerProduct(aL, bR)
		cR := innerProduct(aR, bL)

		chainAL := make([]*ristretto.Scalar, n)
		for i := range aL {
			var r ristretto.Scalar
			chainAL[i] = r.Mul(aL[i], gFactors[n+i])
		}
		for i := range bR {
			var r ristretto.Scalar
			chainAL = append(chainAL, r.Mul(bR[i], hFactors[i]))
		}
		chainAL = append(chainAL, cL)

		chainGR := make([]*ristretto.Point, 0, 2*n+1)
		chainGR = append(chainGR, gR...)
		chainGR = append(chainGR, hL...)
		chainGR = append(chainGR, Q)
		L := multiscalarMul(chainAL, chainGR)

		chainAR := make([]*ristretto.Scalar, n)
		for i := range aR {
			var r ristretto.Scalar
			chainAR[i] = r.Mul(aR[i], gFactors[i])
		}
		for i := range bL {
			var r ristretto.Scalar
			chainAR = append(chainAR, r.Mul(bL[i], hFactors[n+i]))
		}
		chainAR = append(chainAR, cR)

		chainGL := make([]*ristretto.Point, 0, 2*n+1)
		chainGL = append(chainGL, gL...)
		chainGL = append(chainGL, hR...)
		chainGL = append(chainGL, Q)
		R := multiscalarMul(chainAR, chainGL)

		LVec = append(LVec, L)
		RVec = append(RVec, R)

		AppendPoint("L", L, transcript)
		AppendPoint("R", R, transcript)

		u := ChallengeScalar("u", transcript)
		var uInv ristretto.Scalar
		uInv.Inverse(u)

		for i := 0; i < n; i++ {
			var r1, r2 ristretto.Scalar
			aL[i].Add(r1.Mul(aL[i], u), r2.Mul(&uInv, aR[i]))
			var r3, r4 ristretto.Scalar
			bL[i].Add(r3.Mul(bL[i], &uInv), r4.Mul(u, bR[i]))
			var r5, r6 ristretto.Scalar
			r5.Mul(&uInv, gFactors[i])
			r6.Mul(u, gFactors[n+i])
			gL[i] = vartimeMultiscalarMul([]*ristretto.Scalar{&r5, &r6}, []*ristretto.Point{gL[i], gR[i]})
			var r7, r8 ristretto.Scalar
			r7.Mul(u, hFactors[i])
			r8.Mul(&uInv, hFactors[n+i])
			hL[i] = vartimeMultiscalarMul([]*ristretto.Scalar{&r7, &r8}, []*ristretto.Point{hL[i], hR[i]})
		}

		a = aL
		b = bL
		G = gL
		H = hL
	}

	for n != 1 {
		n = n / 2

		aL, aR := a[:n], a[n:]
		bL, bR := b[:n], b[n:]
		gL, gR := G[:n], G[n:]
		hL, hR := H[:n], H[n:]

		cL := innerProduct(aL, bR)
		cR := innerProduct(aR, bL)

		chainAL := make([]*ristretto.Scalar, 0, 2*n+1)
		chainAL = append(chainAL, aL...)
		chainAL = append(chainAL, bR...)
		chainAL = append(chainAL, cL)
		chainGR := make([]*ristretto.Point, 0, 2*n+1)
		chainGR = append(chainGR, gR...)
		chainGR = append(chainGR, hL...)
		chainGR = append(chainGR, Q)
		L := multiscalarMul(chainAL, chainGR)

		chainAR := make([]*ristretto.Scalar, 0, 2*n+1)
		chainAR = append(chainAR, aR...)
		chainAR = append(chainAR, bL...)
		chainAR = append(chainAR, cR)
		chainGL := make([]*ristretto.Point, 0, 2*n+1)
		chainGL = append(chainGL, gL...)
		chainGL = append(chainGL, hR...)
		chainGL = append(chainGL, Q)
		R := multiscalarMul(chainAR, chainGL)

		LVec = append(LVec, L)
		RVec = append(RVec, R)
		AppendPoint("L", L, transcript)
		AppendPoint("R", R, transcript)

		u := ChallengeScalar("u", transcript)
		var uInv ristretto.Scalar
		uInv.Inverse(u)

		for i := 0; i < n; i++ {
			var r1, r2 ristretto.Scalar
			aL[i].Add(r1.Mul(aL[i], u), r2.Mul(&uInv, aR[i]))
			var r3, r4 ristretto.Scalar
			bL[i].Add(r3.Mul(bL[i], &uInv), r4.Mul(u, bR[i]))
			gL[i] = vartimeMultiscalarMul([]*ristretto.Scalar{&uInv, u}, []*ristretto.Point{gL[i], gR[i]})
			hL[i] = vartimeMultiscalarMul([]*ristretto.Scalar{u, &uInv}, []*ristretto.Point{hL[i], hR[i]})
		}

		a = aL
		b = bL
		G = gL
		H = hL
	}

	// The folded terminals still alias the caller's (secret) vectors;
	// copy them so the caller may wipe its buffers.
	var aOut, bOut ristretto.Scalar
	aOut.Add(aOut.SetZero(), a[0])
	bOut.Add(bOut.SetZero(), b[0])

	return &InnerProductProof{
		LVec: LVec,
		RVec: RVec,
		A:    &aOut,
		B:    &bOut,
	}
}

// verificationScalars replays the folding challenges from the transcript
// and expands them into the exponents u_i^2, u_i^-2 and the vector s
// needed to fold the original generators in one multiscalar pass.
func (p *InnerProductProof) verificationScalars(k int64, transcript *merlin.Transcript) (uSq, uInvSq, s []*ristretto.Scalar, err error) {
	lgK := len(p.LVec)
	if len(p.RVec) != lgK {
		return nil, nil, nil, fmt.Errorf("%w: L/R length mismatch", ErrMalformedProof)
	}
	if lgK >= 32 {
		return nil, nil, nil, fmt.Errorf("%w: inner product proof too large", ErrMalformedProof)
	}
	if k != int64(1)<<uint(lgK) {
		return nil, nil, nil, fmt.Errorf("%w: inner product proof has %d rounds for vector length %d", ErrMalformedProof, lgK, k)
	}

	InnerproductDomainSep(uint64(k), transcript)

	challenges := make([]*ristretto.Scalar, lgK)
	for i := 0; i < lgK; i++ {
		AppendPoint("L", p.LVec[i], transcript)
		AppendPoint("R", p.RVec[i], transcript)
		challenges[i] = ChallengeScalar("u", transcript)
	}

	var allInv ristretto.Scalar
	allInv.SetOne()
	uSq = make([]*ristretto.Scalar, lgK)
	uInvSq = make([]*ristretto.Scalar, lgK)
	for i, u := range challenges {
		var uInv, sq, invSq ristretto.Scalar
		uInv.Inverse(u)
		allInv.Mul(&allInv, &uInv)
		uSq[i] = sq.Mul(u, u)
		uInvSq[i] = invSq.Mul(&uInv, &uInv)
	}

	// s[0] = prod u_i^-1; each further s[i] differs from s[i-k'] by one
	// squared challenge, where k' is the highest bit of i.
	s = make([]*ristretto.Scalar, k)
	s[0] = &allInv
	for i := int64(1); i < k; i++ {
		lgI := bits.Len64(uint64(i)) - 1
		j := int64(1) << uint(lgI)
		var r ristretto.Scalar
		s[i] = r.Mul(s[i-j], uSq[lgK-1-lgI])
	}
	return uSq, uInvSq, s, nil
}

// Verify checks P = <a, gFactors*G> + <b, hFactors*H> + <a,b>*Q against
// the folded relation, reconstructing the challenges from the transcript.
func (p *InnerProductProof) Verify(transcript *merlin.Transcript, gFactors, hFactors []*ristretto.Scalar, P, Q *ristretto.Point, G, H []*ristretto.Point) error {
	k := int64(len(G))
	uSq, uInvSq, s, err := p.verificationScalars(k, transcript)
	if err != nil {
		return err
	}

	scalars := make([]*ristretto.Scalar, 0, 2*k+2*int64(len(uSq))+1)
	points := make([]*ristretto.Point, 0, cap(scalars))

	var ab ristretto.Scalar
	ab.Mul(p.A, p.B)
	scalars = append(scalars, &ab)
	points = append(points, Q)

	for i := int64(0); i < k; i++ {
		var g ristretto.Scalar
		g.Mul(p.A, s[i])
		g.Mul(&g, gFactors[i])
		scalars = append(scalars, &g)
		points = append(points, G[i])
	}
	for i := int64(0); i < k; i++ {
		var h ristretto.Scalar
		h.Mul(p.B, s[k-1-i])
		h.Mul(&h, hFactors[i])
		scalars = append(scalars, &h)
		points = append(points, H[i])
	}
	for i := range uSq {
		var nu, nui ristretto.Scalar
		scalars = append(scalars, nu.Neg(uSq[i]), nui.Neg(uInvSq[i]))
		points = append(points, p.LVec[i], p.RVec[i])
	}

	expect := vartimeMultiscalarMul(scalars, points)
	if !expect.Equals(P) {
		return ErrVerificationFailed
	}
	return nil
}

// ToBytes encodes the proof as the (L_i, R_i) pairs followed by a and b.
func (p *InnerProductProof) ToBytes() []byte {
	var buf []byte
	for i := range p.LVec {
		buf = append(buf, p.LVec[i].Bytes()...)
		buf = append(buf, p.RVec[i].Bytes()...)
	}
	buf = append(buf, p.A.Bytes()...)
	buf = append(buf, p.B.Bytes()...)
	return buf
}

// ippFromBytes decodes rounds (L,R) pairs plus the terminal scalars from
// buf, which must be exactly (2*rounds+2)*32 bytes of valid encodings.
func ippFromBytes(buf []byte, rounds int) (*InnerProductProof, error) {
	if len(buf) != (2*rounds+2)*32 {
		return nil, fmt.Errorf("%w: inner product proof length %d", ErrMalformedProof, len(buf))
	}
	proof := &InnerProductProof{
		LVec: make([]*ristretto.Point, rounds),
		RVec: make([]*ristretto.Point, rounds),
	}
	off := 0
	for i := 0; i < rounds; i++ {
		var L, R ristretto.Point
		if err := L.UnmarshalBinary(buf[off : off+32]); err != nil {
			return nil, fmt.Errorf("%w: bad L encoding at round %d", ErrMalformedProof, i)
		}
		off += 32
		if err := R.UnmarshalBinary(buf[off : off+32]); err != nil {
			return nil, fmt.Errorf("%w: bad R encoding at round %d", ErrMalformedProof, i)
		}
		off += 32
		proof.LVec[i] = &L
		proof.RVec[i] = &R
	}
	a, ok := scalarFromCanonicalBytes(buf[off : off+32])
	if !ok {
		return nil, fmt.Errorf("%w: non-canonical terminal scalar a", ErrMalformedProof)
	}
	proof.A = a
	off += 32
	b, ok := scalarFromCanonicalBytes(buf[off : off+32])
	if !ok {
		return nil, fmt.Errorf("%w: non-canonical terminal scalar b", ErrMalformedProof)
	}
	proof.B = b
	return proof, nil
}
