package bulletproofs

import (
	"fmt"
	"io"

	"github.com/bwesterb/go-ristretto"
)

// PartyAwaitingPosition is a party that has committed to its value but
// not yet been assigned a position in the aggregated statement.
type PartyAwaitingPosition struct {
	BPGens    *BulletproofGens
	PCGens    *PedersenGens
	N         int64
	Value     uint64
	VBlinding *ristretto.Scalar
	V         *ristretto.Point
}

// NewParty checks the bitsize and that value fits in [0, 2^n), then
// produces the party's value commitment. The range check happens before
// any other commitment so an oversized value never leaks through a
// malformed proof.
func NewParty(bg *BulletproofGens, pg *PedersenGens, value uint64, blinding *ristretto.Scalar, n int64) (*PartyAwaitingPosition, error) {
	switch n {
	case 8, 16, 32, 64:
	default:
		return nil, errInvalidBitsize(n)
	}
	if bg.GensCapacity < n {
		return nil, errGeneratorsLength(bg.GensCapacity, n)
	}
	if n < 64 && value>>uint(n) != 0 {
		return nil, ErrValueOutOfRange
	}

	V := pg.Commit(uint64ToScalar(value), blinding)

	return &PartyAwaitingPosition{
		BPGens:    bg,
		PCGens:    pg,
		N:         n,
		Value:     value,
		VBlinding: blinding,
		V:         V,
	}, nil
}

// PartyAwaitingBitChallenge has sent its bit commitments and waits for
// the dealer's y, z challenges.
type PartyAwaitingBitChallenge struct {
	N         int64
	V         uint64
	VBlinding *ristretto.Scalar
	J         int
	PCGens    *PedersenGens
	ABlinding *ristretto.Scalar
	SBlinding *ristretto.Scalar
	SL        []*ristretto.Scalar
	SR        []*ristretto.Scalar
}

// AssignPositionWithRNG places the party at slot j of the shared
// generator vector and produces its first-round message. The bit
// decomposition is folded into A with fixed-shape multiply-and-add so
// runtime does not depend on the bit values.
func (p *PartyAwaitingPosition) AssignPositionWithRNG(j int, rng io.Reader) (*PartyAwaitingBitChallenge, *BitCommitment, error) {
	if p.BPGens.PartyCapacity <= int64(j) {
		return nil, nil, errGeneratorsLength(p.BPGens.PartyCapacity, int64(j))
	}
	bpShare := p.BPGens.Share(j)

	Gs := bpShare.G(p.N)
	Hs := bpShare.H(p.N)

	// A = a_blinding * B_blinding + <a_L, G> + <a_R, H>
	// with a_L[i] = bit i of the value and a_R[i] = a_L[i] - 1.
	aBlinding := randomScalar(rng)
	aL := make([]*ristretto.Scalar, p.N)
	aR := make([]*ristretto.Scalar, p.N)
	var one ristretto.Scalar
	one.SetOne()
	for i := int64(0); i < p.N; i++ {
		aL[i] = uint64ToScalar((p.Value >> uint(i)) & 1)
		var r ristretto.Scalar
		aR[i] = r.Sub(aL[i], &one)
	}

	s1 := append([]*ristretto.Scalar{aBlinding}, aL...)
	s1 = append(s1, aR...)
	p1 := append([]*ristretto.Point{p.PCGens.BBlinding}, Gs...)
	p1 = append(p1, Hs...)
	A := multiscalarMul(s1, p1)

	wipeScalars(aL)
	wipeScalars(aR)

	sBlinding := randomScalar(rng)
	sL := make([]*ristretto.Scalar, p.N)
	sR := make([]*ristretto.Scalar, p.N)
	for i := int64(0); i < p.N; i++ {
		sL[i] = randomScalar(rng)
		sR[i] = randomScalar(rng)
	}

	// S = s_blinding * B_blinding + <s_L, G> + <s_R, H>
	s2 := append([]*ristretto.Scalar{sBlinding}, sL...)
	s2 = append(s2, sR...)
	p2 := append([]*ristretto.Point{p.PCGens.BBlinding}, Gs...)
	p2 = append(p2, Hs...)
	S := multiscalarMul(s2, p2)

	bitCommitment := &BitCommitment{
		VJ: p.V,
		AJ: A,
		SJ: S,
	}

	nextState := &PartyAwaitingBitChallenge{
		N:         p.N,
		V:         p.Value,
		VBlinding: p.VBlinding,
		PCGens:    p.PCGens,
		J:         j,
		ABlinding: aBlinding,
		SBlinding: sBlinding,
		SL:        sL,
		SR:        sR,
	}
	return nextState, bitCommitment, nil
}

// ApplyChallengeWithRNG builds the party's slice of the l(x), r(x)
// polynomials, offset by its position j, and commits to the non-constant
// coefficients of t_j(x).
func (p *PartyAwaitingBitChallenge) ApplyChallengeWithRNG(vc *BitChallenge, rng io.Reader) (*PartyAwaitingPolyChallenge, *PolyCommitment) {
	offsetY := ScalarExpVartime(vc.Y, uint64(int64(p.J)*p.N))
	offsetZ := ScalarExpVartime(vc.Z, uint64(p.J))

	LPoly := ZeroVecPoly1(p.N)
	RPoly := ZeroVecPoly1(p.N)

	var offsetZZ ristretto.Scalar
	offsetZZ.Mul(vc.Z, vc.Z)
	offsetZZ.Mul(&offsetZZ, offsetZ)

	expY := offsetY
	var exp2, one ristretto.Scalar
	exp2.SetOne()
	one.SetOne()

	for i := int64(0); i < p.N; i++ {
		aLI := uint64ToScalar((p.V >> uint(i)) & 1)
		var aRI ristretto.Scalar
		aRI.Sub(aLI, &one)

		LPoly.As[i].Sub(aLI, vc.Z)
		LPoly.Bs[i].Add(LPoly.Bs[i], p.SL[i])

		var tmp1, tmp2 ristretto.Scalar
		tmp1.Add(&aRI, vc.Z)
		tmp1.Mul(expY, &tmp1)
		tmp2.Mul(&offsetZZ, &exp2)
		RPoly.As[i].Add(&tmp1, &tmp2)
		RPoly.Bs[i].Mul(expY, p.SR[i])

		expY.Mul(expY, vc.Y)
		exp2.Add(&exp2, &exp2)
	}

	wipeScalars(p.SL)
	wipeScalars(p.SR)

	tPoly := LPoly.InnerProduct(RPoly)

	t1Blinding := randomScalar(rng)
	t2Blinding := randomScalar(rng)
	T1 := p.PCGens.Commit(tPoly.B, t1Blinding)
	T2 := p.PCGens.Commit(tPoly.C, t2Blinding)

	polyCommitment := &PolyCommitment{
		T1J: T1,
		T2J: T2,
	}

	next := &PartyAwaitingPolyChallenge{
		OffsetZZ:   &offsetZZ,
		LPoly:      LPoly,
		RPoly:      RPoly,
		TPoly:      tPoly,
		T1Blinding: t1Blinding,
		T2Blinding: t2Blinding,
		VBlinding:  p.VBlinding,
		ABlinding:  p.ABlinding,
		SBlinding:  p.SBlinding,
	}
	return next, polyCommitment
}

// PartyAwaitingPolyChallenge has sent its polynomial commitments and
// waits for the dealer's evaluation challenge x.
type PartyAwaitingPolyChallenge struct {
	OffsetZZ   *ristretto.Scalar
	LPoly      *VecPoly1
	RPoly      *VecPoly1
	TPoly      *Poly2
	VBlinding  *ristretto.Scalar
	ABlinding  *ristretto.Scalar
	SBlinding  *ristretto.Scalar
	T1Blinding *ristretto.Scalar
	T2Blinding *ristretto.Scalar
}

// ApplyChallenge evaluates the party's polynomials at x, producing its
// proof share. A zero challenge would let the dealer strip the blinding,
// so it aborts the session. The party's polynomial secrets are wiped
// before returning.
func (p *PartyAwaitingPolyChallenge) ApplyChallenge(pc *PolyChallenge) (*ProofShare, error) {
	var zero ristretto.Scalar
	zero.SetZero()
	if zero.Equals(pc.X) {
		p.wipe()
		return nil, errMaliciousDealer()
	}

	var a ristretto.Scalar
	a.Mul(p.OffsetZZ, p.VBlinding)
	tBlindingPoly := Poly2{
		A: &a,
		B: p.T1Blinding,
		C: p.T2Blinding,
	}

	tx := p.TPoly.Eval(pc.X)
	txBlinding := tBlindingPoly.Eval(pc.X)
	var eBlinding ristretto.Scalar
	eBlinding.Mul(p.SBlinding, pc.X)
	eBlinding.Add(p.ABlinding, &eBlinding)
	lVec := p.LPoly.Eval(pc.X)
	rVec := p.RPoly.Eval(pc.X)

	share := &ProofShare{
		TXBlinding: txBlinding,
		TX:         tx,
		EBlinding:  &eBlinding,
		LVec:       lVec,
		RVec:       rVec,
	}
	p.wipe()
	return share, nil
}

// wipe scrubs every secret the party still holds. Safe to call more
// than once.
func (p *PartyAwaitingPolyChallenge) wipe() {
	p.LPoly.wipe()
	p.RPoly.wipe()
	p.TPoly.wipe()
	p.ABlinding.SetZero()
	p.SBlinding.SetZero()
	p.T1Blinding.SetZero()
	p.T2Blinding.SetZero()
}

func errMaliciousDealer() error {
	return fmt.Errorf("%w: dealer sent a zero evaluation challenge", ErrProtocolAbort)
}
