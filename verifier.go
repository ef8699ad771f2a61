package bulletproofs

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// delta computes the public correction term
// (z - z^2) * <1, y^(n*m)> - z^3 * <1, 2^n> * (1 + z + ... + z^(m-1)),
// the part of t(x)'s constant coefficient that does not depend on the
// secret values.
func delta(n, m int64, y, z *ristretto.Scalar) *ristretto.Scalar {
	two := uint64ToScalar(2)
	sumY := sumOfPowers(y, n*m)
	sum2 := sumOfPowers(two, n)
	sumZ := sumOfPowers(z, m)

	var zz, left, right ristretto.Scalar
	zz.Mul(z, z)
	left.Sub(z, &zz)
	left.Mul(&left, sumY)
	right.Mul(&zz, z)
	right.Mul(&right, sum2)
	right.Mul(&right, sumZ)
	return left.Sub(&left, &right)
}

// verificationTerms replays the proving transcript over public data and
// returns the scalars and points of the single multiscalar equation that
// must sum to the identity. rng feeds the statement-combining scalar c,
// which only needs to be unpredictable, not reproducible.
func (p *RangeProof) verificationTerms(bpGens *BulletproofGens, pcGens *PedersenGens, transcript *merlin.Transcript, rng io.Reader, commitments []*ristretto.Point, n int64) ([]*ristretto.Scalar, []*ristretto.Point, error) {
	m := int64(len(commitments))
	switch n {
	case 8, 16, 32, 64:
	default:
		return nil, nil, errInvalidBitsize(n)
	}
	if m < 1 || bits.OnesCount64(uint64(m)) > 1 {
		return nil, nil, errInvalidAggregation(m)
	}
	if bpGens.GensCapacity < n {
		return nil, nil, errGeneratorsLength(bpGens.GensCapacity, n)
	}
	if bpGens.PartyCapacity < m {
		return nil, nil, errGeneratorsLength(bpGens.PartyCapacity, m)
	}

	RangeproofDomainSep(n, m, transcript)
	for i := range commitments {
		transcript.AppendMessage([]byte("V"), commitments[i].Bytes())
	}
	transcript.AppendMessage([]byte("A"), p.A.Bytes())
	transcript.AppendMessage([]byte("S"), p.S.Bytes())
	y := ChallengeScalar("y", transcript)
	z := ChallengeScalar("z", transcript)
	transcript.AppendMessage([]byte("T_1"), p.T1.Bytes())
	transcript.AppendMessage([]byte("T_2"), p.T2.Bytes())
	x := ChallengeScalar("x", transcript)
	AppendScalar("t_x", p.TX, transcript)
	AppendScalar("t_x_blinding", p.TXBlinding, transcript)
	AppendScalar("e_blinding", p.EBlinding, transcript)
	w := ChallengeScalar("w", transcript)

	c := randomScalar(rng)

	uSq, uInvSq, s, err := p.IPPProof.verificationScalars(n*m, transcript)
	if err != nil {
		return nil, nil, err
	}

	a := p.IPPProof.A
	b := p.IPPProof.B

	var zz, minusZ ristretto.Scalar
	zz.Mul(z, z)
	minusZ.Neg(z)

	var yInv ristretto.Scalar
	yInv.Inverse(y)

	k := n * m
	scalars := make([]*ristretto.Scalar, 0, 2*k+2*int64(len(uSq))+6+m)
	points := make([]*ristretto.Point, 0, cap(scalars))

	// A + x*S + c*x*T1 + c*x^2*T2
	var one, xS, cx, cxx ristretto.Scalar
	one.SetOne()
	xS.Add(xS.SetZero(), x)
	cx.Mul(c, x)
	cxx.Mul(&cx, x)
	scalars = append(scalars, &one, &xS, &cx, &cxx)
	points = append(points, p.A, p.S, p.T1, p.T2)

	// u_i^2 * L_i + u_i^-2 * R_i
	for i := range uSq {
		scalars = append(scalars, uSq[i], uInvSq[i])
		points = append(points, p.IPPProof.LVec[i], p.IPPProof.RVec[i])
	}

	// (-e_blinding - c*tau_x) * B_blinding
	var blind ristretto.Scalar
	blind.Mul(c, p.TXBlinding)
	blind.Add(&blind, p.EBlinding)
	blind.Neg(&blind)
	scalars = append(scalars, &blind)
	points = append(points, pcGens.BBlinding)

	// (w*(t_x - a*b) + c*(delta(y,z) - t_x)) * B
	var base, tmp ristretto.Scalar
	tmp.Mul(a, b)
	base.Sub(p.TX, &tmp)
	base.Mul(&base, w)
	tmp.Sub(delta(n, m, y, z), p.TX)
	tmp.Mul(&tmp, c)
	base.Add(&base, &tmp)
	scalars = append(scalars, &base)
	points = append(points, pcGens.B)

	// (-z - a*s_i) * G_i
	G := bpGens.G(n, m)
	for i := int64(0); i < k; i++ {
		var g ristretto.Scalar
		g.Mul(a, s[i])
		g.Sub(&minusZ, &g)
		scalars = append(scalars, &g)
		points = append(points, G.Next())
	}

	// (z + y^-i * (zz * z^j * 2^t - b/s_i)) * H_i  with i = j*n + t
	H := bpGens.H(n, m)
	expYInv := NewScalarExp(&yInv)
	expZ := NewScalarExp(z)
	two := uint64ToScalar(2)
	for j := int64(0); j < m; j++ {
		zExp := expZ.Next()
		exp2 := NewScalarExp(two)
		for t := int64(0); t < n; t++ {
			i := j*n + t
			var h, zAnd2 ristretto.Scalar
			zAnd2.Mul(zExp, exp2.Next())
			zAnd2.Mul(&zAnd2, &zz)
			h.Mul(b, s[k-1-i])
			h.Sub(&zAnd2, &h)
			h.Mul(&h, expYInv.Next())
			h.Add(z, &h)
			scalars = append(scalars, &h)
			points = append(points, H.Next())
		}
	}

	// c * zz * z^j * V_j
	expZV := NewScalarExp(z)
	for j := int64(0); j < m; j++ {
		var v ristretto.Scalar
		v.Mul(c, &zz)
		v.Mul(&v, expZV.Next())
		scalars = append(scalars, &v)
		points = append(points, commitments[j])
	}

	return scalars, points, nil
}

// VerifyMultipleWithTranscript checks one aggregated proof against the
// commitments. The transcript must start from the same label the prover
// used. Failure is a single opaque error.
func (p *RangeProof) VerifyMultipleWithTranscript(bpGens *BulletproofGens, pcGens *PedersenGens, transcript *merlin.Transcript, rng io.Reader, commitments []*ristretto.Point, n int64) error {
	scalars, points, err := p.verificationTerms(bpGens, pcGens, transcript, rng, commitments, n)
	if err != nil {
		return err
	}

	mega := vartimeMultiscalarMul(scalars, points)
	var identity ristretto.Point
	identity.SetZero()
	if !mega.Equals(&identity) {
		return ErrVerificationFailed
	}
	return nil
}

// VerifyMultiple is VerifyMultipleWithTranscript with the default
// transcript label and system randomness.
func (p *RangeProof) VerifyMultiple(bpGens *BulletproofGens, pcGens *PedersenGens, commitments []*ristretto.Point, n int64) error {
	return p.VerifyMultipleWithTranscript(bpGens, pcGens, InitialTranscript(ProofDomainTag), nil, commitments, n)
}

// VerifySingle checks a single-party proof against one commitment.
func (p *RangeProof) VerifySingle(bpGens *BulletproofGens, pcGens *PedersenGens, V *ristretto.Point, n int64) error {
	return p.VerifyMultiple(bpGens, pcGens, []*ristretto.Point{V}, n)
}

// BatchVerify combines several independent proofs' equations with
// random weights into one multiscalar check. It succeeds iff every
// proof verifies individually, up to negligible probability over the
// weights. proofs[i] attests commitments[i].
func BatchVerify(bpGens *BulletproofGens, pcGens *PedersenGens, rng io.Reader, proofs []*RangeProof, commitments [][]*ristretto.Point, n int64) error {
	if len(proofs) != len(commitments) {
		return fmt.Errorf("%w: %d proofs but %d commitment sets", ErrConfiguration, len(proofs), len(commitments))
	}

	var allScalars []*ristretto.Scalar
	var allPoints []*ristretto.Point
	for i := range proofs {
		transcript := InitialTranscript(ProofDomainTag)
		scalars, points, err := proofs[i].verificationTerms(bpGens, pcGens, transcript, rng, commitments[i], n)
		if err != nil {
			return err
		}

		// The first equation keeps weight one; the rest are scaled by
		// fresh random weights so failures cannot cancel.
		if i > 0 {
			rho := randomScalar(rng)
			for j := range scalars {
				scalars[j].Mul(scalars[j], rho)
			}
		}
		allScalars = append(allScalars, scalars...)
		allPoints = append(allPoints, points...)
	}

	mega := vartimeMultiscalarMul(allScalars, allPoints)
	var identity ristretto.Point
	identity.SetZero()
	if !mega.Equals(&identity) {
		return ErrVerificationFailed
	}
	return nil
}
