package bulletproofs

import "github.com/bwesterb/go-ristretto"

// Round messages exchanged between parties and the dealer. Everything in
// them is already blinded; none expose a party's bits or blindings.

// BitCommitment is party j's first-round message: its value commitment
// and the commitments A_j, S_j to its bit decomposition and blinding
// vectors.
type BitCommitment struct {
	VJ *ristretto.Point
	AJ *ristretto.Point
	SJ *ristretto.Point
}

// BitChallenge carries the dealer's y, z challenges after round one.
type BitChallenge struct {
	Y *ristretto.Scalar
	Z *ristretto.Scalar
}

// PolyCommitment is party j's second-round message: commitments to the
// degree-1 and degree-2 coefficients of its t_j(x).
type PolyCommitment struct {
	T1J *ristretto.Point
	T2J *ristretto.Point
}

// PolyChallenge carries the dealer's evaluation challenge x.
type PolyChallenge struct {
	X *ristretto.Scalar
}

// ProofShare is party j's final-round message: its evaluated l, r
// vectors and blinded response scalars.
type ProofShare struct {
	TX         *ristretto.Scalar
	TXBlinding *ristretto.Scalar
	EBlinding  *ristretto.Scalar
	LVec       []*ristretto.Scalar
	RVec       []*ristretto.Scalar
}

func (ps *ProofShare) checkSize(n int64, bpGens *BulletproofGens, j int) error {
	if int64(len(ps.LVec)) != n {
		return errWrongRoundCount("share l_vec", int(n), len(ps.LVec))
	}
	if int64(len(ps.RVec)) != n {
		return errWrongRoundCount("share r_vec", int(n), len(ps.RVec))
	}
	if n > bpGens.GensCapacity {
		return errGeneratorsLength(bpGens.GensCapacity, n)
	}
	if int64(j) >= bpGens.PartyCapacity {
		return errGeneratorsLength(bpGens.PartyCapacity, int64(j))
	}
	return nil
}

// wipe scrubs the share's secret-derived vectors. The dealer calls this
// after assembly; an aborted session must call it too.
func (ps *ProofShare) wipe() {
	ps.TX.SetZero()
	ps.TXBlinding.SetZero()
	ps.EBlinding.SetZero()
	wipeScalars(ps.LVec)
	wipeScalars(ps.RVec)
}
