package bulletproofs

import (
	"math/bits"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// DealerAwaitingBitCommitments is the dealer before round one. The
// dealer never holds secrets; it aggregates the parties' broadcast
// messages and drives the shared transcript.
type DealerAwaitingBitCommitments struct {
	BPGens     *BulletproofGens
	PCGens     *PedersenGens
	Transcript *merlin.Transcript
	N, M       int64
}

// NewDealer validates the session shape (n a supported bitsize, m a
// power of two, generators large enough) and binds it to the transcript.
func NewDealer(bg *BulletproofGens, pg *PedersenGens, t *merlin.Transcript, n, m int64) (*DealerAwaitingBitCommitments, error) {
	switch n {
	case 8, 16, 32, 64:
	default:
		return nil, errInvalidBitsize(n)
	}
	if m < 1 || bits.OnesCount64(uint64(m)) > 1 {
		return nil, errInvalidAggregation(m)
	}
	if bg.GensCapacity < n {
		return nil, errGeneratorsLength(bg.GensCapacity, n)
	}
	if bg.PartyCapacity < m {
		return nil, errGeneratorsLength(bg.PartyCapacity, m)
	}

	t = RangeproofDomainSep(n, m, t)

	return &DealerAwaitingBitCommitments{
		BPGens:     bg,
		PCGens:     pg,
		Transcript: t,
		N:          n,
		M:          m,
	}, nil
}

type DealerAwaitingPolyCommitments struct {
	N, M           int64
	Transcript     *merlin.Transcript
	BPGens         *BulletproofGens
	PCGens         *PedersenGens
	BitChallenge   *BitChallenge
	BitCommitments []*BitCommitment
	A              *ristretto.Point
	S              *ristretto.Point
}

// ReceiveBitCommitments absorbs every party's value commitment and the
// sums A, S into the transcript, then derives the y, z challenges for
// broadcast.
func (d *DealerAwaitingBitCommitments) ReceiveBitCommitments(commitments []*BitCommitment) (*DealerAwaitingPolyCommitments, *BitChallenge, error) {
	if int(d.M) != len(commitments) {
		return nil, nil, errWrongRoundCount("bit commitment", int(d.M), len(commitments))
	}

	var A, S ristretto.Point
	A.SetZero()
	S.SetZero()
	for i := range commitments {
		d.Transcript.AppendMessage([]byte("V"), commitments[i].VJ.Bytes())
		A.Add(&A, commitments[i].AJ)
		S.Add(&S, commitments[i].SJ)
	}
	d.Transcript.AppendMessage([]byte("A"), A.Bytes())
	d.Transcript.AppendMessage([]byte("S"), S.Bytes())

	y := ChallengeScalar("y", d.Transcript)
	z := ChallengeScalar("z", d.Transcript)
	challenge := &BitChallenge{Y: y, Z: z}

	return &DealerAwaitingPolyCommitments{
		N:              d.N,
		M:              d.M,
		Transcript:     d.Transcript,
		BPGens:         d.BPGens,
		PCGens:         d.PCGens,
		BitChallenge:   challenge,
		BitCommitments: commitments,
		A:              &A,
		S:              &S,
	}, challenge, nil
}

type DealerAwaitingProofShares struct {
	N, M            int64
	Transcript      *merlin.Transcript
	BPGens          *BulletproofGens
	PCGens          *PedersenGens
	BitChallenge    *BitChallenge
	BitCommitments  []*BitCommitment
	A               *ristretto.Point
	S               *ristretto.Point
	PolyChallenge   *PolyChallenge
	PolyCommitments []*PolyCommitment
	T1, T2          *ristretto.Point
}

// ReceivePolyCommitments sums and absorbs the T1, T2 commitments, then
// derives the evaluation challenge x.
func (d *DealerAwaitingPolyCommitments) ReceivePolyCommitments(commitments []*PolyCommitment) (*DealerAwaitingProofShares, *PolyChallenge, error) {
	if int(d.M) != len(commitments) {
		return nil, nil, errWrongRoundCount("poly commitment", int(d.M), len(commitments))
	}

	var T1, T2 ristretto.Point
	T1.SetZero()
	T2.SetZero()
	for i := range commitments {
		T1.Add(&T1, commitments[i].T1J)
		T2.Add(&T2, commitments[i].T2J)
	}
	d.Transcript.AppendMessage([]byte("T_1"), T1.Bytes())
	d.Transcript.AppendMessage([]byte("T_2"), T2.Bytes())

	x := ChallengeScalar("x", d.Transcript)
	polyChallenge := &PolyChallenge{X: x}

	return &DealerAwaitingProofShares{
		N:               d.N,
		M:               d.M,
		Transcript:      d.Transcript,
		BPGens:          d.BPGens,
		PCGens:          d.PCGens,
		BitChallenge:    d.BitChallenge,
		BitCommitments:  d.BitCommitments,
		A:               d.A,
		S:               d.S,
		PolyChallenge:   polyChallenge,
		PolyCommitments: commitments,
		T1:              &T1,
		T2:              &T2,
	}, polyChallenge, nil
}

// AssembleShares merges the parties' final-round shares into the
// aggregated proof: sums the response scalars, concatenates the l, r
// vectors and compresses them with one inner-product argument. Every
// share is structurally validated first; a bad share aborts the whole
// session. The shares are wiped before returning.
func (d *DealerAwaitingProofShares) AssembleShares(shares []*ProofShare) (*RangeProof, error) {
	if int(d.M) != len(shares) {
		return nil, errWrongRoundCount("proof share", int(d.M), len(shares))
	}
	for j, s := range shares {
		if err := s.checkSize(d.N, d.BPGens, j); err != nil {
			for i := range shares {
				shares[i].wipe()
			}
			return nil, err
		}
	}

	var tx, txBlinding, eBlinding ristretto.Scalar
	tx.SetZero()
	txBlinding.SetZero()
	eBlinding.SetZero()
	for i := range shares {
		tx.Add(&tx, shares[i].TX)
		txBlinding.Add(&txBlinding, shares[i].TXBlinding)
		eBlinding.Add(&eBlinding, shares[i].EBlinding)
	}

	AppendScalar("t_x", &tx, d.Transcript)
	AppendScalar("t_x_blinding", &txBlinding, d.Transcript)
	AppendScalar("e_blinding", &eBlinding, d.Transcript)

	// Challenge w ties the value statement to the inner-product
	// statement via Q = w * B.
	w := ChallengeScalar("w", d.Transcript)
	var Q ristretto.Point
	Q.ScalarMult(d.PCGens.B, w)

	gFactors := make([]*ristretto.Scalar, d.N*d.M)
	hFactors := make([]*ristretto.Scalar, d.N*d.M)
	var inverseY ristretto.Scalar
	inverseY.Inverse(d.BitChallenge.Y)
	scalarExp := NewScalarExp(&inverseY)
	for i := range gFactors {
		var one ristretto.Scalar
		gFactors[i] = one.SetOne()
		hFactors[i] = scalarExp.Next()
	}

	var lVec, rVec []*ristretto.Scalar
	for i := range shares {
		lVec = append(lVec, cloneScalars(shares[i].LVec)...)
		rVec = append(rVec, cloneScalars(shares[i].RVec)...)
	}

	G := d.BPGens.G(d.N, d.M)
	H := d.BPGens.H(d.N, d.M)
	k := int(d.N * d.M)
	gVec, hVec := make([]*ristretto.Point, k), make([]*ristretto.Point, k)
	for i := 0; i < k; i++ {
		var g, h ristretto.Point
		g.SetZero()
		h.SetZero()
		gVec[i] = g.Add(&g, G.Next())
		hVec[i] = h.Add(&h, H.Next())
	}

	ippProof := CreateInnerProductProof(d.Transcript, &Q, gFactors, hFactors, gVec, hVec, lVec, rVec)

	for i := range shares {
		shares[i].wipe()
	}
	wipeScalars(lVec)
	wipeScalars(rVec)

	return &RangeProof{
		A:          d.A,
		S:          d.S,
		T1:         d.T1,
		T2:         d.T2,
		TX:         &tx,
		TXBlinding: &txBlinding,
		EBlinding:  &eBlinding,
		IPPProof:   ippProof,
	}, nil
}
