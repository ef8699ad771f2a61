package bulletproofs

import (
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"
)

func aggregate(t *testing.T, n int64, values []uint64) (*RangeProof, []*ristretto.Point, *BulletproofGens, *PedersenGens) {
	t.Helper()
	assert := assert.New(t)

	m := int64(len(values))
	bpGens := NewBulletproofGens(n, m)
	pcGens := NewPedersenGens()
	blindings := make([]*ristretto.Scalar, m)
	for i := range blindings {
		var b ristretto.Scalar
		blindings[i] = b.Rand()
	}

	transcript := InitialTranscript(ProofDomainTag)
	proof, commitments, err := ProveMultipleWithRNG(bpGens, pcGens, transcript, nil, values, blindings, n)
	assert.NoError(err)
	return proof, commitments, bpGens, pcGens
}

func TestAggregatedProofVerifies(t *testing.T) {
	assert := assert.New(t)

	for _, m := range []int{2, 4, 8} {
		values := make([]uint64, m)
		for i := range values {
			values[i] = uint64(i * 31)
		}
		proof, commitments, bpGens, pcGens := aggregate(t, 8, values)
		assert.NoError(proof.VerifyMultiple(bpGens, pcGens, commitments, 8), "m=%d", m)

		// Dropping a commitment changes the statement shape.
		assert.Error(proof.VerifyMultiple(bpGens, pcGens, commitments[:m-1], 8))
	}
}

func TestAggregationRejectsOutOfRangeParty(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(8, 2)
	pcGens := NewPedersenGens()
	var b1, b2 ristretto.Scalar
	b1.Rand()
	b2.Rand()

	transcript := InitialTranscript(ProofDomainTag)
	_, _, err := ProveMultipleWithRNG(bpGens, pcGens, transcript, nil, []uint64{3, 300}, []*ristretto.Scalar{&b1, &b2}, 8)
	assert.ErrorIs(err, ErrValueOutOfRange)
}

func TestDealerRejectsBadSessionShape(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(64, 4)
	pcGens := NewPedersenGens()

	_, err := NewDealer(bpGens, pcGens, InitialTranscript(ProofDomainTag), 24, 2)
	assert.ErrorIs(err, ErrConfiguration)

	_, err = NewDealer(bpGens, pcGens, InitialTranscript(ProofDomainTag), 64, 3)
	assert.ErrorIs(err, ErrConfiguration)

	_, err = NewDealer(bpGens, pcGens, InitialTranscript(ProofDomainTag), 64, 8)
	assert.ErrorIs(err, ErrConfiguration)
}

func TestDealerAbortsOnMissingRoundMessages(t *testing.T) {
	assert := assert.New(t)

	n := int64(8)
	bpGens := NewBulletproofGens(n, 2)
	pcGens := NewPedersenGens()
	var b1, b2 ristretto.Scalar
	b1.Rand()
	b2.Rand()

	dealer, err := NewDealer(bpGens, pcGens, InitialTranscript(ProofDomainTag), n, 2)
	assert.NoError(err)

	p1, err := NewParty(bpGens, pcGens, 3, &b1, n)
	assert.NoError(err)
	_, bc1, err := p1.AssignPositionWithRNG(0, nil)
	assert.NoError(err)

	// Only one of two first-round messages arrives.
	_, _, err = dealer.ReceiveBitCommitments([]*BitCommitment{bc1})
	assert.ErrorIs(err, ErrProtocolAbort)
}

func TestPartyAbortsOnZeroChallenge(t *testing.T) {
	assert := assert.New(t)

	n := int64(8)
	bpGens := NewBulletproofGens(n, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.Rand()

	dealer, err := NewDealer(bpGens, pcGens, InitialTranscript(ProofDomainTag), n, 1)
	assert.NoError(err)
	party, err := NewParty(bpGens, pcGens, 42, &blinding, n)
	assert.NoError(err)

	partyA, bc, err := party.AssignPositionWithRNG(0, nil)
	assert.NoError(err)
	_, bitChallenge, err := dealer.ReceiveBitCommitments([]*BitCommitment{bc})
	assert.NoError(err)
	partyB, _ := partyA.ApplyChallengeWithRNG(bitChallenge, nil)

	var zero ristretto.Scalar
	zero.SetZero()
	_, err = partyB.ApplyChallenge(&PolyChallenge{X: &zero})
	assert.ErrorIs(err, ErrProtocolAbort)
}

func TestDealerRejectsUndersizedShares(t *testing.T) {
	assert := assert.New(t)

	n := int64(8)
	bpGens := NewBulletproofGens(n, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.Rand()

	dealer, err := NewDealer(bpGens, pcGens, InitialTranscript(ProofDomainTag), n, 1)
	assert.NoError(err)
	party, err := NewParty(bpGens, pcGens, 42, &blinding, n)
	assert.NoError(err)

	partyA, bc, err := party.AssignPositionWithRNG(0, nil)
	assert.NoError(err)
	dealer2, bitChallenge, err := dealer.ReceiveBitCommitments([]*BitCommitment{bc})
	assert.NoError(err)
	partyB, pc := partyA.ApplyChallengeWithRNG(bitChallenge, nil)
	dealer3, polyChallenge, err := dealer2.ReceivePolyCommitments([]*PolyCommitment{pc})
	assert.NoError(err)
	share, err := partyB.ApplyChallenge(polyChallenge)
	assert.NoError(err)

	share.LVec = share.LVec[:n-1]
	_, err = dealer3.AssembleShares([]*ProofShare{share})
	assert.ErrorIs(err, ErrProtocolAbort)
}

func TestBatchVerify(t *testing.T) {
	assert := assert.New(t)

	n := int64(8)
	bpGens := NewBulletproofGens(n, 1)
	pcGens := NewPedersenGens()

	var proofs []*RangeProof
	var commitments [][]*ristretto.Point
	for _, v := range []uint64{0, 77, 255} {
		var blinding ristretto.Scalar
		blinding.Rand()
		V, proof, err := ProveSingle(bpGens, pcGens, v, &blinding, n)
		assert.NoError(err)
		proofs = append(proofs, proof)
		commitments = append(commitments, []*ristretto.Point{V})
	}

	assert.NoError(BatchVerify(bpGens, pcGens, nil, proofs, commitments, n))

	// Corrupting any single proof fails the whole batch.
	corrupted, err := RangeProofFromBytes(proofs[1].ToBytes())
	assert.NoError(err)
	var bump ristretto.Scalar
	bump.SetOne()
	corrupted.TX.Add(corrupted.TX, &bump)
	assert.ErrorIs(
		BatchVerify(bpGens, pcGens, nil, []*RangeProof{proofs[0], corrupted, proofs[2]}, commitments, n),
		ErrVerificationFailed,
	)

	assert.Error(BatchVerify(bpGens, pcGens, nil, proofs[:2], commitments, n))
}
