package bulletproofs

import (
	"fmt"
	"io"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// RangeProof is a self-contained, publicly verifiable certificate that
// each committed value lies in [0, 2^n). It never references the values
// or their blindings.
type RangeProof struct {
	A, S       *ristretto.Point
	T1, T2     *ristretto.Point
	TX         *ristretto.Scalar
	TXBlinding *ristretto.Scalar
	EBlinding  *ristretto.Scalar
	IPPProof   *InnerProductProof
}

// ToBytes encodes the proof as 2*log2(n*m)+9 fixed 32-byte elements:
// A, S, T1, T2, then tau_x, mu, t_x, then the inner product proof.
// The layout is a compatibility contract; do not reorder.
func (p *RangeProof) ToBytes() []byte {
	var buf []byte
	buf = append(buf, p.A.Bytes()...)
	buf = append(buf, p.S.Bytes()...)
	buf = append(buf, p.T1.Bytes()...)
	buf = append(buf, p.T2.Bytes()...)
	buf = append(buf, p.TXBlinding.Bytes()...)
	buf = append(buf, p.EBlinding.Bytes()...)
	buf = append(buf, p.TX.Bytes()...)
	buf = append(buf, p.IPPProof.ToBytes()...)
	return buf
}

// RangeProofFromBytes decodes a proof, validating the element count
// shape and every group-element encoding. The number of inner-product
// rounds is implied by the length; Verify later checks it against the
// statement's n*m.
func RangeProofFromBytes(buf []byte) (*RangeProof, error) {
	if len(buf)%32 != 0 {
		return nil, fmt.Errorf("%w: length %d not a multiple of 32", ErrMalformedProof, len(buf))
	}
	elements := len(buf) / 32
	if elements < 9 || (elements-9)%2 != 0 {
		return nil, fmt.Errorf("%w: %d elements", ErrMalformedProof, elements)
	}
	rounds := (elements - 9) / 2

	points := make([]*ristretto.Point, 4)
	off := 0
	for i := range points {
		var pt ristretto.Point
		if err := pt.UnmarshalBinary(buf[off : off+32]); err != nil {
			return nil, fmt.Errorf("%w: bad point encoding at element %d", ErrMalformedProof, i)
		}
		points[i] = &pt
		off += 32
	}

	scalars := make([]*ristretto.Scalar, 3)
	for i := range scalars {
		s, ok := scalarFromCanonicalBytes(buf[off : off+32])
		if !ok {
			return nil, fmt.Errorf("%w: non-canonical scalar at element %d", ErrMalformedProof, 4+i)
		}
		scalars[i] = s
		off += 32
	}

	ipp, err := ippFromBytes(buf[off:], rounds)
	if err != nil {
		return nil, err
	}

	return &RangeProof{
		A:          points[0],
		S:          points[1],
		T1:         points[2],
		T2:         points[3],
		TXBlinding: scalars[0],
		EBlinding:  scalars[1],
		TX:         scalars[2],
		IPPProof:   ipp,
	}, nil
}

// ProveMultipleWithRNG produces one aggregated proof for all values by
// running every party and dealer round in-process. values and blindings
// must have equal power-of-two length.
func ProveMultipleWithRNG(
	bpGens *BulletproofGens,
	pcGens *PedersenGens,
	transcript *merlin.Transcript,
	rng io.Reader,
	values []uint64,
	blindings []*ristretto.Scalar,
	n int64,
) (*RangeProof, []*ristretto.Point, error) {
	if len(values) != len(blindings) {
		return nil, nil, fmt.Errorf("%w: %d values but %d blindings", ErrConfiguration, len(values), len(blindings))
	}

	dealer1, err := NewDealer(bpGens, pcGens, transcript, n, int64(len(values)))
	if err != nil {
		return nil, nil, err
	}

	parties := make([]*PartyAwaitingPosition, len(values))
	for i := range values {
		parties[i], err = NewParty(bpGens, pcGens, values[i], blindings[i], n)
		if err != nil {
			return nil, nil, err
		}
	}

	partiesA := make([]*PartyAwaitingBitChallenge, len(parties))
	bitCommitments := make([]*BitCommitment, len(parties))
	for j := range parties {
		partiesA[j], bitCommitments[j], err = parties[j].AssignPositionWithRNG(j, rng)
		if err != nil {
			return nil, nil, err
		}
	}
	valueCommitments := make([]*ristretto.Point, len(bitCommitments))
	for i := range bitCommitments {
		valueCommitments[i] = bitCommitments[i].VJ
	}

	dealer2, bitChallenge, err := dealer1.ReceiveBitCommitments(bitCommitments)
	if err != nil {
		return nil, nil, err
	}

	partiesB := make([]*PartyAwaitingPolyChallenge, len(partiesA))
	polyCommitments := make([]*PolyCommitment, len(partiesA))
	for i := range partiesA {
		partiesB[i], polyCommitments[i] = partiesA[i].ApplyChallengeWithRNG(bitChallenge, rng)
	}

	dealer3, polyChallenge, err := dealer2.ReceivePolyCommitments(polyCommitments)
	if err != nil {
		return nil, nil, err
	}

	proofShares := make([]*ProofShare, len(partiesB))
	for i := range partiesB {
		proofShares[i], err = partiesB[i].ApplyChallenge(polyChallenge)
		if err != nil {
			return nil, nil, err
		}
	}

	proof, err := dealer3.AssembleShares(proofShares)
	if err != nil {
		return nil, nil, err
	}
	return proof, valueCommitments, nil
}

// GenerateRangeProofs proves a batch of values with the default
// transcript label and system randomness, padding the batch to a power
// of two by repeating the last entry.
func GenerateRangeProofs(bpGens *BulletproofGens, pcGens *PedersenGens, values []uint64, blindings []*ristretto.Scalar, n int64) (*RangeProof, []*ristretto.Point, error) {
	valuesPadded := ResizeValuesToPow2(values)
	blindingsPadded := ResizeScalarsToPow2(blindings)

	transcript := InitialTranscript(ProofDomainTag)
	return ProveMultipleWithRNG(bpGens, pcGens, transcript, nil, valuesPadded, blindingsPadded, n)
}

// ProveSingleWithRNG proves one value; the m=1 case of the aggregated
// protocol.
func ProveSingleWithRNG(bpGens *BulletproofGens, pcGens *PedersenGens, transcript *merlin.Transcript, rng io.Reader, value uint64, blinding *ristretto.Scalar, n int64) (*ristretto.Point, *RangeProof, error) {
	proof, commitments, err := ProveMultipleWithRNG(bpGens, pcGens, transcript, rng, []uint64{value}, []*ristretto.Scalar{blinding}, n)
	if err != nil {
		return nil, nil, err
	}
	return commitments[0], proof, nil
}

// ProveSingle is ProveSingleWithRNG with the default transcript label
// and system randomness.
func ProveSingle(bpGens *BulletproofGens, pcGens *PedersenGens, value uint64, blinding *ristretto.Scalar, n int64) (*ristretto.Point, *RangeProof, error) {
	return ProveSingleWithRNG(bpGens, pcGens, InitialTranscript(ProofDomainTag), nil, value, blinding, n)
}
