package bulletproofs

import (
	"encoding/binary"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// Transcript domain tags. These pin the Fiat-Shamir byte layout; changing
// any of them breaks compatibility with proofs produced by other
// implementations of the same transcript (they match the dalek/MobileCoin
// bulletproof transcript).
const (
	ProofDomainTag       = "mc_bulletproof_transcript"
	hashToPointDomainTag = "mc_onetime_key_hash_to_point"
)

func InitialTranscript(label string) *merlin.Transcript {
	return merlin.NewTranscript(label)
}

// RangeproofDomainSep binds the (n, m) shape of the statement to the
// transcript before any commitment is absorbed.
func RangeproofDomainSep(n int64, m int64, t *merlin.Transcript) *merlin.Transcript {
	appendBytes([]byte("dom-sep"), []byte("rangeproof v1"), t)

	appendUint64("n", uint64(n), t)
	appendUint64("m", uint64(m), t)
	return t
}

func InnerproductDomainSep(n uint64, t *merlin.Transcript) {
	appendBytes([]byte("dom-sep"), []byte("ipp v1"), t)
	appendUint64("n", n, t)
}

func appendUint64(label string, i uint64, t *merlin.Transcript) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, i)
	appendBytes([]byte(label), buf, t)
}

func appendBytes(field, data []byte, t *merlin.Transcript) {
	t.AppendMessage(field, data)
}

func AppendScalar(label string, s *ristretto.Scalar, t *merlin.Transcript) {
	appendBytes([]byte(label), s.Bytes(), t)
}

func AppendPoint(label string, p *ristretto.Point, t *merlin.Transcript) {
	appendBytes([]byte(label), p.Bytes(), t)
}

// ChallengeScalar extracts 64 bytes from the transcript and reduces them
// mod the group order. The extraction advances the transcript state, so
// two calls never return the same scalar.
func ChallengeScalar(label string, t *merlin.Transcript) *ristretto.Scalar {
	data := t.ExtractBytes([]byte(label), 64)
	var dataBytes [64]byte
	copy(dataBytes[:], data)

	var s ristretto.Scalar
	return s.SetReduced(&dataBytes)
}
