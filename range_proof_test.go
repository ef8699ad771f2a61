package bulletproofs

import (
	"encoding/binary"
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/sha3"
)

func seededRNG(seed string) sha3.ShakeHash {
	h := sha3.NewShake256()
	h.Write([]byte(seed))
	return h
}

func TestRangeProofCompleteness(t *testing.T) {
	assert := assert.New(t)

	pcGens := NewPedersenGens()
	for _, n := range []int64{8, 16, 32, 64} {
		bpGens := NewBulletproofGens(n, 1)
		max := uint64(1)<<uint(n) - 1
		if n == 64 {
			max = ^uint64(0)
		}
		for _, v := range []uint64{0, 1, max / 2, max} {
			var blinding ristretto.Scalar
			blinding.Rand()
			V, proof, err := ProveSingle(bpGens, pcGens, v, &blinding, n)
			assert.NoError(err)
			assert.NoError(proof.VerifySingle(bpGens, pcGens, V, n), "n=%d v=%d", n, v)
		}
	}
}

func TestRangeProofRejectsOutOfRangeValue(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(8, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.Rand()

	_, _, err := ProveSingle(bpGens, pcGens, 256, &blinding, 8)
	assert.ErrorIs(err, ErrValueOutOfRange)

	// Boundary: 255 still proves.
	V, proof, err := ProveSingle(bpGens, pcGens, 255, &blinding, 8)
	assert.NoError(err)
	assert.NoError(proof.VerifySingle(bpGens, pcGens, V, 8))
}

func TestRangeProofRejectsBadConfiguration(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(64, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.Rand()

	_, _, err := ProveSingle(bpGens, pcGens, 5, &blinding, 24)
	assert.ErrorIs(err, ErrConfiguration)

	small := NewBulletproofGens(8, 1)
	_, _, err = ProveSingle(small, pcGens, 5, &blinding, 64)
	assert.ErrorIs(err, ErrConfiguration)
}

func TestRangeProofWrongCommitmentFails(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(16, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.Rand()

	_, proof, err := ProveSingle(bpGens, pcGens, 1234, &blinding, 16)
	assert.NoError(err)

	other := pcGens.Commit(uint64ToScalar(1235), &blinding)
	assert.ErrorIs(proof.VerifySingle(bpGens, pcGens, other, 16), ErrVerificationFailed)
}

func TestRangeProofEncodedSize(t *testing.T) {
	assert := assert.New(t)

	pcGens := NewPedersenGens()
	for _, tc := range []struct{ n, m int64 }{{8, 1}, {64, 1}, {8, 4}, {32, 2}} {
		bpGens := NewBulletproofGens(tc.n, tc.m)
		values := make([]uint64, tc.m)
		blindings := make([]*ristretto.Scalar, tc.m)
		for i := range values {
			values[i] = uint64(i + 1)
			var b ristretto.Scalar
			blindings[i] = b.Rand()
		}
		proof, _, err := GenerateRangeProofs(bpGens, pcGens, values, blindings, tc.n)
		assert.NoError(err)

		rounds := log2(int(tc.n * tc.m))
		assert.Len(proof.ToBytes(), (2*rounds+9)*32, "n=%d m=%d", tc.n, tc.m)
	}
}

func TestRangeProofSerializationRoundTrip(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(32, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.Rand()

	V, proof, err := ProveSingle(bpGens, pcGens, 99999, &blinding, 32)
	assert.NoError(err)

	buf := proof.ToBytes()
	decoded, err := RangeProofFromBytes(buf)
	assert.NoError(err)
	assert.Equal(buf, decoded.ToBytes())
	assert.NoError(decoded.VerifySingle(bpGens, pcGens, V, 32))

	_, err = RangeProofFromBytes(buf[:len(buf)-1])
	assert.ErrorIs(err, ErrMalformedProof)
	_, err = RangeProofFromBytes(buf[:7*32])
	assert.ErrorIs(err, ErrMalformedProof)
}

func TestRangeProofMutationFuzz(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(8, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.Rand()

	V, proof, err := ProveSingle(bpGens, pcGens, 201, &blinding, 8)
	assert.NoError(err)
	buf := proof.ToBytes()

	rng := seededRNG("mutation fuzz")
	failures := 0
	const trials = 64
	for i := 0; i < trials; i++ {
		var pick [3]byte
		rng.Read(pick[:])
		pos := int(binary.LittleEndian.Uint16(pick[:2])) % len(buf)
		bit := pick[2]
		if bit == 0 {
			bit = 1
		}

		mutated := make([]byte, len(buf))
		copy(mutated, buf)
		mutated[pos] ^= bit

		decoded, err := RangeProofFromBytes(mutated)
		if err != nil {
			failures++
			continue
		}
		if decoded.VerifySingle(bpGens, pcGens, V, 8) != nil {
			failures++
		}
	}
	// A stray scalar wraparound collision is tolerable; anything more
	// means the encoding is not binding.
	assert.GreaterOrEqual(failures, trials-1)
}

func TestRangeProofByteFlipsInInnerProductTailFail(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(8, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.Rand()

	V, proof, err := ProveSingle(bpGens, pcGens, 77, &blinding, 8)
	assert.NoError(err)
	buf := proof.ToBytes()

	// Offsets in the L/R pairs and the terminal scalars a, b.
	for _, pos := range []int{len(buf) / 2, len(buf) - 3*32, len(buf) - 33, len(buf) - 1} {
		mutated := make([]byte, len(buf))
		copy(mutated, buf)
		mutated[pos] ^= 0x04

		decoded, err := RangeProofFromBytes(mutated)
		if err != nil {
			assert.ErrorIs(err, ErrMalformedProof, "pos=%d", pos)
			continue
		}
		assert.Error(decoded.VerifySingle(bpGens, pcGens, V, 8), "pos=%d", pos)
	}
}

func TestRangeProofRejectsNonCanonicalScalars(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(8, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.Rand()

	_, proof, err := ProveSingle(bpGens, pcGens, 42, &blinding, 8)
	assert.NoError(err)
	buf := proof.ToBytes()

	// The group order reduces to zero, so it is a second byte encoding
	// of the zero scalar and must be rejected wherever a scalar sits:
	// tau_x, mu, t_x and the inner product terminals.
	order := [32]byte{
		0xed, 0xd3, 0xf5, 0x5c, 0x1a, 0x63, 0x12, 0x58,
		0xd6, 0x9c, 0xf7, 0xa2, 0xde, 0xf9, 0xde, 0x14,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x10,
	}

	for _, off := range []int{4 * 32, 5 * 32, 6 * 32, len(buf) - 64, len(buf) - 32} {
		mutated := make([]byte, len(buf))
		copy(mutated, buf)
		copy(mutated[off:off+32], order[:])
		_, err := RangeProofFromBytes(mutated)
		assert.ErrorIs(err, ErrMalformedProof, "offset %d", off)
	}
}

func TestResizePaddingLeavesCallerSliceUntouched(t *testing.T) {
	assert := assert.New(t)

	backing := []uint64{1, 2, 3, 99}
	padded := ResizeValuesToPow2(backing[:3])
	assert.Equal([]uint64{1, 2, 3, 3}, padded)
	assert.Equal(uint64(99), backing[3])

	var s1, s2, s3, sentinel ristretto.Scalar
	s1.Rand()
	s2.Rand()
	s3.Rand()
	sentinel.Rand()
	var keep ristretto.Scalar
	keep.Add(keep.SetZero(), &sentinel)

	scalars := []*ristretto.Scalar{&s1, &s2, &s3, &sentinel}
	paddedS := ResizeScalarsToPow2(scalars[:3])
	assert.Len(paddedS, 4)
	assert.True(paddedS[3].Equals(&s3))
	assert.True(scalars[3].Equals(&keep))
}

func TestRangeProofDeterministicWithSeededRNG(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(16, 1)
	pcGens := NewPedersenGens()
	var blinding ristretto.Scalar
	blinding.SetBytes(&[32]byte{1, 2, 3})

	prove := func(seed string) []byte {
		transcript := InitialTranscript(ProofDomainTag)
		_, proof, err := ProveSingleWithRNG(bpGens, pcGens, transcript, seededRNG(seed), 777, &blinding, 16)
		assert.NoError(err)
		return proof.ToBytes()
	}

	assert.Equal(prove("seed-a"), prove("seed-a"))
	assert.NotEqual(prove("seed-a"), prove("seed-b"))

	// Both decode and verify regardless of the randomness used.
	for _, seed := range []string{"seed-a", "seed-b"} {
		decoded, err := RangeProofFromBytes(prove(seed))
		assert.NoError(err)
		V := pcGens.Commit(uint64ToScalar(777), &blinding)
		assert.NoError(decoded.VerifySingle(bpGens, pcGens, V, 16))
	}
}

func TestGenerateRangeProofsPadsToPowerOfTwo(t *testing.T) {
	assert := assert.New(t)

	bpGens := NewBulletproofGens(8, 4)
	pcGens := NewPedersenGens()
	values := []uint64{1, 2, 3}
	blindings := make([]*ristretto.Scalar, 3)
	for i := range blindings {
		var b ristretto.Scalar
		blindings[i] = b.Rand()
	}

	proof, commitments, err := GenerateRangeProofs(bpGens, pcGens, values, blindings, 8)
	assert.NoError(err)
	assert.Len(commitments, 4)
	assert.NoError(proof.VerifyMultiple(bpGens, pcGens, commitments, 8))
}
