package bulletproofs

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the proving, aggregation and verification
// entry points. Callers can match them with errors.Is; wrapped variants
// carry the offending sizes.
var (
	// ErrConfiguration covers bad (n, m) parameters and undersized
	// generator sets, rejected before any cryptographic work.
	ErrConfiguration = errors.New("bulletproofs: invalid configuration")

	// ErrValueOutOfRange is returned when a prover's secret value does
	// not fit in [0, 2^n). It is raised before any commitment is made.
	ErrValueOutOfRange = errors.New("bulletproofs: value out of range")

	// ErrProtocolAbort is returned by dealer and party round functions
	// when a round message is missing, malformed or malicious. The
	// session is dead; no partial proof can be salvaged.
	ErrProtocolAbort = errors.New("bulletproofs: aggregation protocol aborted")

	// ErrMalformedProof is returned when proof bytes do not decode to
	// the expected element counts or valid group elements. It is
	// distinct from a cryptographic verification failure.
	ErrMalformedProof = errors.New("bulletproofs: malformed proof")

	// ErrVerificationFailed is the sole signal that a structurally
	// valid proof does not satisfy the verification equation. It
	// deliberately carries no detail about which term failed.
	ErrVerificationFailed = errors.New("bulletproofs: verification failed")
)

func errInvalidBitsize(n int64) error {
	return fmt.Errorf("%w: bitsize %d not one of 8, 16, 32, 64", ErrConfiguration, n)
}

func errInvalidAggregation(m int64) error {
	return fmt.Errorf("%w: party count %d not a power of two", ErrConfiguration, m)
}

func errGeneratorsLength(have, need int64) error {
	return fmt.Errorf("%w: generators capacity %d below required %d", ErrConfiguration, have, need)
}

func errWrongRoundCount(round string, want, got int) error {
	return fmt.Errorf("%w: %s round expected %d messages, got %d", ErrProtocolAbort, round, want, got)
}
