// Package proof implements the Schnorr proof of knowledge of a discrete
// logarithm over the multiplicative group of integers modulo a prime.
//
// A prover holding x with y = g^x mod p commits to t = g^r mod p for a fresh
// nonce r, receives a challenge e and answers s = r + e*x mod p-1. A verifier
// accepts when g^s = t * y^e mod p. Prover and Verifier run the three moves
// interactively; Prove collapses them into one call and draws the challenge
// itself.
package proof

import (
	"fmt"
	"math/big"

	"github.com/drand/dlproof/common"
	"github.com/drand/dlproof/crypto"
)

// Proof is the transcript of one run of the protocol.
type Proof struct {
	// Commitment t = g^r mod p
	Commitment *big.Int
	// Challenge e
	Challenge *big.Int
	// Response s = (r + e*x) mod (p-1)
	Response *big.Int
}

func (p *Proof) String() string {
	return fmt.Sprintf("t=%s, e=%s, s=%s", p.Commitment, p.Challenge, p.Response)
}

// Equal returns true when both transcripts carry the same three values.
func (p *Proof) Equal(p2 *Proof) bool {
	if p == nil || p2 == nil {
		return p == p2
	}
	return p.Commitment.Cmp(p2.Commitment) == 0 &&
		p.Challenge.Cmp(p2.Challenge) == 0 &&
		p.Response.Cmp(p2.Response) == 0
}

// Verify checks the transcript against the public value y in grp, that is
// g^s == t * y^e mod p. It returns common.ErrInvalidInput for nil or
// negative integers. Verify is a pure function of its inputs: it only proves
// that the algebraic identity holds.
func Verify(grp *crypto.Group, public *big.Int, p *Proof) (bool, error) {
	if grp == nil {
		return false, fmt.Errorf("%w: nil group", common.ErrInvalidInput)
	}
	if p == nil {
		return false, fmt.Errorf("%w: nil proof", common.ErrInvalidInput)
	}
	for _, v := range []struct {
		name string
		v    *big.Int
	}{
		{"public value", public},
		{"commitment", p.Commitment},
		{"challenge", p.Challenge},
		{"response", p.Response},
	} {
		if v.v == nil {
			return false, fmt.Errorf("%w: missing %s", common.ErrInvalidInput, v.name)
		}
		if v.v.Sign() < 0 {
			return false, fmt.Errorf("%w: negative %s", common.ErrInvalidInput, v.name)
		}
	}

	left, right := sides(grp, public, p)
	return left.Cmp(right) == 0, nil
}

// sides returns both members of the verification equation.
func sides(grp *crypto.Group, public *big.Int, p *Proof) (left, right *big.Int) {
	left = grp.ExpG(p.Response)
	right = grp.Mul(p.Commitment, grp.Exp(public, p.Challenge))
	return left, right
}
