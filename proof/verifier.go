package proof

import (
	"fmt"
	"math/big"

	"github.com/drand/dlproof/common"
	"github.com/drand/dlproof/entropy"
	"github.com/drand/dlproof/key"
)

// Verifier runs the verifier side of one interactive execution: it only picks
// its challenge once the commitment is fixed, which is what makes the protocol
// sound against a prover that does not know x.
type Verifier struct {
	public *key.Identity
	src    *entropy.Source
	state  State

	commitment *big.Int
	challenge  *big.Int
	transcript *Proof
}

// NewVerifier returns a Verifier for the statement held by public. A nil src
// draws from crypto/rand.
func NewVerifier(public *key.Identity, src *entropy.Source) (*Verifier, error) {
	if public == nil {
		return nil, fmt.Errorf("%w: nil public key", common.ErrInvalidInput)
	}
	if err := public.Valid(); err != nil {
		return nil, err
	}
	if src == nil {
		src = entropy.NewSource()
	}
	return &Verifier{public: public, src: src}, nil
}

// State returns the current protocol state.
func (v *Verifier) State() State {
	return v.state
}

// Challenge records the commitment t and returns a challenge drawn uniformly
// from [1, p-1].
func (v *Verifier) Challenge(t *big.Int) (*big.Int, error) {
	if v.state != Idle {
		return nil, fmt.Errorf("%w: challenge while %s", ErrWrongState, v.state)
	}
	if !v.public.Group.InRange(t) {
		return nil, fmt.Errorf("%w: commitment is not a group element", common.ErrInvalidInput)
	}
	e, err := v.src.Int(v.public.Group.P())
	if err != nil {
		return nil, err
	}
	v.commitment = new(big.Int).Set(t)
	v.challenge = e
	v.state = Challenged
	return new(big.Int).Set(e), nil
}

// Check verifies the response s against the recorded commitment and
// challenge. A Verifier checks a single response.
func (v *Verifier) Check(s *big.Int) (bool, error) {
	if v.state != Challenged {
		return false, fmt.Errorf("%w: check while %s", ErrWrongState, v.state)
	}
	pr := &Proof{
		Commitment: v.commitment,
		Challenge:  v.challenge,
		Response:   s,
	}
	ok, err := Verify(v.public.Group, v.public.Key, pr)
	if err != nil {
		return false, err
	}
	v.transcript = pr
	v.state = Responded
	return ok, nil
}

// Transcript returns the checked transcript, nil before Check.
func (v *Verifier) Transcript() *Proof {
	return v.transcript
}
