package proof

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/drand/kyber/group/mod"

	"github.com/drand/dlproof/common"
	"github.com/drand/dlproof/crypto"
	"github.com/drand/dlproof/entropy"
	"github.com/drand/dlproof/key"
)

// ErrWrongState is returned when a protocol step is run out of order, for
// instance answering a second challenge with the same commitment.
var ErrWrongState = errors.New("protocol step out of order")

// State is the position of a Prover or Verifier in the protocol.
type State int

const (
	// Idle is the state before the commitment
	Idle State = iota
	// Committed means t has been sent and r is held
	Committed
	// Challenged means e is known
	Challenged
	// Responded means s has been computed and r discarded
	Responded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Committed:
		return "committed"
	case Challenged:
		return "challenged"
	case Responded:
		return "responded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Prover runs the prover side of a single protocol execution. A Prover is
// single use: its nonce answers exactly one challenge, then it is wiped. Two
// answers for the same r would reveal x. A Prover is not safe for concurrent
// use; concurrent proofs each use their own Prover.
type Prover struct {
	pair  *key.Pair
	src   *entropy.Source
	state State

	nonce      *big.Int
	commitment *big.Int
	challenge  *big.Int
}

// NewProver returns a Prover for the given pair. The secret must be in
// [1, p-1] and the public value must match it. A nil src draws from
// crypto/rand.
func NewProver(pair *key.Pair, src *entropy.Source) (*Prover, error) {
	if pair == nil || pair.Public == nil || pair.Group() == nil {
		return nil, errors.New("proof: incomplete key pair")
	}
	if err := key.CheckSecret(pair.Group(), pair.Secret); err != nil {
		return nil, err
	}
	if !pair.Valid() {
		return nil, errors.New("proof: public value does not match the secret")
	}
	if src == nil {
		src = entropy.NewSource()
	}
	return &Prover{pair: pair, src: src}, nil
}

// State returns the current protocol state.
func (p *Prover) State() State {
	return p.state
}

// Commit draws a fresh nonce r uniformly from [1, p-1] and returns the
// commitment t = g^r mod p.
func (p *Prover) Commit() (*big.Int, error) {
	if p.state != Idle {
		return nil, fmt.Errorf("%w: commit while %s", ErrWrongState, p.state)
	}
	grp := p.pair.Group()
	r, err := p.src.Int(grp.P())
	if err != nil {
		return nil, err
	}
	p.commitWith(r)
	return new(big.Int).Set(p.commitment), nil
}

func (p *Prover) commitWith(r *big.Int) {
	p.nonce = r
	p.commitment = p.pair.Group().ExpG(r)
	p.state = Committed
}

// Respond answers the challenge e with s = (r + e*x) mod (p-1) and returns the
// full transcript. The nonce is discarded afterwards.
func (p *Prover) Respond(e *big.Int) (*Proof, error) {
	if p.state != Committed {
		return nil, fmt.Errorf("%w: respond while %s", ErrWrongState, p.state)
	}
	if e == nil || e.Sign() < 0 {
		return nil, fmt.Errorf("%w: challenge must be a non-negative integer", common.ErrInvalidInput)
	}
	p.challenge = new(big.Int).Set(e)
	p.state = Challenged

	s := response(p.pair.Group(), p.nonce, p.challenge, p.pair.Secret)
	p.nonce.SetInt64(0)
	p.nonce = nil
	p.state = Responded

	return &Proof{
		Commitment: new(big.Int).Set(p.commitment),
		Challenge:  new(big.Int).Set(p.challenge),
		Response:   s,
	}, nil
}

// response computes (r + e*x) mod (p-1) in the exponent ring.
func response(grp *crypto.Group, r, e, x *big.Int) *big.Int {
	ex := new(mod.Int).Mul(grp.Exponent(e), grp.Exponent(x))
	s := new(mod.Int).Add(grp.Exponent(r), ex).(*mod.Int)
	return new(big.Int).Set(&s.V)
}

// Prove runs the whole protocol for pair in one call. The challenge is not
// chosen by an independent verifier but drawn from src right after the
// commitment, uniformly from [1, p-1]. The transcript convinces whoever trusts
// src; use Prover and Verifier when the verifier must pick e.
func Prove(pair *key.Pair, src *entropy.Source) (*Proof, error) {
	if src == nil {
		src = entropy.NewSource()
	}
	prover, err := NewProver(pair, src)
	if err != nil {
		return nil, err
	}
	if _, err := prover.Commit(); err != nil {
		return nil, err
	}
	e, err := src.Int(pair.Group().P())
	if err != nil {
		return nil, err
	}
	return prover.Respond(e)
}
