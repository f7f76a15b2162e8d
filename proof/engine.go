package proof

import (
	"errors"
	"math/big"

	"github.com/google/uuid"

	"github.com/drand/dlproof/common/log"
	"github.com/drand/dlproof/crypto"
	"github.com/drand/dlproof/entropy"
	"github.com/drand/dlproof/internal/metrics"
	"github.com/drand/dlproof/key"
)

// Engine runs the protocol in one group with a shared randomness source,
// logger and metrics recorder. It holds no per-proof state and can be used
// from several goroutines.
type Engine struct {
	group   *crypto.Group
	src     *entropy.Source
	log     log.Logger
	metrics *metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource sets the randomness source used for secrets, nonces and
// challenges.
func WithSource(src *entropy.Source) Option {
	return func(e *Engine) {
		e.src = src
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithMetrics sets the recorder operations are counted in.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine returns an Engine for grp. Unless overridden it draws from
// crypto/rand, logs to the default logger and records in metrics.Default().
func NewEngine(grp *crypto.Group, opts ...Option) (*Engine, error) {
	if grp == nil {
		return nil, errors.New("proof: nil group")
	}
	e := &Engine{
		group:   grp,
		src:     entropy.NewSource(),
		log:     log.DefaultLogger(),
		metrics: metrics.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("proof").With("group", grp.Name())
	return e, nil
}

// Group returns the group of the engine.
func (e *Engine) Group() *crypto.Group {
	return e.group
}

// GenerateKeyPair draws a fresh key pair.
func (e *Engine) GenerateKeyPair() (*key.Pair, error) {
	pair, err := key.NewKeyPair(e.group, e.src)
	if err != nil {
		return nil, err
	}
	e.log.Debugw("generated key pair", "public", pair.Public.Key)
	return pair, nil
}

// KeyPairFromSecret builds the key pair of a caller-chosen secret.
func (e *Engine) KeyPairFromSecret(secret *big.Int) (*key.Pair, error) {
	pair, err := key.NewKeyPairFromSecret(e.group, secret)
	if err != nil {
		e.log.Warnw("rejected secret", "err", err)
		return nil, err
	}
	return pair, nil
}

// Prove produces a transcript for pair, drawing the challenge internally.
func (e *Engine) Prove(pair *key.Pair) (*Proof, error) {
	if pair == nil || pair.Group() == nil || !pair.Group().Equal(e.group) {
		return nil, errors.New("proof: key pair does not belong to the engine group")
	}
	done := e.metrics.StartProve(e.group.Name())
	p, err := Prove(pair, e.src)
	if err != nil {
		e.log.Warnw("proof failed", "err", err)
		return nil, err
	}
	done()
	e.log.Debugw("proof produced", "public", pair.Public.Key, "t", p.Commitment, "e", p.Challenge, "s", p.Response)
	return p, nil
}

// Verify checks a transcript against the public value and records the outcome.
func (e *Engine) Verify(public *big.Int, p *Proof) (bool, error) {
	ok, err := Verify(e.group, public, p)
	if err != nil {
		e.log.Warnw("verification refused", "err", err)
		return false, err
	}
	e.metrics.Verified(e.group.Name(), ok)
	e.log.Debugw("verification", "public", public, "proof", p, "valid", ok)
	return ok, nil
}

// NewProver starts an interactive execution for pair. The returned session
// identifier tags the log lines of the execution.
func (e *Engine) NewProver(pair *key.Pair) (*Prover, string, error) {
	prover, err := NewProver(pair, e.src)
	if err != nil {
		return nil, "", err
	}
	session := uuid.NewString()
	e.log.Debugw("prover session", "session", session, "public", pair.Public.Key)
	return prover, session, nil
}

// NewVerifier starts the verifier side of an interactive execution for the
// public value.
func (e *Engine) NewVerifier(public *big.Int) (*Verifier, error) {
	return NewVerifier(&key.Identity{Key: public, Group: e.group}, e.src)
}
