// Package replay refuses transcripts that have already been accepted once. A
// valid transcript only shows that its prover knew the secret when it was
// produced; presenting a recorded one again proves nothing.
package replay

import (
	"context"
	"errors"
	"time"

	"github.com/drand/dlproof/common/log"
	"github.com/drand/dlproof/internal/metrics"
	"github.com/drand/dlproof/proof"
)

// ErrReplayed is returned for a valid transcript that was accepted before.
var ErrReplayed = errors.New("transcript already presented")

// Entry is what a Store keeps for every accepted transcript.
type Entry struct {
	Group      string
	Public     []byte
	Commitment []byte
	Challenge  []byte
	Response   []byte
	// Seen is the unix time the transcript was first accepted
	Seen int64
}

// NewEntry builds the entry of an accepted record from its canonical
// transcript.
func NewEntry(r *proof.Record, seen time.Time) *Entry {
	r = r.Canonical()
	return &Entry{
		Group:      r.Public.Group.Name(),
		Public:     r.Public.Key.Bytes(),
		Commitment: r.Proof.Commitment.Bytes(),
		Challenge:  r.Proof.Challenge.Bytes(),
		Response:   r.Proof.Response.Bytes(),
		Seen:       seen.Unix(),
	}
}

// Store remembers transcript digests. Implementations are safe for concurrent
// use.
type Store interface {
	// Insert records the entry under digest and reports whether the digest
	// was already present, in which case the existing entry is kept.
	Insert(ctx context.Context, digest []byte, e *Entry) (bool, error)
	// Get returns the entry stored under digest.
	Get(ctx context.Context, digest []byte) (*Entry, error)
	Len(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

// ErrNotFound is returned by Store.Get for unknown digests.
var ErrNotFound = errors.New("digest not found")

// Guard verifies transcripts and accepts each valid one at most once.
type Guard struct {
	store   Store
	log     log.Logger
	metrics *metrics.Recorder
}

// NewGuard returns a Guard recording accepted transcripts in store. A nil
// recorder means metrics.Default().
func NewGuard(l log.Logger, store Store, m *metrics.Recorder) *Guard {
	if m == nil {
		m = metrics.Default()
	}
	return &Guard{
		store:   store,
		log:     l.Named("replay"),
		metrics: m,
	}
}

// Check verifies r. An invalid transcript returns false without being
// recorded. A valid one is recorded and accepted the first time, and refused
// with ErrReplayed afterwards. Transcripts are compared in canonical form, so
// adding p to t, or a multiple of the relevant order to e or s, is a replay.
func (g *Guard) Check(ctx context.Context, r *proof.Record) (bool, error) {
	ok, err := r.Verify()
	if err != nil {
		return false, err
	}
	grp := r.Public.Group.Name()
	g.metrics.Verified(grp, ok)
	if !ok {
		return false, nil
	}
	seen, err := g.store.Insert(ctx, r.Digest(), NewEntry(r, g.metrics.Now()))
	if err != nil {
		return false, err
	}
	if seen {
		g.metrics.ReplayRejected(grp)
		g.log.Warnw("replayed transcript", "group", grp, "proof", r.Proof)
		return false, ErrReplayed
	}
	return true, nil
}

// Close closes the underlying store.
func (g *Guard) Close(ctx context.Context) error {
	return g.store.Close(ctx)
}
