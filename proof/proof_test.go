package proof

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/drand/kyber/xof/blake2xb"
	"github.com/stretchr/testify/require"

	"github.com/drand/dlproof/common"
	"github.com/drand/dlproof/crypto"
	"github.com/drand/dlproof/entropy"
	"github.com/drand/dlproof/key"
)

func seeded(seed int64) *entropy.Source {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(seed))
	return entropy.NewSourceFromStream(blake2xb.New(b[:]))
}

func TestProveVerifyCompleteness(t *testing.T) {
	for _, grp := range []*crypto.Group{crypto.NewToyGroup(), crypto.NewMODP2048Group()} {
		src := seeded(42)
		n := 200
		if grp.Name() == crypto.MODP2048GroupID {
			n = 10
		}
		for i := 0; i < n; i++ {
			pair, err := key.NewKeyPair(grp, src)
			require.NoError(t, err)
			p, err := Prove(pair, src)
			require.NoError(t, err)

			ok, err := Verify(grp, pair.Public.Key, p)
			require.NoError(t, err)
			require.True(t, ok, "group %s, proof %s", grp.Name(), p)
		}
	}
}

func TestProveRanges(t *testing.T) {
	grp := crypto.NewToyGroup()
	src := seeded(7)
	pm1 := grp.ExponentModulus()
	for i := 0; i < 1000; i++ {
		pair, err := key.NewKeyPair(grp, src)
		require.NoError(t, err)
		p, err := Prove(pair, src)
		require.NoError(t, err)

		require.True(t, grp.InRange(p.Commitment), "t=%s", p.Commitment)
		require.True(t, grp.InRange(p.Challenge), "e=%s", p.Challenge)
		require.True(t, p.Response.Sign() >= 0, "s=%s", p.Response)
		require.True(t, p.Response.Cmp(pm1) < 0, "s=%s", p.Response)
	}
}

func TestLiteralScenario(t *testing.T) {
	grp := crypto.NewToyGroup()
	pair, err := key.NewKeyPairFromSecret(grp, big.NewInt(5))
	require.NoError(t, err)
	require.Equal(t, int64(32), pair.Public.Key.Int64())

	prover, err := NewProver(pair, nil)
	require.NoError(t, err)
	prover.commitWith(big.NewInt(7))
	require.Equal(t, int64(27), prover.commitment.Int64())

	p, err := prover.Respond(big.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, int64(27), p.Commitment.Int64())
	require.Equal(t, int64(3), p.Challenge.Int64())
	require.Equal(t, int64(22), p.Response.Int64())
	require.Equal(t, "t=27, e=3, s=22", p.String())

	left, right := sides(grp, pair.Public.Key, p)
	require.Equal(t, int64(77), left.Int64())
	require.Equal(t, int64(77), right.Int64())

	ok, err := Verify(grp, pair.Public.Key, p)
	require.NoError(t, err)
	require.True(t, ok)

	// a response off by one never verifies since g != 1
	bad := &Proof{Commitment: p.Commitment, Challenge: p.Challenge, Response: big.NewInt(23)}
	ok, err = Verify(grp, pair.Public.Key, bad)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResponseOffByOneRejected(t *testing.T) {
	grp := crypto.NewToyGroup()
	src := seeded(3)
	for i := 0; i < 200; i++ {
		pair, err := key.NewKeyPair(grp, src)
		require.NoError(t, err)
		p, err := Prove(pair, src)
		require.NoError(t, err)

		bad := &Proof{
			Commitment: p.Commitment,
			Challenge:  p.Challenge,
			Response:   new(big.Int).Add(p.Response, big.NewInt(1)),
		}
		ok, err := Verify(grp, pair.Public.Key, bad)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestSoundnessAcrossChallenges(t *testing.T) {
	grp := crypto.NewToyGroup()
	// 3 is invertible modulo 100, so y^(e1-e2) = 1 only when e1 = e2 mod 100
	pair, err := key.NewKeyPairFromSecret(grp, big.NewInt(3))
	require.NoError(t, err)

	prover, err := NewProver(pair, nil)
	require.NoError(t, err)
	prover.commitWith(big.NewInt(11))
	p, err := prover.Respond(big.NewInt(17))
	require.NoError(t, err)

	for e := int64(1); e <= 100; e++ {
		forged := &Proof{Commitment: p.Commitment, Challenge: big.NewInt(e), Response: p.Response}
		ok, err := Verify(grp, pair.Public.Key, forged)
		require.NoError(t, err)
		require.Equal(t, e == 17, ok, "challenge %d", e)
	}
}

func TestVerifyDeterministic(t *testing.T) {
	grp := crypto.NewToyGroup()
	pair, err := key.NewKeyPair(grp, nil)
	require.NoError(t, err)
	p, err := Prove(pair, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		ok, err := Verify(grp, pair.Public.Key, p)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestSeededProofsAreReproducible(t *testing.T) {
	grp := crypto.NewToyGroup()
	pair, err := key.NewKeyPairFromSecret(grp, big.NewInt(42))
	require.NoError(t, err)

	p1, err := Prove(pair, seeded(9))
	require.NoError(t, err)
	p2, err := Prove(pair, seeded(9))
	require.NoError(t, err)
	require.True(t, p1.Equal(p2))
}

func TestVerifyInvalidInput(t *testing.T) {
	grp := crypto.NewToyGroup()
	one := big.NewInt(1)
	neg := big.NewInt(-1)

	cases := []struct {
		name   string
		public *big.Int
		proof  *Proof
	}{
		{"nil proof", one, nil},
		{"nil public", nil, &Proof{one, one, one}},
		{"negative public", neg, &Proof{one, one, one}},
		{"negative t", one, &Proof{neg, one, one}},
		{"negative e", one, &Proof{one, neg, one}},
		{"negative s", one, &Proof{one, one, neg}},
		{"missing s", one, &Proof{one, one, nil}},
	}
	for _, c := range cases {
		ok, err := Verify(grp, c.public, c.proof)
		require.ErrorIs(t, err, common.ErrInvalidInput, c.name)
		require.False(t, ok, c.name)
	}

	_, err := Verify(nil, one, &Proof{one, one, one})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestProveRejectsBadPairs(t *testing.T) {
	grp := crypto.NewToyGroup()
	for _, x := range []int64{0, 101, -4} {
		pair := &key.Pair{
			Secret: big.NewInt(x),
			Public: &key.Identity{Key: big.NewInt(1), Group: grp},
		}
		_, err := Prove(pair, nil)
		require.ErrorIs(t, err, common.ErrSecretOutOfRange, "secret %d", x)
	}

	// stale public value
	pair, err := key.NewKeyPairFromSecret(grp, big.NewInt(5))
	require.NoError(t, err)
	pair.Secret = big.NewInt(6)
	_, err = Prove(pair, nil)
	require.Error(t, err)

	_, err = Prove(nil, nil)
	require.Error(t, err)
}

func TestRecomputedPublicVerifies(t *testing.T) {
	grp := crypto.NewToyGroup()
	pair, err := key.NewKeyPair(grp, nil)
	require.NoError(t, err)
	require.NoError(t, pair.SetSecret(big.NewInt(5)))

	p, err := Prove(pair, nil)
	require.NoError(t, err)
	ok, err := Verify(grp, big.NewInt(32), p)
	require.NoError(t, err)
	require.True(t, ok)
}

// sameBytes returns the same byte on every read.
type sameBytes struct{}

func (sameBytes) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0x2a
	}
	return len(p), nil
}

func TestProveWithRepeatingReader(t *testing.T) {
	grp := crypto.NewMODP2048Group()
	src := entropy.NewSource(sameBytes{})
	pair, err := key.NewKeyPair(grp, src)
	require.NoError(t, err)

	p1, err := Prove(pair, src)
	require.NoError(t, err)
	p2, err := Prove(pair, src)
	require.NoError(t, err)

	for _, p := range []*Proof{p1, p2} {
		ok, err := Verify(grp, pair.Public.Key, p)
		require.NoError(t, err)
		require.True(t, ok)
		// t = g^e would mean the nonce equals the challenge
		require.NotEqual(t, 0, grp.ExpG(p.Challenge).Cmp(p.Commitment))
		require.NotEqual(t, 0, p.Challenge.Cmp(pair.Secret))
	}
	require.NotEqual(t, 0, p1.Commitment.Cmp(p2.Commitment))
	require.NotEqual(t, 0, p1.Challenge.Cmp(p2.Challenge))
}
