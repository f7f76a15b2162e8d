// Package key holds discrete logarithm key pairs: a secret exponent x and its
// public counterpart y = g^x mod p.
package key

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/drand/dlproof/common"
	"github.com/drand/dlproof/crypto"
	"github.com/drand/dlproof/entropy"
)

// Pair is a secret exponent and the corresponding public value. The secret
// belongs to the prover and has no serialized form.
type Pair struct {
	Secret *big.Int
	Public *Identity
}

// Identity is the public half of a Pair, the statement y = g^x mod p that a
// prover claims to know x for.
type Identity struct {
	Key   *big.Int
	Group *crypto.Group
}

func (i *Identity) String() string {
	if i == nil || i.Group == nil {
		return fmt.Sprintf("{nil group - %v}", i.key())
	}
	return fmt.Sprintf("{%s - %s}", i.Group.Name(), i.Key)
}

func (i *Identity) key() *big.Int {
	if i == nil {
		return nil
	}
	return i.Key
}

// Equal indicates if two identities hold the same public value in the same
// group.
func (i *Identity) Equal(i2 *Identity) bool {
	if i == nil || i2 == nil {
		return i == i2
	}
	return i.Group.Equal(i2.Group) && i.Key.Cmp(i2.Key) == 0
}

// Valid returns an error when the public value is not an element of its group.
func (i *Identity) Valid() error {
	if i.Group == nil {
		return errors.New("identity without group")
	}
	if !i.Group.InRange(i.Key) {
		return fmt.Errorf("%w: public value not in [1, p-1]", common.ErrInvalidInput)
	}
	return nil
}

// NewKeyPair draws a secret uniformly from [1, p-1] using src and computes the
// public value g^secret mod p. A nil src draws from crypto/rand.
func NewKeyPair(grp *crypto.Group, src *entropy.Source) (*Pair, error) {
	if grp == nil {
		return nil, errors.New("key: nil group")
	}
	if src == nil {
		src = entropy.NewSource()
	}
	secret, err := src.Int(grp.P())
	if err != nil {
		return nil, err
	}
	return newPair(grp, secret), nil
}

// NewKeyPairFromSecret builds the pair for a caller-chosen secret. The secret
// must be in [1, p-1]; it is never reduced modulo the group order.
func NewKeyPairFromSecret(grp *crypto.Group, secret *big.Int) (*Pair, error) {
	if grp == nil {
		return nil, errors.New("key: nil group")
	}
	if err := CheckSecret(grp, secret); err != nil {
		return nil, err
	}
	return newPair(grp, secret), nil
}

func newPair(grp *crypto.Group, secret *big.Int) *Pair {
	s := new(big.Int).Set(secret)
	return &Pair{
		Secret: s,
		Public: &Identity{
			Key:   grp.ExpG(s),
			Group: grp,
		},
	}
}

// SetSecret replaces the secret of an existing pair, for instance a freshly
// generated one, with a caller-chosen value and recomputes the public value.
// The pair is left untouched when the secret is out of range.
func (p *Pair) SetSecret(secret *big.Int) error {
	grp := p.Group()
	if err := CheckSecret(grp, secret); err != nil {
		return err
	}
	np := newPair(grp, secret)
	p.Secret = np.Secret
	p.Public.Key = np.Public.Key
	return nil
}

// Group returns the group the pair lives in.
func (p *Pair) Group() *crypto.Group {
	return p.Public.Group
}

// Valid reports whether the public value is g^secret in the pair's group.
func (p *Pair) Valid() bool {
	if p == nil || p.Public == nil || p.Public.Group == nil || p.Secret == nil || p.Public.Key == nil {
		return false
	}
	return p.Public.Group.ExpG(p.Secret).Cmp(p.Public.Key) == 0
}

// CheckSecret returns common.ErrSecretOutOfRange unless 1 <= secret <= p-1.
func CheckSecret(grp *crypto.Group, secret *big.Int) error {
	if secret == nil {
		return fmt.Errorf("%w: missing secret", common.ErrSecretOutOfRange)
	}
	if !grp.InRange(secret) {
		return fmt.Errorf("%w: %s not in [1, %s]", common.ErrSecretOutOfRange, secret, grp.ExponentModulus())
	}
	return nil
}

// PublicTOML is the TOML-able version of an Identity.
type PublicTOML struct {
	Group     string
	GroupHash string
	Key       string
}

// TOML returns a struct that can be marshaled using a TOML-encoding library.
func (i *Identity) TOML() interface{} {
	return &PublicTOML{
		Group:     i.Group.Name(),
		GroupHash: crypto.HashString(i.Group),
		Key:       IntToString(i.Key),
	}
}

// TOMLValue returns an empty TOML-compatible interface value.
func (i *Identity) TOMLValue() interface{} {
	return &PublicTOML{}
}

// FromTOML loads the TOML description of the public value. When i.Group is
// already set, for groups loaded from a file, the description must match it;
// otherwise the group is looked up by name in the registry.
func (i *Identity) FromTOML(t interface{}) error {
	ptoml, ok := t.(*PublicTOML)
	if !ok {
		return errors.New("public can't decode from non PublicTOML struct")
	}
	if i.Group == nil {
		grp, err := crypto.GetGroupByIDWithDefault(ptoml.Group)
		if err != nil {
			return err
		}
		i.Group = grp
	}
	if ptoml.GroupHash != "" && ptoml.GroupHash != crypto.HashString(i.Group) {
		return fmt.Errorf("public key belongs to group %s (%s), not %s", ptoml.Group, ptoml.GroupHash, i.Group.Name())
	}
	k, err := StringToInt(ptoml.Key)
	if err != nil {
		return fmt.Errorf("decoding public key: %w", err)
	}
	i.Key = k
	return i.Valid()
}
