package crypto

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/drand/kyber/group/mod"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/blake2b"

	"github.com/drand/dlproof/common"
)

// primalityRounds is the number of Miller-Rabin rounds used when validating a
// modulus. big.Int.ProbablyPrime also always runs a Baillie-PSW test.
const primalityRounds = 20

// trialDivisionLimit bounds the small prime search used to factor p-1.
const trialDivisionLimit = 1 << 16

var one = big.NewInt(1)

// Group is the multiplicative group of integers modulo a prime p, generated by
// g. A Group is immutable once built and can be shared between goroutines;
// every operation of the protocol takes the group it runs in explicitly.
type Group struct {
	name string
	p    *big.Int
	g    *big.Int
	// n = p-1, the modulus of the exponent ring
	n *big.Int

	orderOnce sync.Once
	order     *big.Int
	// distinct prime factors of n, set along with order
	factors []*big.Int
}

// NewGroup validates the given parameters and returns the group they describe.
// The modulus must be prime and the generator must satisfy 1 < g < p. A
// generator of order 2 (g = p-1) is rejected for any p > 3 since its powers
// only take two values. All failures are reported together, wrapped in
// common.ErrInvalidParameters.
func NewGroup(name string, p, g *big.Int) (*Group, error) {
	if p == nil || g == nil {
		return nil, fmt.Errorf("%w: modulus and generator are required", common.ErrInvalidParameters)
	}

	var result *multierror.Error
	if p.Cmp(big.NewInt(2)) <= 0 || !p.ProbablyPrime(primalityRounds) {
		// p = 2 is prime but leaves no room for a generator in (1, p)
		result = multierror.Append(result, fmt.Errorf("modulus %s is not an odd prime", p))
	}
	if g.Cmp(one) <= 0 || g.Cmp(p) >= 0 {
		result = multierror.Append(result, fmt.Errorf("generator %s is not in (1, %s)", g, p))
	}
	pm1 := new(big.Int).Sub(p, one)
	if p.Cmp(big.NewInt(3)) > 0 && g.Cmp(pm1) == 0 {
		result = multierror.Append(result, fmt.Errorf("generator %s has order 2", g))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrInvalidParameters, err)
	}

	return &Group{
		name: name,
		p:    new(big.Int).Set(p),
		g:    new(big.Int).Set(g),
		n:    pm1,
	}, nil
}

// Name returns the registry name of the group, or the name given in the
// group file it was loaded from.
func (g *Group) Name() string {
	return g.name
}

func (g *Group) String() string {
	if g == nil {
		return ""
	}
	return fmt.Sprintf("%s{p=%s, g=%s}", g.name, shorten(g.p), g.g)
}

// P returns a copy of the modulus.
func (g *Group) P() *big.Int {
	return new(big.Int).Set(g.p)
}

// G returns a copy of the generator.
func (g *Group) G() *big.Int {
	return new(big.Int).Set(g.g)
}

// ExponentModulus returns p-1. Exponents, and so responses, live modulo p-1.
func (g *Group) ExponentModulus() *big.Int {
	return new(big.Int).Set(g.n)
}

// Element returns v as an element of the group, reduced modulo p.
func (g *Group) Element(v *big.Int) *mod.Int {
	return mod.NewInt(v, g.p)
}

// Exponent returns v as an element of the exponent ring, reduced modulo p-1.
func (g *Group) Exponent(v *big.Int) *mod.Int {
	return mod.NewInt(v, g.n)
}

// Exp returns base^e mod p. The exponent must not be negative.
func (g *Group) Exp(base, e *big.Int) *big.Int {
	res := new(mod.Int).Exp(g.Element(base), e).(*mod.Int)
	return new(big.Int).Set(&res.V)
}

// ExpG returns g^e mod p.
func (g *Group) ExpG(e *big.Int) *big.Int {
	return g.Exp(g.g, e)
}

// Mul returns a*b mod p.
func (g *Group) Mul(a, b *big.Int) *big.Int {
	res := new(mod.Int).Mul(g.Element(a), g.Element(b)).(*mod.Int)
	return new(big.Int).Set(&res.V)
}

// InRange reports whether 1 <= v <= p-1, the range of both secrets and group
// elements.
func (g *Group) InRange(v *big.Int) bool {
	return v != nil && v.Sign() > 0 && v.Cmp(g.p) < 0
}

// Order returns the multiplicative order of the generator. The second value
// is false when p-1 cannot be factored with trial division up to
// trialDivisionLimit followed by a primality test of the remaining cofactor.
func (g *Group) Order() (*big.Int, bool) {
	g.orderOnce.Do(func() {
		factors, ok := factor(g.n)
		if !ok {
			return
		}
		g.factors = factors
		g.order = g.orderOf(g.g)
	})
	if g.order == nil {
		return nil, false
	}
	return new(big.Int).Set(g.order), true
}

// ElementOrder returns the multiplicative order of v modulo p. It fails when v
// is not in [1, p-1] or when Order does.
func (g *Group) ElementOrder(v *big.Int) (*big.Int, bool) {
	if _, ok := g.Order(); !ok || !g.InRange(v) {
		return nil, false
	}
	return g.orderOf(v), true
}

// orderOf divides p-1 by each of its prime factors as long as v^quotient is
// still 1. factors must be set.
func (g *Group) orderOf(v *big.Int) *big.Int {
	order := new(big.Int).Set(g.n)
	for _, q := range g.factors {
		for {
			quo, rem := new(big.Int).QuoRem(order, q, new(big.Int))
			if rem.Sign() != 0 || g.Exp(v, quo).Cmp(one) != 0 {
				break
			}
			order = quo
		}
	}
	return order
}

// FullOrder reports whether the generator is known to generate the whole group,
// i.e. its order is p-1.
func (g *Group) FullOrder() bool {
	order, ok := g.Order()
	return ok && order.Cmp(g.n) == 0
}

// Equal returns true when both groups have the same modulus and generator.
func (g *Group) Equal(g2 *Group) bool {
	if g == nil || g2 == nil {
		return g == g2
	}
	return g.p.Cmp(g2.p) == 0 && g.g.Cmp(g2.g) == 0
}

// Hash returns a blake2b-256 fingerprint of the group. Proof files carry it so
// that they are only checked under the group they were produced in.
func (g *Group) Hash() []byte {
	h, _ := blake2b.New256(nil)
	for _, b := range [][]byte{[]byte(g.name), g.p.Bytes(), g.g.Bytes()} {
		_ = binary.Write(h, binary.BigEndian, uint32(len(b)))
		_, _ = h.Write(b)
	}
	return h.Sum(nil)
}

// factor returns the distinct prime factors of n, or false when n has a
// composite cofactor larger than trialDivisionLimit^2.
func factor(n *big.Int) ([]*big.Int, bool) {
	var factors []*big.Int
	rest := new(big.Int).Set(n)
	d := new(big.Int)
	rem := new(big.Int)
	for i := int64(2); i < trialDivisionLimit && rest.Cmp(one) > 0; i++ {
		if i > 2 && i%2 == 0 {
			continue
		}
		d.SetInt64(i)
		if rem.Mod(rest, d).Sign() != 0 {
			continue
		}
		factors = append(factors, big.NewInt(i))
		for rem.Mod(rest, d).Sign() == 0 {
			rest.Div(rest, d)
		}
	}
	if rest.Cmp(one) == 0 {
		return factors, true
	}
	if !rest.ProbablyPrime(primalityRounds) {
		return nil, false
	}
	return append(factors, rest), true
}

func shorten(v *big.Int) string {
	s := v.String()
	if len(s) <= 16 {
		return s
	}
	return s[:6] + "…" + s[len(s)-6:]
}
