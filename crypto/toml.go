package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/drand/dlproof/common"
)

// GroupTOML is the TOML form of a group. Modulus and Generator are decimal
// strings, or hexadecimal when prefixed with 0x.
type GroupTOML struct {
	Name      string
	Modulus   string
	Generator string
}

// TOML returns the TOML-compatible description of the group.
func (g *Group) TOML() interface{} {
	return &GroupTOML{
		Name:      g.name,
		Modulus:   "0x" + g.p.Text(16),
		Generator: g.g.String(),
	}
}

// TOMLValue returns an empty TOML-compatible value to decode into.
func (g *Group) TOMLValue() interface{} {
	return &GroupTOML{}
}

// FromTOML initializes g from its TOML description. The parameters are
// validated exactly like NewGroup does.
func (g *Group) FromTOML(i interface{}) error {
	gt, ok := i.(*GroupTOML)
	if !ok {
		return errors.New("group can't decode toml from non GroupTOML struct")
	}
	p, err := ParseInt(gt.Modulus)
	if err != nil {
		return fmt.Errorf("%w: modulus: %s", common.ErrInvalidParameters, err)
	}
	gen, err := ParseInt(gt.Generator)
	if err != nil {
		return fmt.Errorf("%w: generator: %s", common.ErrInvalidParameters, err)
	}
	name := gt.Name
	if name == "" {
		name = "custom"
	}
	grp, err := NewGroup(name, p, gen)
	if err != nil {
		return err
	}
	g.name, g.p, g.g, g.n = grp.name, grp.p, grp.g, grp.n
	return nil
}

// LoadGroupFile reads and validates a group from a TOML file.
func LoadGroupFile(path string) (*Group, error) {
	g := new(Group)
	gt := g.TOMLValue()
	if _, err := toml.DecodeFile(path, gt); err != nil {
		return nil, fmt.Errorf("reading group file %s: %w", path, err)
	}
	if err := g.FromTOML(gt); err != nil {
		return nil, err
	}
	return g, nil
}

// SaveGroupFile writes the TOML description of g to path.
func SaveGroupFile(path string, g *Group) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	return toml.NewEncoder(fd).Encode(g.TOML())
}

// ParseInt parses a decimal integer, or a hexadecimal one when prefixed with 0x.
func ParseInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty integer")
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

// HashString returns the hex encoded fingerprint of g.
func HashString(g *Group) string {
	return hex.EncodeToString(g.Hash())
}
