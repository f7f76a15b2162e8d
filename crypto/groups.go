package crypto

import (
	"fmt"
	"math/big"
	"os"
	"strings"
)

// DefaultGroupID is the small demonstration group: p = 101, g = 2. Two has
// full order 100 modulo 101, so every secret in [1, 100] maps to a distinct
// public value. It is far too small to hide anything and only serves
// demonstrations and tests.
const DefaultGroupID = "toy-101"

// MODP2048GroupID is the 2048-bit MODP group of RFC 3526 (group 14) with
// generator 2. The modulus is a safe prime p = 2q+1 and 2 generates the
// subgroup of order q.
const MODP2048GroupID = "modp-2048"

// GroupEnvVar names the environment variable read by GetGroupFromEnv.
const GroupEnvVar = "DLPROOF_GROUP"

const modp2048Hex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

// NewToyGroup returns the DefaultGroupID group.
func NewToyGroup() *Group {
	return mustGroup(DefaultGroupID, big.NewInt(101), big.NewInt(2))
}

// NewMODP2048Group returns the MODP2048GroupID group.
func NewMODP2048Group() *Group {
	p, ok := new(big.Int).SetString(modp2048Hex, 16)
	if !ok {
		panic("crypto: corrupted modp-2048 constant")
	}
	return mustGroup(MODP2048GroupID, p, big.NewInt(2))
}

func mustGroup(name string, p, g *big.Int) *Group {
	grp, err := NewGroup(name, p, g)
	if err != nil {
		panic(err)
	}
	return grp
}

// GroupFromName returns the registered group with the given name.
func GroupFromName(name string) (*Group, error) {
	switch strings.ToLower(name) {
	case DefaultGroupID:
		return NewToyGroup(), nil
	case MODP2048GroupID:
		return NewMODP2048Group(), nil
	default:
		return nil, fmt.Errorf("invalid group name '%s'", name)
	}
}

var groupIDs = []string{DefaultGroupID, MODP2048GroupID}

// ListGroups returns the names of the registered groups.
func ListGroups() []string {
	return append([]string(nil), groupIDs...)
}

// GetGroupByIDWithDefault returns the group registered under id, or the
// default group when id is empty.
func GetGroupByIDWithDefault(id string) (*Group, error) {
	if id == "" {
		id = DefaultGroupID
	}
	return GroupFromName(id)
}

// GetGroupFromEnv returns the group named by DLPROOF_GROUP, or the default
// group when the variable is unset.
func GetGroupFromEnv() (*Group, error) {
	return GetGroupByIDWithDefault(os.Getenv(GroupEnvVar))
}
