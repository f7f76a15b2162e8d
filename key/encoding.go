package key

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/drand/dlproof/common"
)

// IntToString returns the hex representation of v, "0" for zero.
func IntToString(v *big.Int) string {
	return v.Text(16)
}

// StringToInt parses the output of IntToString. A 0x prefix is accepted.
func StringToInt(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, fmt.Errorf("%w: empty integer encoding", common.ErrInvalidInput)
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex integer %q", s)
	}
	return v, nil
}
