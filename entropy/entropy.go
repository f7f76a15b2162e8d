// Package entropy provides the randomness used for secrets, nonces and
// challenges.
package entropy

import (
	"bufio"
	"bytes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os/exec"
	"sync"

	"github.com/drand/kyber/util/random"
	"github.com/drand/kyber/xof/blake2xb"
)

// seedSize is the number of bytes drawn from the readers to key a Source.
const seedSize = 64

// Source is a stream of randomness that can be shared by concurrent provers.
// Draws are serialized and each one advances the stream, so a Source never
// hands out the same bytes twice.
type Source struct {
	sync.Mutex
	stream cipher.Stream
}

// NewSource returns a Source keyed once from the given readers, crypto/rand
// when there are none. The readers are not consulted again: every later draw
// continues a blake2xb stream seeded with their hashed output. A deterministic
// reader thus yields a reproducible Source, and a reader that always returns
// the same bytes still gives distinct draws.
func NewSource(readers ...io.Reader) *Source {
	seed := make([]byte, seedSize)
	random.Bytes(seed, random.New(readers...))
	return NewSourceFromStream(blake2xb.New(seed))
}

// NewSourceFromStream wraps an existing stream. The stream must advance on
// every call.
func NewSourceFromStream(s cipher.Stream) *Source {
	return &Source{stream: s}
}

// Int returns an integer drawn uniformly from [1, mod-1]. mod must be at
// least 2.
func (s *Source) Int(mod *big.Int) (*big.Int, error) {
	if mod == nil || mod.Cmp(big.NewInt(2)) < 0 {
		return nil, fmt.Errorf("entropy: modulus %v leaves no value to draw", mod)
	}
	s.Lock()
	defer s.Unlock()
	return random.Int(mod, s.stream), nil
}

// Read implements io.Reader.
func (s *Source) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	s.Lock()
	defer s.Unlock()
	random.Bytes(p, s.stream)
	return len(p), nil
}

var _ io.Reader = &Source{}

// ScriptReader reads user entropy from the standard output of an executable.
// It lets operators mix an external entropy source into a Source:
//
//	src := entropy.NewSource(rand.Reader, entropy.NewScriptReader("./dice.sh"))
type ScriptReader struct {
	Path string
}

var _ io.Reader = &ScriptReader{}

// Read runs the executable as many times as needed to fill p. n == len(p) if
// and only if err == nil.
func (r *ScriptReader) Read(p []byte) (n int, err error) {
	if r.Path == "" {
		return 0, errors.New("entropy: no script was provided")
	}
	read := 0
	for read < len(p) {
		var b bytes.Buffer
		w := bufio.NewWriter(&b)
		cmd := exec.Command(r.Path) // #nosec
		cmd.Stdout = w
		if err := cmd.Run(); err != nil {
			return read, fmt.Errorf("entropy: running %s: %w", r.Path, err)
		}
		if err := w.Flush(); err != nil {
			return read, err
		}
		if b.Len() == 0 {
			return read, fmt.Errorf("entropy: %s produced no output", r.Path)
		}
		read += copy(p[read:], b.Bytes())
	}
	return len(p), nil
}

// GetPath returns the path of the script.
func (r *ScriptReader) GetPath() string {
	return r.Path
}

// NewScriptReader returns a ScriptReader running the executable at path.
func NewScriptReader(path string) *ScriptReader {
	return &ScriptReader{path}
}
