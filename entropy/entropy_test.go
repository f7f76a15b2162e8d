package entropy

import (
	"math/big"
	mrand "math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceIntRange(t *testing.T) {
	src := NewSource()
	mod := big.NewInt(101)
	seen := make(map[int64]bool)
	for i := 0; i < 5000; i++ {
		v, err := src.Int(mod)
		require.NoError(t, err)
		require.True(t, v.Sign() > 0, "drew %s", v)
		require.True(t, v.Cmp(mod) < 0, "drew %s", v)
		seen[v.Int64()] = true
	}
	// 5000 uniform draws over 100 values cover all of them with overwhelming
	// probability
	require.Len(t, seen, 100)

	_, err := src.Int(big.NewInt(1))
	require.Error(t, err)
	_, err = src.Int(nil)
	require.Error(t, err)
}

func TestSourceSeeded(t *testing.T) {
	a := NewSource(mrand.New(mrand.NewSource(42)))
	b := NewSource(mrand.New(mrand.NewSource(42)))
	c := NewSource(mrand.New(mrand.NewSource(43)))
	mod := new(big.Int).Lsh(big.NewInt(1), 128)

	va, err := a.Int(mod)
	require.NoError(t, err)
	vb, err := b.Int(mod)
	require.NoError(t, err)
	vc, err := c.Int(mod)
	require.NoError(t, err)
	require.Equal(t, va, vb)
	require.NotEqual(t, va, vc)

	// successive draws differ
	va2, err := a.Int(mod)
	require.NoError(t, err)
	require.NotEqual(t, va, va2)
}

// constReader returns the same byte on every read.
type constReader struct{}

func (constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 7
	}
	return len(p), nil
}

func TestSourceRepeatingReader(t *testing.T) {
	src := NewSource(constReader{})
	mod := new(big.Int).Lsh(big.NewInt(1), 128)
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		v, err := src.Int(mod)
		require.NoError(t, err)
		require.False(t, seen[v.String()], "draw %d repeats %s", i, v)
		seen[v.String()] = true
	}

	// a small modulus rejects most candidates and must still terminate
	for i := 0; i < 100; i++ {
		v, err := src.Int(big.NewInt(2))
		require.NoError(t, err)
		require.Equal(t, int64(1), v.Int64())
	}

	a, b := make([]byte, 32), make([]byte, 32)
	_, err := src.Read(a)
	require.NoError(t, err)
	_, err = src.Read(b)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	// the same reader keys the same stream
	other := NewSource(constReader{})
	first, err := other.Int(mod)
	require.NoError(t, err)
	again, err := NewSource(constReader{}).Int(mod)
	require.NoError(t, err)
	require.Equal(t, first, again)
}

func TestSourceConcurrent(t *testing.T) {
	src := NewSource()
	mod := new(big.Int).Lsh(big.NewInt(1), 64)
	n := 64
	out := make([]*big.Int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i], _ = src.Int(mod)
		}(i)
	}
	wg.Wait()
	seen := make(map[string]bool)
	for _, v := range out {
		require.NotNil(t, v)
		require.False(t, seen[v.String()], "duplicate draw %s", v)
		seen[v.String()] = true
	}
}

func TestScriptReader(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "entropy.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 0123456789abcdef\n"), 0o700))

	r := NewScriptReader(script)
	require.Equal(t, script, r.GetPath())
	p := make([]byte, 40)
	n, err := r.Read(p)
	require.NoError(t, err)
	require.Equal(t, 40, n)
	require.Equal(t, "0123456789abcdef\n", string(p[:17]))

	src := NewSource(r)
	x, err := src.Int(big.NewInt(101))
	require.NoError(t, err)
	y, err := src.Int(big.NewInt(101))
	require.NoError(t, err)
	z, err := src.Int(big.NewInt(101))
	require.NoError(t, err)
	require.False(t, x.Cmp(y) == 0 && y.Cmp(z) == 0, "script output repeated %s", x)

	_, err = NewScriptReader("").Read(p)
	require.Error(t, err)
	_, err = NewScriptReader(filepath.Join(dir, "missing")).Read(p)
	require.Error(t, err)
}
