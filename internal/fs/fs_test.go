package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecureDirAlreadyHere(t *testing.T) {
	tmpPath := filepath.Join(t.TempDir(), "config")

	fpath, err := CreateSecureFolder(tmpPath)
	require.NoError(t, err)
	require.Equal(t, tmpPath, fpath)

	npath, err := CreateSecureFolder(tmpPath)
	require.NoError(t, err)
	require.Equal(t, fpath, npath)

	b, e := Exists(npath)
	require.True(t, b)
	require.NoError(t, e)

	b, e = Exists(filepath.Join(tmpPath, "blou"))
	require.False(t, b)
	require.NoError(t, e)

	file := filepath.Join(tmpPath, "secured")
	f, err := CreateSecureFile(file)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := os.Stat(file)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	files, err := Files(tmpPath)
	require.NoError(t, err)
	require.Equal(t, []string{file}, files)
	require.True(t, FileExists(tmpPath, "secured"))
	require.False(t, FileExists(tmpPath, "other"))
	require.False(t, FileExists(filepath.Join(tmpPath, "nope"), "secured"))
}

func TestCreateSecureFolderPermissions(t *testing.T) {
	open := filepath.Join(t.TempDir(), "open")
	require.NoError(t, os.Mkdir(open, 0777))
	require.NoError(t, os.Chmod(open, 0777))

	p, err := CreateSecureFolder(open)
	require.Error(t, err)
	require.Equal(t, open, p)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	_, err = CreateSecureFolder(file)
	require.Error(t, err)
}

func TestWriteSecureFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "proof.toml")
	require.NoError(t, WriteSecureFile(file, []byte("hello")))
	require.NoError(t, WriteSecureFile(file, []byte("hi")))

	buff, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, "hi", string(buff))

	_, err = CreateSecureFile("/invalid/path/that/does/not/exist/file.txt")
	require.Error(t, err)
}
