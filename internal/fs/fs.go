// Package fs holds some utilities for manipulating the file system
package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultDirectoryPermission = 0740

// CreateSecureFolder creates folder with owner-only write permissions when it
// does not exist yet. An existing folder is kept as is; its path is returned
// with an error when its permissions are wider than expected.
func CreateSecureFolder(folder string) (string, error) {
	exists, err := Exists(folder)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := os.MkdirAll(folder, defaultDirectoryPermission); err != nil {
			return "", fmt.Errorf("creating folder %s: %w", folder, err)
		}
		return folder, nil
	}

	info, err := os.Lstat(folder)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a folder", folder)
	}
	if perm := info.Mode().Perm(); perm&0o027 != 0 {
		return folder, fmt.Errorf("folder %s has permissions %#o, expected at most %#o", folder, perm, defaultDirectoryPermission)
	}
	return folder, nil
}

// Exists returns whether the given file or directory exists.
func Exists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return true, err
}

// CreateSecureFile creates a file with wr permission for user only and returns
// the file handle.
func CreateSecureFile(file string) (*os.File, error) {
	return os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
}

// WriteSecureFile writes data to a file readable by its owner only.
func WriteSecureFile(file string, data []byte) error {
	fd, err := CreateSecureFile(file)
	if err != nil {
		return err
	}
	if _, err := fd.Write(data); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

// Files returns the list of file names included in the given path or error if
// any.
func Files(folderPath string) ([]string, error) {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, f := range entries {
		if !f.IsDir() {
			files = append(files, filepath.Join(folderPath, f.Name()))
		}
	}
	return files, nil
}

// FileExists returns true if name is a file in folder. name is the basename
// of the file.
func FileExists(folder, name string) bool {
	list, err := Files(folder)
	if err != nil {
		return false
	}
	target := filepath.Join(folder, name)
	for _, l := range list {
		if l == target {
			return true
		}
	}
	return false
}
