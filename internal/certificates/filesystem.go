package certificates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem abstracts the file operations used by certificate stores.
type FileSystem interface {
	EnsureDirectory(path string, permissions fs.FileMode) error
	FileExists(path string) (bool, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, content []byte, permissions fs.FileMode) error
	Remove(path string) error
}

// OperatingSystemFileSystem implements FileSystem on the local disk.
type OperatingSystemFileSystem struct{}

// NewOperatingSystemFileSystem constructs an OperatingSystemFileSystem.
func NewOperatingSystemFileSystem() OperatingSystemFileSystem {
	return OperatingSystemFileSystem{}
}

// EnsureDirectory creates the directory and its parents when missing.
func (fileSystem OperatingSystemFileSystem) EnsureDirectory(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// FileExists reports whether a regular file exists at path.
func (fileSystem OperatingSystemFileSystem) FileExists(path string) (bool, error) {
	fileInfo, err := os.Stat(path)
	if err == nil {
		return !fileInfo.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ReadFile returns the file content.
func (fileSystem OperatingSystemFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile replaces the file content atomically by renaming a sibling temporary file into place.
func (fileSystem OperatingSystemFileSystem) WriteFile(path string, content []byte, permissions fs.FileMode) error {
	temporaryFile, createErr := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if createErr != nil {
		return fmt.Errorf("create temporary file: %w", createErr)
	}
	temporaryPath := temporaryFile.Name()
	_, writeErr := temporaryFile.Write(content)
	closeErr := temporaryFile.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr == nil {
		writeErr = os.Chmod(temporaryPath, permissions)
	}
	if writeErr != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf("write temporary file: %w", writeErr)
	}
	if renameErr := os.Rename(temporaryPath, path); renameErr != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf("replace %s: %w", path, renameErr)
	}
	return nil
}

// Remove deletes the file, treating a missing file as already removed.
func (fileSystem OperatingSystemFileSystem) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
