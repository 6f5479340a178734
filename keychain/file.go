package keychain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore is a Store which keeps each value in its own file, readable only by the owner.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keychain: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Get(_ context.Context, id string) ([]byte, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("keychain: %w", err)
	}

	return b, nil
}

func (s *FileStore) Put(_ context.Context, id string, value []byte) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	// Write to a temp file first so a crash can't leave a partial value under the ID.
	tmp, err := s.writeTemp(value)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp) }()

	// Link fails if the ID is already taken.
	if err := os.Link(tmp, path); errors.Is(err, fs.ErrExist) {
		return ErrAlreadyExists
	} else if err != nil {
		return fmt.Errorf("keychain: %w", err)
	}

	return nil
}

func (s *FileStore) UpdateOrCreate(_ context.Context, id string, value []byte) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	tmp, err := s.writeTemp(value)
	if err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("keychain: %w", err)
	}

	return nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("keychain: %w", err)
	}

	return nil
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return filepath.Join(s.dir, id), nil
}

func (s *FileStore) writeTemp(value []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, ".tmp-")
	if err != nil {
		return "", fmt.Errorf("keychain: %w", err)
	}

	if _, err := f.Write(value); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())

		return "", fmt.Errorf("keychain: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("keychain: %w", err)
	}

	return f.Name(), nil
}

var _ Store = &FileStore{}
