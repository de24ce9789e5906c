package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/librarease/images/internal/usecase"
)

// LocalStorage keeps assets on the local filesystem, one flat directory per
// partition under root.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates root if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filestorage: create root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) MakePartition(_ context.Context, partition string) error {
	if err := os.MkdirAll(s.dir(partition), 0o755); err != nil {
		return fmt.Errorf("filestorage: mkdir: %w", err)
	}
	return nil
}

func (s *LocalStorage) RemovePartition(_ context.Context, partition string) error {
	err := os.Remove(s.dir(partition))
	switch {
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return nil
	case errors.Is(err, syscall.ENOTEMPTY), errors.Is(err, syscall.EEXIST):
		return usecase.ErrPartitionNotEmpty
	}
	return fmt.Errorf("filestorage: rmdir: %w", err)
}

// Put writes data to a temporary file and links it into place, so a failed
// write leaves nothing readable at key and an existing key is never replaced.
func (s *LocalStorage) Put(ctx context.Context, partition, key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir(partition), ".upload-*")
	if errors.Is(err, fs.ErrNotExist) {
		// the partition was retired between resolve and put
		if err := s.MakePartition(ctx, partition); err != nil {
			return err
		}
		tmp, err = os.CreateTemp(s.dir(partition), ".upload-*")
	}
	if err != nil {
		return fmt.Errorf("filestorage: create: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filestorage: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("filestorage: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestorage: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("filestorage: chmod: %w", err)
	}
	if err := os.Link(tmpName, s.path(partition, key)); err != nil {
		return fmt.Errorf("filestorage: place: %w", err)
	}
	return nil
}

func (s *LocalStorage) Get(_ context.Context, partition, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(partition, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, usecase.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filestorage: read: %w", err)
	}
	return b, nil
}

func (s *LocalStorage) Exists(_ context.Context, partition, key string) (bool, error) {
	fi, err := os.Stat(s.path(partition, key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("filestorage: stat: %w", err)
	}
	return fi.Mode().IsRegular(), nil
}

func (s *LocalStorage) Delete(_ context.Context, partition, key string) error {
	err := os.Remove(s.path(partition, key))
	if errors.Is(err, fs.ErrNotExist) {
		return usecase.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("filestorage: remove: %w", err)
	}
	return nil
}

func (s *LocalStorage) Ping(_ context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

func (s *LocalStorage) dir(partition string) string {
	return filepath.Join(s.root, partition)
}

func (s *LocalStorage) path(partition, key string) string {
	return filepath.Join(s.root, partition, key)
}
