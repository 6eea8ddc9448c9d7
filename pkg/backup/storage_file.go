package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStorage implements Storage interface using local filesystem
type FileStorage struct {
	basePath string
}

func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &FileStorage{basePath: basePath}, nil
}

func (fs *FileStorage) path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("invalid backup name %q", name)
	}
	return filepath.Join(fs.basePath, name), nil
}

// Save writes to a temporary file and renames it so readers never see a partial backup.
func (fs *FileStorage) Save(ctx context.Context, name string, data io.Reader) error {
	target, err := fs.path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(fs.basePath, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write backup data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write backup data: %w", err)
	}
	return os.Rename(tmp.Name(), target)
}

func (fs *FileStorage) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	path, err := fs.path(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	return file, nil
}

// List lists all files with the given prefix in name order
func (fs *FileStorage) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (fs *FileStorage) Delete(ctx context.Context, name string) error {
	path, err := fs.path(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
