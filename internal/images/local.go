package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalBackend struct {
	rootDir string
}

func NewLocalBackend(rootDir string) (*LocalBackend, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, fmt.Errorf("image directory is required")
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	return &LocalBackend{rootDir: rootDir}, nil
}

func (b *LocalBackend) Dir() string {
	return b.rootDir
}

func (b *LocalBackend) Put(_ context.Context, name string, data []byte) error {
	absPath, err := b.resolvePath(name)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(b.rootDir, ".variant-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary variant file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing variant file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temporary variant file: %w", err)
	}

	if err := os.Rename(tmpPath, absPath); err != nil {
		return fmt.Errorf("finalizing variant file: %w", err)
	}

	return nil
}

func (b *LocalBackend) Remove(_ context.Context, name string) error {
	absPath, err := b.resolvePath(name)
	if err != nil {
		return err
	}

	err = os.Remove(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting variant file: %w", err)
	}

	return nil
}

func (b *LocalBackend) List(_ context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(b.rootDir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory: %w", err)
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, _, ok := ParseVariantName(entry.Name()); !ok {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading variant info: %w", err)
		}
		objects = append(objects, ObjectInfo{Name: entry.Name(), ModTime: info.ModTime()})
	}

	return objects, nil
}

func (b *LocalBackend) Ping(_ context.Context) error {
	info, err := os.Stat(b.rootDir)
	if err != nil {
		return fmt.Errorf("checking image directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("image path %s is not a directory", b.rootDir)
	}
	return nil
}

// Open returns the variant file for reading.
func (b *LocalBackend) Open(name string) (*os.File, error) {
	absPath, err := b.resolvePath(name)
	if err != nil {
		return nil, err
	}
	return os.Open(absPath)
}

func (b *LocalBackend) resolvePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	if name == "." || name == ".." {
		return "", ErrInvalidName
	}

	return filepath.Join(b.rootDir, name), nil
}
