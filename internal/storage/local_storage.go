package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage keeps blobs on disk, fanned out into two-level
// subdirectories derived from the content ref so no single directory
// grows unbounded.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) pathFromRef(ref string) string {
	if len(ref) < 4 {
		return filepath.Join(ls.basePath, ref)
	}
	return filepath.Join(ls.basePath, ref[0:2], ref[2:4], ref)
}

func (ls *LocalStorage) Save(ctx context.Context, ref string, data io.Reader) error {
	filePath := ls.pathFromRef(ref)
	dir := filepath.Dir(filePath)

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, data)
	return err
}

func (ls *LocalStorage) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	filePath := ls.pathFromRef(ref)

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s not found: %w", ref, err)
		}
		return nil, err
	}

	return file, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, ref string) error {
	filePath := ls.pathFromRef(ref)

	err := os.Remove(filePath)
	if os.IsNotExist(err) {
		return nil
	}

	return err
}
