package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// 1 MiB is far more than any field map needs.
const maxFieldMapSize = 1 << 20

// Source liefert das rohe YAML-Dokument einer Field-Map.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Name() string
}

// FileSource liest die Field-Map von der lokalen Platte.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Name() string {
	return "file://" + f.Path
}

func (f *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open field map: %w", err)
	}
	defer fh.Close()

	data, err := io.ReadAll(io.LimitReader(fh, maxFieldMapSize))
	if err != nil {
		return nil, fmt.Errorf("read field map: %w", err)
	}
	return data, nil
}
