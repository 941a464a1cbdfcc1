package histofile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// CompressedSuffix marks dumps stored as lz4 frames.
const CompressedSuffix = ".lz4"

// ErrNotDirectory is returned when the dump directory is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ListFiles returns the regular files in dir whose extension is ext, or ext
// followed by ".lz4", sorted by name. ext may be given with or without the
// leading dot.
func ListFiles(dir, ext string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat dump directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dump directory: %w", err)
	}

	suffix := "." + strings.TrimPrefix(ext, ".")

	var files []string

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, suffix) || strings.HasSuffix(name, suffix+CompressedSuffix) {
			files = append(files, filepath.Join(dir, name))
		}
	}

	slices.Sort(files)

	return files, nil
}

// openDump opens path, decompressing lz4 frames transparently.
func openDump(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}

	if !strings.HasSuffix(path, CompressedSuffix) {
		return file, nil
	}

	return &lz4ReadCloser{Reader: lz4.NewReader(file), file: file}, nil
}

type lz4ReadCloser struct {
	*lz4.Reader

	file *os.File
}

func (r *lz4ReadCloser) Close() error {
	return r.file.Close()
}
