package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// maxMultipartMemory bounds the in-memory portion of a multipart parse; larger
// parts spill to disk before staging.
const maxMultipartMemory = 32 << 20

// stagedFile is a multipart upload copied to local disk, ready to hand to the
// media host. The media host removes the path after its upload attempt, so
// Cleanup only has to cover paths that never reached it.
type stagedFile struct {
	Path string
	Name string
}

// Cleanup removes the staged file if it is still on disk.
func (f *stagedFile) Cleanup() {
	if f == nil || f.Path == "" {
		return
	}
	_ = os.Remove(f.Path)
	f.Path = ""
}

// stageFormFile copies the named multipart file field into dir under a unique
// name. A missing field returns (nil, nil) so callers can treat it as
// optional.
func stageFormFile(r *http.Request, field, dir string) (*stagedFile, error) {
	src, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("read form file %q: %w", field, err)
	}
	defer src.Close()

	if dir == "" {
		dir = os.TempDir()
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	path := filepath.Join(dir, uuid.NewString()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	return &stagedFile{Path: path, Name: header.Filename}, nil
}
