package apps

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
	"github.com/Algorisys-Technologies/app-portal/internal/ids"
)

const (
	sniffLen       = 512
	maxFilenameLen = 200
)

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageStore keeps uploaded images on disk under
// <dir>/<application id>/<ulid>-<file name>, so every upload lands in a file
// of its own.
type ImageStore struct {
	dir      string
	maxBytes int64
}

func NewImageStore(dir string, maxBytes int64) (*ImageStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("apps: upload dir is required")
	}
	if maxBytes <= 0 {
		return nil, errors.New("apps: upload limit must be positive")
	}
	return &ImageStore{dir: dir, maxBytes: maxBytes}, nil
}

// MaxBytes is the largest accepted image.
func (s *ImageStore) MaxBytes() int64 { return s.maxBytes }

// Path returns where the named image of appID lives.
func (s *ImageStore) Path(appID int64, name string) string {
	return filepath.Join(s.appDir(appID), filepath.Base(name))
}

// Save writes r as a new image of appID and returns the stored file name.
// The content type is sniffed from the data, not taken from the client.
func (s *ImageStore) Save(appID int64, filename string, r io.Reader) (string, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return "", err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", apperr.Internal("read upload", err)
	}
	head = head[:n]
	if n == 0 {
		return "", apperr.Invalid("file is empty")
	}
	if !allowedImageTypes[http.DetectContentType(head)] {
		return "", ErrUnsupportedImage
	}

	dir := s.appDir(appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Internal("create upload dir", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", apperr.Internal("create upload file", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	src := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxBytes+1)
	written, err := io.Copy(tmp, src)
	if err != nil {
		return "", apperr.Internal("write upload", err)
	}
	if written > s.maxBytes {
		return "", ErrImageTooLarge
	}
	if err := tmp.Close(); err != nil {
		return "", apperr.Internal("close upload", err)
	}
	name = strings.ToLower(ids.New()) + "-" + name
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", apperr.Internal("store upload", err)
	}
	committed = true
	return name, nil
}

// Remove deletes one image. A missing file is not an error.
func (s *ImageStore) Remove(appID int64, name string) error {
	err := os.Remove(s.Path(appID, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAll deletes every image of appID.
func (s *ImageStore) RemoveAll(appID int64) error {
	return os.RemoveAll(s.appDir(appID))
}

func (s *ImageStore) appDir(appID int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(appID, 10))
}

func cleanFilename(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	switch {
	case name == "" || name == "." || name == "/" || name == "..":
		return "", apperr.Invalid("file name is required")
	case strings.HasPrefix(name, "."):
		return "", apperr.Invalid("file name must not start with a dot")
	case len(name) > maxFilenameLen:
		return "", apperr.Invalid("file name is too long")
	}
	if strings.ContainsRune(name, 0) {
		return "", apperr.Invalid("file name %q is not allowed", name)
	}
	return name, nil
}
