package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"viagens/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
	ErrTypeNotAllowed  = errors.New("file type not allowed")
	ErrEmpty           = errors.New("file is empty")
	ErrInvalidName     = errors.New("invalid stored file name")
	ErrStoredNotExists = errors.New("stored file does not exist")
)

// Stored describes a file written by Save.
type Stored struct {
	Name        string
	ContentType string
	Size        int64
}

// FileStore keeps uploaded documents on local disk under random names. The
// content type is sniffed from the bytes, never taken from the client.
type FileStore struct {
	dir     string
	maxSize int64
	allowed []string
}

func NewFileStore(cfg config.UploadConfig) (*FileStore, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileStore{dir: cfg.Path, maxSize: cfg.MaxSizeBytes, allowed: cfg.AllowedTypes}, nil
}

func (s *FileStore) Save(r io.Reader) (*Stored, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if !s.isAllowed(mtype) {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotAllowed, mtype.String())
	}

	name := uuid.NewString() + mtype.Extension()
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	return &Stored{Name: name, ContentType: baseType(mtype.String()), Size: int64(len(data))}, nil
}

func (s *FileStore) Open(name string) (*os.File, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrStoredNotExists
	}
	return f, err
}

// Remove deletes a stored file; a missing file is not an error.
func (s *FileStore) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

func (s *FileStore) isAllowed(m *mimetype.MIME) bool {
	if len(s.allowed) == 0 {
		return true
	}
	for _, a := range s.allowed {
		if m.Is(a) {
			return true
		}
	}
	return false
}

// baseType drops parameters such as "; charset=utf-8".
func baseType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		return strings.TrimSpace(t[:i])
	}
	return t
}
