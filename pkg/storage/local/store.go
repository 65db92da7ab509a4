package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Store keeps uploaded receipt images on the local filesystem. References
// handed back to callers are bare file names; the store never exposes
// absolute paths, so a reference cannot escape the upload directory.
type Store struct {
	dir string
}

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("object not found")

// New ensures the upload directory exists and returns a store rooted there.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the reader's contents under a uuid-prefixed sanitized name and
// returns the reference. maxBytes caps the accepted size; zero disables it.
func (s *Store) Save(ctx context.Context, fileName string, r io.Reader, maxBytes int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + "_" + sanitizeFileName(fileName)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer dst.Close()

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	written, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if maxBytes > 0 && written > maxBytes {
		_ = os.Remove(path)
		return "", fmt.Errorf("file exceeds %d bytes", maxBytes)
	}

	return name, nil
}

// Open returns a reader over the stored object.
func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Remove deletes the stored object. Removing a missing object is not an error.
func (s *Store) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

// List returns the references currently present in the store.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading upload directory: %w", err)
	}
	refs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		refs = append(refs, entry.Name())
	}
	return refs, nil
}

// Path resolves a reference to its location on disk, rejecting anything that
// would resolve outside the upload directory.
func (s *Store) Path(ref string) (string, error) {
	name := filepath.Base(strings.TrimSpace(ref))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid object reference %q", ref)
	}
	return filepath.Join(s.dir, name), nil
}

func sanitizeFileName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}
