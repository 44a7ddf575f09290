package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidFileType = errors.New("only image/jpeg, image/jpg and image/png files are allowed")
	ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
	ErrTooManyFiles    = errors.New("too many files in one request")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
}

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// FileError ties a rejected part to its client file name.
type FileError struct {
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

type Options struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
	MaxFiles  int
}

// Store keeps uploaded images on local disk and hands out public paths of the
// form <URLPrefix>/<name>.
type Store struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	maxFiles  int

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewStore(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("storage: upload dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create upload dir: %w", err)
	}

	prefix := "/" + strings.Trim(opts.URLPrefix, "/")
	if prefix == "/" {
		prefix = "/uploads"
	}

	return &Store{
		dir:       opts.Dir,
		urlPrefix: prefix,
		maxBytes:  opts.MaxBytes,
		maxFiles:  opts.MaxFiles,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}, nil
}

func (s *Store) Dir() string       { return s.dir }
func (s *Store) URLPrefix() string { return s.urlPrefix }

// SaveAll validates every part before writing any of them. If a write fails
// part way, the files already written by this call are removed again, so the
// batch is all or nothing.
func (s *Store) SaveAll(files []*multipart.FileHeader) ([]string, error) {
	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return nil, ErrTooManyFiles
	}

	exts := make([]string, len(files))
	for i, fh := range files {
		ext, err := s.check(fh)
		if err != nil {
			return nil, &FileError{Filename: fh.Filename, Err: err}
		}
		exts[i] = ext
	}

	paths := make([]string, 0, len(files))
	for i, fh := range files {
		name := s.newName() + exts[i]

		if err := s.write(fh, name); err != nil {
			s.RemoveAll(paths)
			return nil, fmt.Errorf("storage: write %s: %w", fh.Filename, err)
		}

		paths = append(paths, s.urlPrefix+"/"+name)
	}

	return paths, nil
}

func (s *Store) check(fh *multipart.FileHeader) (string, error) {
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return "", ErrFileTooLarge
	}

	declared := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}

	typeExt, ok := allowedTypes[declared]
	if !ok {
		return "", ErrInvalidFileType
	}

	sniffed, err := sniff(fh)
	if err != nil {
		return "", err
	}
	if _, ok := allowedTypes[sniffed]; !ok {
		return "", ErrInvalidFileType
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[ext] {
		ext = typeExt
	}
	return ext, nil
}

func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open part: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("storage: read part: %w", err)
	}

	return http.DetectContentType(buf[:n]), nil
}

func (s *Store) write(fh *multipart.FileHeader, name string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return err
	}

	return dst.Close()
}

func (s *Store) newName() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String())
}

// Remove deletes the file behind a public path. A file that is already gone
// counts as removed.
func (s *Store) Remove(publicPath string) error {
	name := path.Base(publicPath)
	if name == "." || name == "/" || name == "" {
		return fmt.Errorf("storage: bad path %q", publicPath)
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAll is Remove over a batch, ignoring failures. Used to roll back
// uploads whose owning write never happened.
func (s *Store) RemoveAll(publicPaths []string) {
	for _, p := range publicPaths {
		_ = s.Remove(p)
	}
}
