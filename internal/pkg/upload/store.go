// Package upload validates and stores report photos. Stored files are
// addressed by a path relative to the upload root, which is what reports
// persist and what the moderation gateway resolves.
package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

// Kinds of uploads; each is stored under its own directory.
const (
	KindReport   = "reports"
	KindCleanup  = "cleanups"
	KindDisposal = "disposals"
)

// MaxFileSize caps a single upload.
const MaxFileSize = 10 << 20

const sniffLen = 512

type Store struct {
	root string
	now  func() time.Time
}

func NewStore(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// Root returns the directory files are written below.
func (s *Store) Root() string { return s.root }

// SaveFile stores a multipart upload; see Save.
func (s *Store) SaveFile(fh *multipart.FileHeader, kind string) (string, error) {
	if fh == nil {
		return "", fmt.Errorf("%w: file is required", apperr.ErrInvalidInput)
	}
	if fh.Size > MaxFileSize {
		return "", fmt.Errorf("%w: file exceeds %d MB", apperr.ErrInvalidInput, MaxFileSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Save(fh.Filename, f, kind)
}

// Save validates r by its extension and leading bytes, then writes it to
// <root>/<kind>/YYYY/MM/DD/<uuid><ext>. The returned reference is relative
// to the root and always uses forward slashes.
func (s *Store) Save(filename string, r io.Reader, kind string) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", fmt.Errorf("%w: file is empty", apperr.ErrInvalidInput)
	}

	validate := ValidateImageBySniff
	if kind == KindDisposal {
		validate = ValidateDocumentBySniff
	}
	if _, err := validate(filename, head); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	ref := path.Join(kind, s.now().UTC().Format("2006/01/02"), uuid.NewString()+ext)
	dst := filepath.Join(s.root, filepath.FromSlash(ref))

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	written, err := io.Copy(out, io.MultiReader(bytes.NewReader(head), io.LimitReader(r, MaxFileSize-int64(n)+1)))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > MaxFileSize {
		err = fmt.Errorf("%w: file exceeds %d MB", apperr.ErrInvalidInput, MaxFileSize>>20)
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return ref, nil
}

// Remove deletes a stored file by reference. Missing files are ignored.
func (s *Store) Remove(ref string) error {
	if ref == "" {
		return nil
	}
	clean := path.Clean("/" + ref)
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
