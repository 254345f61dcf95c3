package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	// Note: SVG is intentionally excluded due to XSS risk without sanitization
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var (
	ErrUnsupportedFormat = errors.New("only JPG, JPEG, PNG and WEBP images are supported")
	ErrScriptableContent = errors.New("HTML, SVG and XML content is not allowed")
)

// ValidateImageBySniff checks the provided filename (extension) and the first bytes (head)
// against a whitelist of image types. Returns detected mime or an error.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedFormat
	}
	return sniff(head, allowedMime)
}

// ValidateDocumentBySniff is ValidateImageBySniff that also accepts PDF
// receipts, which disposal confirmations often are.
func ValidateDocumentBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		mime, err := sniff(head, map[string]bool{"application/pdf": true})
		if err != nil {
			return "", errors.New("file has a .pdf extension but is not a PDF")
		}
		return mime, nil
	}
	return ValidateImageBySniff(filename, head)
}

func sniff(head []byte, allowed map[string]bool) (string, error) {
	detected := http.DetectContentType(head)

	// Block obvious scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") ||
		strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") ||
		detected == "image/svg+xml" {
		return "", ErrScriptableContent
	}

	if allowed[detected] {
		return detected, nil
	}
	return "", ErrUnsupportedFormat
}
