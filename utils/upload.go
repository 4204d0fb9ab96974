package utils

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

// MaxUploadSize adalah batas ukuran form multipart (10MB).
const MaxUploadSize = 10 << 20

var ErrUnsupportedFile = errors.New("only image uploads are allowed")

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// SaveUpload stores the multipart file in field under root/sub and returns
// its public URL (/uploads/sub/name). It returns "" when the field is absent.
// The request must already be parsed with ParseMultipartForm.
func SaveUpload(r *http.Request, field, root, sub string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExts[ext] {
		return "", ErrUnsupportedFile
	}

	dir := filepath.Join(root, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	filename := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return "/uploads/" + sub + "/" + filename, nil
}

// RemoveUpload deletes a file saved by SaveUpload, given its public URL.
func RemoveUpload(root, url string) error {
	rel, ok := strings.CutPrefix(url, "/uploads/")
	if !ok || rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(root, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
