// Package images stores entity images in an S3-compatible object store and
// owns the object key naming rules.
package images

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Storage is the minimal surface controllers need: durable upload and
// best-effort delete.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}

// validExtensions is the image extension allowlist.
var validExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
}

// Key builds the object key for an uploaded file: the sanitized lower-cased
// filename prefixed with a short random component, under folder. The random
// prefix keeps two uploads of the same filename from colliding.
func Key(folder, filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return "", fmt.Errorf("file %q has no extension", filename)
	}
	if !validExtensions[ext] {
		return "", fmt.Errorf("extension %q is not allowed", "."+ext)
	}
	name := strings.ToLower(strings.ReplaceAll(filename, " ", "-"))
	prefixed := uuid.NewString()[:8] + "-" + name
	if folder == "" {
		return prefixed, nil
	}
	return path.Join(folder, prefixed), nil
}
