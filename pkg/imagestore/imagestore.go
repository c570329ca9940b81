// Package imagestore keeps garment photos in any afs-supported location (file, mem, s3)
package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
	_ "github.com/viant/afsc/s3"
)

const MaxFileSize = 10 * 1024 * 1024

var (
	ErrInvalidType = errors.New("invalid image type")
	ErrTooLarge    = errors.New("image exceeds size limit")
	ErrNotFound    = errors.New("image not found")
)

var validTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ValidType reports whether mimeType is an accepted image type.
func ValidType(mimeType string) bool {
	_, ok := validTypes[strings.ToLower(mimeType)]
	return ok
}

type Store struct {
	fs      afs.Service
	baseURL string
}

// New roots the store at baseURL, e.g. file:///var/lib/closet/images, mem://localhost/images
// or s3://garments.
func New(baseURL string) *Store {
	return &Store{fs: afs.New(), baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload stores data under a fresh key derived from the mime type and returns the key.
func (s *Store) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	ext, ok := validTypes[strings.ToLower(mimeType)]
	if !ok {
		return "", ErrInvalidType
	}
	if len(data) > MaxFileSize {
		return "", ErrTooLarge
	}

	key := uuid.NewString() + "." + ext
	if err := s.fs.Upload(ctx, s.location(key), 0644, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("upload image %s: %w", key, err)
	}
	return key, nil
}

func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}
	location := s.location(key)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("check image %s: %w", key, err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return s.fs.DownloadWithURL(ctx, location)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrNotFound
	}
	if err := s.fs.Delete(ctx, s.location(key)); err != nil {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return nil
}

// ContentType derives the mime type from the key's extension.
func ContentType(key string) string {
	ext := key[strings.LastIndex(key, ".")+1:]
	for mimeType, e := range validTypes {
		if e == ext {
			if ext == "jpg" {
				return "image/jpeg"
			}
			return mimeType
		}
	}
	return "application/octet-stream"
}

func (s *Store) location(key string) string {
	return url.Join(s.baseURL, key)
}

func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}
