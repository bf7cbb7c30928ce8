package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"catalog-admin/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedType = fmt.Errorf("%w: only jpg, jpeg, png, gif and webp images are accepted", domain.ErrInvalidInput)
	ErrTooLarge        = fmt.Errorf("%w: file exceeds the upload size limit", domain.ErrInvalidInput)
	ErrEmptyFile       = fmt.Errorf("%w: file is empty", domain.ErrInvalidInput)
	ErrInvalidName     = fmt.Errorf("%w: invalid file name", domain.ErrInvalidInput)
	ErrObjectNotFound  = fmt.Errorf("file %w", domain.ErrNotFound)
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Object describes a stored upload.
type Object struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimetype"`
}

// Store is a flat namespace of uploaded objects.
type Store interface {
	Put(ctx context.Context, name string, body io.ReadSeeker, size int64, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
}

// Uploader validates incoming images and writes them to a Store under
// generated names.
type Uploader struct {
	store    Store
	maxBytes int64
	logger   *zap.Logger
}

// NewUploader creates an Uploader that rejects files above maxBytes.
func NewUploader(store Store, maxBytes int64, logger *zap.Logger) *Uploader {
	return &Uploader{store: store, maxBytes: maxBytes, logger: logger}
}

// MaxBytes returns the per-file size limit.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

func imageType(name string) (ext, mimeType string, ok bool) {
	ext = strings.ToLower(filepath.Ext(name))
	mimeType, ok = imageTypes[ext]
	return ext, mimeType, ok
}

// Upload stores one image. originalName only contributes its extension.
func (u *Uploader) Upload(ctx context.Context, originalName string, r io.Reader) (*Object, error) {
	ext, mimeType, ok := imageType(originalName)
	if !ok {
		return nil, ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > u.maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	name := generateName(ext)
	url, err := u.store.Put(ctx, name, bytes.NewReader(data), int64(len(data)), mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", name, err)
	}

	u.logger.Info("Image uploaded",
		zap.String("filename", name),
		zap.Int("size", len(data)),
	)

	return &Object{
		Filename: name,
		URL:      url,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}, nil
}

// Remove deletes a previously uploaded image.
func (u *Uploader) Remove(ctx context.Context, filename string) error {
	if !ValidName(filename) {
		return ErrInvalidName
	}
	if err := u.store.Delete(ctx, filename); err != nil {
		return err
	}

	u.logger.Info("Image deleted", zap.String("filename", filename))
	return nil
}

// IsImageName reports whether name carries an accepted image extension.
func IsImageName(name string) bool {
	_, _, ok := imageType(name)
	return ok
}

// ValidName reports whether filename is a bare image name without any path
// component.
func ValidName(filename string) bool {
	if filename == "" || filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) {
		return false
	}
	if strings.HasPrefix(filename, ".") {
		return false
	}
	_, _, ok := imageType(filename)
	return ok
}

func generateName(ext string) string {
	return fmt.Sprintf("%s_%s%s", time.Now().UTC().Format("20060102"), uuid.NewString(), ext)
}
