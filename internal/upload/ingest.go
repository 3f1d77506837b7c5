// Package upload stores uploaded images as fixed-size thumbnails.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	// ErrExtensionNotAllowed is returned for files outside the png/jpg allow-list
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	// ErrInvalidImage is returned when the uploaded bytes cannot be decoded as an image
	ErrInvalidImage = errors.New("invalid image")
)

var allowedExtensions = map[string]bool{
	"png": true,
	"jpg": true,
}

// MaxPixels bounds the decoded size of an upload, checked from the image header
// before the pixel data is read.
const MaxPixels = 24_000_000

// ExtensionOf returns the extension of a client-supplied filename, without the dot.
// Case is kept, so "logo.PNG" yields "PNG" and is not allowed.
func ExtensionOf(filename string) string {
	return strings.TrimPrefix(filepath.Ext(filename), ".")
}

// Allowed reports whether images with the extension are accepted
func Allowed(ext string) bool {
	return allowedExtensions[ext]
}

// Ingestor resizes images and writes them under a random name into one directory
type Ingestor struct {
	dir    string
	width  int
	height int
}

// NewIngestor creates an ingestor writing width x height images into dir
func NewIngestor(dir string, width, height int) *Ingestor {
	return &Ingestor{
		dir:    dir,
		width:  width,
		height: height,
	}
}

// Dir returns the directory images are written to
func (i *Ingestor) Dir() string {
	return i.dir
}

// Ingest decodes data, resizes it and stores it. It returns the stored file name.
// Nothing is written when the extension is rejected or the data is not an image.
func (i *Ingestor) Ingest(data []byte, ext string) (string, error) {
	if !Allowed(ext) {
		return "", ErrExtensionNotAllowed
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if header.Width <= 0 || header.Height <= 0 || header.Width*header.Height > MaxPixels {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, header.Width, header.Height, MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
	path := filepath.Join(i.dir, name)

	thumbnail := imaging.Resize(img, i.width, i.height, imaging.Lanczos)
	if err := imaging.Save(thumbnail, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return name, nil
}
