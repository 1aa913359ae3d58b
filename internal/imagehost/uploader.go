// Package imagehost uploads food photos to a public image host and returns
// the URL the API stores on the food.
package imagehost

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNoImage       = errors.New("no image selected")
	ErrMissingAPIKey = errors.New("image host api key is not configured")
	ErrNotImage      = errors.New("file is not an image")
)

type Uploader interface {
	Upload(ctx context.Context, img Image) (string, error)
}

// Image is an uploaded file held in memory. ContentType is what the browser
// claimed; the sniffed type is what gets stored.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// sniff returns the detected MIME type and a file extension for img, or
// ErrNotImage when the bytes are not an image.
func sniff(img Image) (string, string, error) {
	if len(img.Data) == 0 {
		return "", "", ErrNoImage
	}

	mt := mimetype.Detect(img.Data)
	contentType := mt.String()
	ext := mt.Extension()

	if !strings.HasPrefix(contentType, "image/") {
		return "", "", ErrNotImage
	}

	if ext == "" {
		ext = strings.ToLower(path.Ext(img.Filename))
	}

	return contentType, ext, nil
}
