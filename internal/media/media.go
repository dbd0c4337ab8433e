// Package media validates uploaded product images and hands them to an image
// host.
package media

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/logging"
)

// Image is a validated upload.
type Image struct {
	Data      []byte
	MIME      string
	Extension string
}

// Uploader stores an image and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, img *Image) (string, error)
}

type Service struct {
	uploader Uploader
	maxBytes int64
}

func NewService(uploader Uploader, maxBytes int64) *Service {
	return &Service{uploader: uploader, maxBytes: maxBytes}
}

func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Read consumes r up to the size limit and sniffs the content. Only images
// are accepted, whatever the client claimed the type to be.
func (s *Service) Read(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, apperr.Validation("error reading file")
	}
	if len(data) == 0 {
		return nil, apperr.Validation("no file uploaded")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.TooLarge("file exceeds the %s limit", humanSize(s.maxBytes))
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, apperr.Validation("file must be an image")
	}

	return &Image{Data: data, MIME: mt.String(), Extension: mt.Extension()}, nil
}

// Upload validates the content of r and stores it, returning its public URL.
func (s *Service) Upload(ctx context.Context, r io.Reader) (string, error) {
	img, err := s.Read(r)
	if err != nil {
		return "", err
	}

	url, err := s.uploader.Upload(ctx, img)
	if err != nil {
		return "", apperr.Server("image upload failed", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"mime":  img.MIME,
		"bytes": len(img.Data),
	}).Info("Image uploaded")
	return url, nil
}

func (img *Image) reader() io.Reader {
	return bytes.NewReader(img.Data)
}

func humanSize(n int64) string {
	const mb = 1024 * 1024
	if n >= mb && n%mb == 0 {
		return strconv.FormatInt(n/mb, 10) + " MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}
