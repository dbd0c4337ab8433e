package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskUploader writes images to a local directory that the API serves
// statically.
type DiskUploader struct {
	dir        string
	publicBase string
}

func NewDiskUploader(dir, publicBase string) (*DiskUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskUploader{dir: dir, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (u *DiskUploader) Dir() string {
	return u.dir
}

func (u *DiskUploader) Upload(ctx context.Context, img *Image) (string, error) {
	name := uuid.NewString() + img.Extension

	f, err := os.OpenFile(filepath.Join(u.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(f, img.reader()); err != nil {
		f.Close()
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}

	return u.publicBase + "/" + name, nil
}
