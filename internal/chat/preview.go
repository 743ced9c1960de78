package chat

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
)

const previewSize = 320

// makePreview writes a thumbnail of src to a temp file and returns its path. The caller
// owns the file and must hand it to releasePreview.
func makePreview(src string, maxBytes int64) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", src)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", fmt.Errorf("image is too large (%s, limit %s)",
			humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(maxBytes)))
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	thumb := imaging.Fit(img, previewSize, previewSize, imaging.Lanczos)

	f, err := os.CreateTemp("", "haggle-preview-*.jpg")
	if err != nil {
		return "", fmt.Errorf("failed to create preview: %w", err)
	}
	defer f.Close()

	if err := imaging.Encode(f, thumb, imaging.JPEG); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	return f.Name(), nil
}

func releasePreview(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
