package imagefile

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
)

// MaxBytes bounds the size of an image read by Decode
const MaxBytes = 32 << 20

// Open loads the image at path
func Open(path string) (providers.Image, image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return providers.Image{}, nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return Decode(f, path)
}

// Decode reads an image and applies its EXIF orientation. The returned
// providers.Image describes the oriented pixels so that the OCR backend and
// the overlay share one coordinate space: JPEG input, the only format that
// carries orientation, is re-encoded after rotation.
func Decode(r io.Reader, name string) (providers.Image, image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return providers.Image{}, nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return providers.Image{}, nil, fmt.Errorf("empty image %s", name)
	}
	if len(data) > MaxBytes {
		return providers.Image{}, nil, fmt.Errorf("image %s exceeds %d bytes", name, MaxBytes)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return providers.Image{}, nil, fmt.Errorf("failed to decode image %s: %w", name, err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return providers.Image{}, nil, fmt.Errorf("failed to decode image %s: %w", name, err)
	}

	mimeType := mimeTypeFor(name, format)
	if format == "jpeg" {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, decoded, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
			return providers.Image{}, nil, fmt.Errorf("failed to re-encode image %s: %w", name, err)
		}
		data = buf.Bytes()
		mimeType = "image/jpeg"
	}

	img := providers.Image{
		Path:     name,
		Data:     data,
		MimeType: mimeType,
		Size:     geometry.SizeOf(decoded.Bounds()),
	}
	return img, decoded, nil
}

func mimeTypeFor(name, format string) string {
	if format != "" {
		return "image/" + format
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
