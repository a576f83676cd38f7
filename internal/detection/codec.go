package detection

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the decoded size of an upload.
const MaxPixels = 64 << 20

// DefaultJPEGQuality is used when the pipeline re-encodes to JPEG.
const DefaultJPEGQuality = 95

// Decode decodes an encoded image into a grid, honouring EXIF orientation.
// It also returns the codec name reported by the image package ("jpeg",
// "png", ...).
func Decode(data []byte) (*PixelGrid, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty body", ErrDecode)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds the pixel limit", ErrDecode, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return GridFromImage(img), format, nil
}

// Encode writes the grid in the given codec family. Families imaging cannot
// write (webp) fall back to JPEG. The returned name is the codec actually used.
func Encode(grid *PixelGrid, format string, jpegQuality int) ([]byte, string, error) {
	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		f = imaging.JPEG
	}
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, grid, f, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), strings.ToLower(f.String()), nil
}

// EncodeBase64 encodes the grid and returns it as standard base64 text.
func EncodeBase64(grid *PixelGrid, format string, jpegQuality int) (string, string, error) {
	data, name, err := Encode(grid, format, jpegQuality)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(data), name, nil
}
