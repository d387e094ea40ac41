package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const maxSourcePixels = 40_000_000

func decodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: reading image header: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid image dimensions", ErrInvalidImage)
	}
	if cfg.Width*cfg.Height > maxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrInvalidImage, err)
	}

	return img, nil
}

// renderVariant scales src so its longer edge equals maxEdge and encodes it
// as lossy WebP.
func renderVariant(src image.Image, maxEdge, quality int) ([]byte, error) {
	bounds := src.Bounds()
	width, height := scaleDimensions(bounds.Dx(), bounds.Dy(), maxEdge)

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, dst, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, fmt.Errorf("encoding webp variant: %w", err)
	}

	return buf.Bytes(), nil
}

// scaleDimensions makes the longer edge exactly maxEdge, enlarging small
// sources so a variant's name always matches its bounding box.
func scaleDimensions(width, height, maxEdge int) (int, int) {
	if width >= height {
		ratio := float64(maxEdge) / float64(width)
		scaledHeight := int(float64(height)*ratio + 0.5)
		if scaledHeight < 1 {
			scaledHeight = 1
		}
		return maxEdge, scaledHeight
	}

	ratio := float64(maxEdge) / float64(height)
	scaledWidth := int(float64(width)*ratio + 0.5)
	if scaledWidth < 1 {
		scaledWidth = 1
	}
	return scaledWidth, maxEdge
}
