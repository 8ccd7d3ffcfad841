// Package imageinfo inspects uploaded overlay images.
package imageinfo

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ThumbnailSize bounds the longest side of generated thumbnails.
const ThumbnailSize = 256

// Image is a decoded upload.
type Image struct {
	img image.Image
}

// Decode parses PNG or JPEG bytes, honouring EXIF orientation.
func Decode(data []byte) (*Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &Image{img: img}, nil
}

// Size returns the pixel dimensions.
func (i *Image) Size() (width, height int) {
	b := i.img.Bounds()
	return b.Dx(), b.Dy()
}

// Thumbnail renders a JPEG no larger than ThumbnailSize on either side.
func (i *Image) Thumbnail() ([]byte, error) {
	thumb := imaging.Fit(i.img, ThumbnailSize, ThumbnailSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
