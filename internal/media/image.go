// Package media inspects images embedded as data URLs: canvas snapshots,
// AI reference images and book covers.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/bbrks/go-blurhash"
	"github.com/gabriel-vasile/mimetype"
	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// blurHashSize is the longest side of the thumbnail hashed for previews.
const blurHashSize = 64

// MaxDataURLBytes bounds the decoded size of an embedded image.
const MaxDataURLBytes = 8 << 20

// ErrNotImage is returned for data URLs that do not hold a decodable image.
var ErrNotImage = errors.New("not an image")

// Info describes an embedded image.
type Info struct {
	MediaType string `json:"mediaType"`
	BlurHash  string `json:"blurHash,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// IsDataURL reports whether s looks like a data URL rather than a remote
// reference.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// Decode parses a data URL and checks that it carries an image. The
// declared media type must agree with the sniffed content.
func Decode(s string) (*dataurl.DataURL, error) {
	du, err := dataurl.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	if du.MediaType.Type != "image" {
		return nil, fmt.Errorf("%w: declared %s", ErrNotImage, du.MediaType.ContentType())
	}
	if len(du.Data) > MaxDataURLBytes {
		return nil, fmt.Errorf("image is %d bytes, limit is %d", len(du.Data), MaxDataURLBytes)
	}
	if sniffed := mimetype.Detect(du.Data); !strings.HasPrefix(sniffed.String(), "image/") {
		return nil, fmt.Errorf("%w: content is %s", ErrNotImage, sniffed.String())
	}
	return du, nil
}

// Inspect decodes an embedded image and returns its dimensions and a
// BlurHash preview.
func Inspect(s string) (Info, error) {
	du, err := Decode(s)
	if err != nil {
		return Info{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(du.Data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	info := Info{
		MediaType: du.MediaType.ContentType(),
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		Bytes:     len(du.Data),
	}

	// 4 horizontal, 3 vertical components.
	hash, err := blurhash.Encode(4, 3, resizeForBlurHash(img))
	if err != nil {
		return Info{}, fmt.Errorf("encode blurhash: %w", err)
	}
	info.BlurHash = hash
	return info, nil
}

// resizeForBlurHash creates a small thumbnail suitable for BlurHash computation
// using nearest-neighbor scaling.
func resizeForBlurHash(img image.Image) image.Image {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	if srcWidth <= blurHashSize && srcHeight <= blurHashSize {
		return img
	}

	var dstWidth, dstHeight int
	if srcWidth > srcHeight {
		dstWidth = blurHashSize
		dstHeight = max((srcHeight*blurHashSize)/srcWidth, 1)
	} else {
		dstHeight = blurHashSize
		dstWidth = max((srcWidth*blurHashSize)/srcHeight, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for y := range dstHeight {
		for x := range dstWidth {
			srcX := int(float64(x) * xRatio)
			srcY := int(float64(y) * yRatio)
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}
	return dst
}
