package media

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"

	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrNotAnImage is returned when an upload cannot be decoded as a supported image.
var ErrNotAnImage = errors.New("upload a valid image: the file you uploaded was either not an image or a corrupted image")

// DetectImage decodes the image header and returns the format name (gif, jpeg, png, webp).
func DetectImage(r io.Reader) (string, error) {
	_, format, err := image.DecodeConfig(r)
	if err != nil {
		return "", ErrNotAnImage
	}
	return format, nil
}

// DetectImageBytes is DetectImage for in-memory content.
func DetectImageBytes(b []byte) (string, error) {
	return DetectImage(bytes.NewReader(b))
}
