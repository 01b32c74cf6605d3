package processing

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const ThumbSize = 1280

type ImageThumbConverted struct {
	ThumbSize int64
	NewX      int
	NewY      int
	OldX      int
	OldY      int
}

// ThumbKey is the storage key of the thumbnail derived from key
func ThumbKey(key string) string {
	return key + "_thumb.jpg"
}

// CreateThumb writes a JPEG that fits in a size x size box.
// Images already small enough are only re-encoded.
func CreateThumb(size uint, reader io.Reader, writer io.Writer) (result ImageThumbConverted, err error) {
	img, _, err := image.Decode(reader)
	if err != nil {
		return result, err
	}
	var newBuf bytes.Buffer
	newImage := resize.Thumbnail(size, size, img, resize.Lanczos3)
	if err = jpeg.Encode(&newBuf, newImage, &jpeg.Options{Quality: 90}); err != nil {
		return
	}
	imageRect := newImage.Bounds().Size()
	result.NewX = imageRect.X
	result.NewY = imageRect.Y

	imageRect = img.Bounds().Size()
	result.OldX = imageRect.X
	result.OldY = imageRect.Y

	result.ThumbSize, err = io.Copy(writer, &newBuf)
	return
}
