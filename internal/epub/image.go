package epub

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var imageTypes = map[string]struct{ mediaType, ext string }{
	"jpeg": {"image/jpeg", ".jpg"},
	"png":  {"image/png", ".png"},
	"gif":  {"image/gif", ".gif"},
	"webp": {"image/webp", ".webp"},
}

// SniffImage reports the media type and file extension of an encoded image.
// Unrecognised data is assumed to be JPEG, the format covers are usually
// served in.
func SniffImage(data []byte) (mediaType, ext string) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		if t, ok := imageTypes[format]; ok {
			return t.mediaType, t.ext
		}
	}
	return "image/jpeg", ".jpg"
}
