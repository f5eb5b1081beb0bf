package media

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

type imageType struct {
	mime string
	ext  string
}

// supported image formats; the first extension of a mime type is used for new keys.
var imageTypes = []imageType{
	{mime: "image/jpeg", ext: ".jpg"},
	{mime: "image/jpeg", ext: ".jpeg"},
	{mime: "image/png", ext: ".png"},
	{mime: "image/gif", ext: ".gif"},
}

const defaultContentType = "application/octet-stream"

// IsAllowedType reports whether the declared content type is a supported image type.
func IsAllowedType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return lo.ContainsBy(imageTypes, func(t imageType) bool {
		return t.mime == mediaType
	})
}

// DetectImage sniffs the content of data. ok is false if it is not a supported image.
func DetectImage(data []byte) (contentType, ext string, ok bool) {
	detected := mimetype.Detect(data)
	t, found := lo.Find(imageTypes, func(t imageType) bool {
		return detected.Is(t.mime)
	})
	if !found {
		return detected.String(), "", false
	}
	return t.mime, t.ext, true
}

// ContentTypeByKey derives the content type of a stored object from its extension.
func ContentTypeByKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	t, found := lo.Find(imageTypes, func(t imageType) bool {
		return t.ext == ext
	})
	if !found {
		return defaultContentType
	}
	return t.mime
}
