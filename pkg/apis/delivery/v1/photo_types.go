package v1

import "strings"

// photoExtensions lists the photo content types the hub stores, with the
// object extension used for each.
var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
}

// PhotoExtension returns the object extension for a photo content type.
// Parameters and case are ignored. ok is false for unsupported types.
func PhotoExtension(contentType string) (ext string, ok bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok = photoExtensions[ct]
	return ext, ok
}
