package analysis

import "strings"

// ImageExt maps an image content type to a file extension.
func ImageExt(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	case "image/bmp":
		return ".bmp"
	default:
		return ".img"
	}
}
