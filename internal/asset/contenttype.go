package asset

import "strings"

// DefaultContentType is used for extensions missing from the table.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"bmp":   "image/bmp",
	"gif":   "image/gif",
	"heic":  "image/heic",
	"ico":   "image/vnd.microsoft.icon",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"png":   "image/png",
	"svg":   "image/svg+xml",
	"webp":  "image/webp",
	"otf":   "font/otf",
	"ttf":   "font/ttf",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"js":    "application/javascript",
	"mjs":   "application/javascript",
	"cjs":   "application/javascript",
	"json":  "application/json",
	"map":   "application/json",
	"css":   "text/css",
	"html":  "text/html",
	"txt":   "text/plain",
	"mp3":   "audio/mpeg",
	"wav":   "audio/wav",
	"mp4":   "video/mp4",
	"pdf":   "application/pdf",
}

// ContentTypeFromExtension maps a file extension, with or without its leading
// dot, to a MIME type. Unknown and empty extensions map to
// DefaultContentType.
func ContentTypeFromExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return DefaultContentType
}
