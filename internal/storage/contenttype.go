package storage

import (
	"mime"
	"path"
	"strings"
)

// DefaultContentType is used when neither stored metadata nor the extension says anything.
const DefaultContentType = "application/octet-stream"

// mediaTypes covers media extensions that the platform MIME tables often miss.
var mediaTypes = map[string]string{
	".avif": "image/avif",
	".ico":  "image/x-icon",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".svg":  "image/svg+xml",
	".webm": "video/webm",
	".webp": "image/webp",
}

// ContentTypeFor picks an upload content type: the stored value first, then
// the extension, then DefaultContentType.
func ContentTypeFor(stored, key string) string {
	if stored = strings.TrimSpace(stored); stored != "" {
		return stored
	}
	ext := strings.ToLower(path.Ext(key))
	if ext == "" {
		return DefaultContentType
	}
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return DefaultContentType
}
