package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type fileKind struct {
	mime   string
	family string
}

// allowed maps extension to declared MIME type and the sniffed family it must
// agree with.
var allowed = map[string]fileKind{
	".pdf":  {"application/pdf", "pdf"},
	".png":  {"image/png", "image"},
	".jpg":  {"image/jpeg", "image"},
	".jpeg": {"image/jpeg", "image"},
	".gif":  {"image/gif", "image"},
	".txt":  {"text/plain", "text"},
	".md":   {"text/markdown", "text"},
	".zip":  {"application/zip", "zip"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "zip"},
	".pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "zip"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "zip"},
	".mp4":  {"video/mp4", "video"},
}

func sniffFamily(head []byte) string {
	ct := http.DetectContentType(head)
	switch {
	case ct == "application/pdf":
		return "pdf"
	case strings.HasPrefix(ct, "image/"):
		return "image"
	case strings.HasPrefix(ct, "text/plain"):
		return "text"
	case ct == "application/zip":
		return "zip"
	case ct == "video/mp4":
		return "video"
	}
	return ct
}

type UploadError struct{ Msg string }

func (e *UploadError) Error() string { return e.Msg }

// Validate checks the file name, size and leading bytes of an upload and
// returns the MIME type to store it under.
func Validate(name string, size, maxBytes int64, head []byte) (string, error) {
	if size <= 0 {
		return "", &UploadError{"file is empty"}
	}
	if size > maxBytes {
		return "", &UploadError{fmt.Sprintf("file exceeds %d bytes", maxBytes)}
	}
	ext := strings.ToLower(filepath.Ext(name))
	kind, ok := allowed[ext]
	if !ok {
		return "", &UploadError{"file type not allowed"}
	}
	if sniffFamily(head) != kind.family {
		return "", &UploadError{"file content does not match its extension"}
	}
	return kind.mime, nil
}

const maxNameLen = 100

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func SanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	if len(base) > maxNameLen {
		ext := filepath.Ext(base)
		if len(ext) >= maxNameLen {
			ext = ""
		}
		base = base[:maxNameLen-len(ext)] + ext
	}
	return base
}

func ObjectKey(courseID uint, name string) string {
	return fmt.Sprintf("courses/%d/%s-%s", courseID, uuid.NewString(), SanitizeName(name))
}
