package extract

import (
	"net/http"
	"path"
	"strings"
)

// Kind is the broad family of a document's bytes.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindHTML
	KindText
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindHTML:
		return "html"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	}
	return "unknown"
}

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true, ".json": true,
}

// Sniff classifies a document from its declared content type, filename and
// leading bytes. The declared type wins unless it is generic.
func Sniff(filename, contentType string, data []byte) Kind {
	if k := kindFromContentType(contentType); k != KindUnknown {
		return k
	}

	ext := strings.ToLower(path.Ext(filename))
	switch {
	case ext == ".pdf":
		return KindPDF
	case ext == ".html" || ext == ".htm":
		return KindHTML
	case textExtensions[ext]:
		return KindText
	}

	if len(data) == 0 {
		return KindUnknown
	}
	return kindFromContentType(http.DetectContentType(data))
}

func kindFromContentType(contentType string) Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case ct == "application/pdf":
		return KindPDF
	case ct == "text/html" || ct == "application/xhtml+xml":
		return KindHTML
	case strings.HasPrefix(ct, "text/"), ct == "application/json":
		return KindText
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	}
	return KindUnknown
}

// LooksLikeHTML reports whether text content is actually an HTML document.
func LooksLikeHTML(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(lower, "<head") ||
		strings.HasPrefix(lower, "<body")
}
