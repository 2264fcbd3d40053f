package capture

import (
	"net/url"
	"path/filepath"
)

// FileRef is a submitted file. Only its display name is required.
type FileRef interface {
	Name() string
}

// LocalFile is a file on the local filesystem.
type LocalFile struct {
	Path string
}

// Name returns the base name of the file.
func (f LocalFile) Name() string {
	return filepath.Base(f.Path)
}

// NamedFile is a file known only by its name, e.g. an upload stream.
type NamedFile string

// Name returns the file name.
func (f NamedFile) Name() string {
	return string(f)
}

// Previewer produces the transient reference stored in Receipt.FileURL.
// References are scoped to the session and need not survive a restart.
type Previewer interface {
	PreviewURL(sessionID string, file FileRef) string
}

// PreviewFunc adapts a function to Previewer.
type PreviewFunc func(sessionID string, file FileRef) string

// PreviewURL calls f.
func (f PreviewFunc) PreviewURL(sessionID string, file FileRef) string {
	return f(sessionID, file)
}

// DefaultPreviewer links local files by absolute path and everything else
// by a session-scoped URL.
var DefaultPreviewer Previewer = PreviewFunc(func(sessionID string, file FileRef) string {
	if local, ok := file.(LocalFile); ok {
		if abs, err := filepath.Abs(local.Path); err == nil {
			return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
		}
	}
	return (&url.URL{Scheme: "session", Host: sessionID, Path: "/" + file.Name()}).String()
})
