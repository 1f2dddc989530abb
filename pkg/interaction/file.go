package interaction

import (
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// MediaTypeFor guesses a media type from the file extension. Text formats
// the backend chunks (.txt, .md) are mapped explicitly because the system
// mime table does not always know .md.
func MediaTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ReadSelectedFile loads a file from disk the way a file picker would.
func ReadSelectedFile(path string) (SelectedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectedFile{}, err
	}
	name := filepath.Base(path)
	return SelectedFile{
		Name:      name,
		MediaType: MediaTypeFor(name),
		Data:      data,
	}, nil
}
