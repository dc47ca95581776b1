package payload

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/bfhl/internal/model"
)

// LoadFile reads an attachment from disk.
func LoadFile(path string) (model.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return model.File{}, fmt.Errorf("file path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return model.File{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return model.File{}, fmt.Errorf("%s is a directory", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return model.File{}, fmt.Errorf("failed to read file: %w", err)
	}
	name := filepath.Base(path)
	return model.File{
		Name:     name,
		MIMEType: DetectMIME(name, content),
		Content:  content,
	}, nil
}

// DetectMIME guesses a media type from the file extension, then the content.
// Parameters such as charset are dropped.
func DetectMIME(name string, content []byte) string {
	detected := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if detected == "" {
		detected = http.DetectContentType(content)
	}
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return defaultFileMIME
	}
	return mediaType
}
