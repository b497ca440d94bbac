// Package media stores chat uploads and renders their thumbnails.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/chat"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/security"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	uploadsDir     = "uploads"
	thumbsDir      = "thumbs"
	thumbnailWidth = 320
)

// ErrTooLarge is returned when an upload exceeds the configured size.
var ErrTooLarge = fmt.Errorf("media: upload too large")

// AttachmentStore writes uploads below basePath and serves them under urlPrefix.
type AttachmentStore struct {
	basePath  string
	urlPrefix string
	maxBytes  int
}

func NewAttachmentStore(basePath, urlPrefix string, maxBytes int) *AttachmentStore {
	return &AttachmentStore{basePath: basePath, urlPrefix: strings.TrimSuffix(urlPrefix, "/"), maxBytes: maxBytes}
}

// BasePath is the directory served under the url prefix.
func (s *AttachmentStore) BasePath() string { return s.basePath }

// Save writes data to disk and, for raster images, a WebP thumbnail next to it.
// A failed thumbnail does not fail the upload.
func (s *AttachmentStore) Save(filename, mimeType string, data []byte) (chat.Attachment, error) {
	if len(data) == 0 {
		return chat.Attachment{}, fmt.Errorf("empty upload")
	}
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return chat.Attachment{}, ErrTooLarge
	}

	id := security.GenerateULID()
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	dir := filepath.Join(s.basePath, uploadsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return chat.Attachment{}, fmt.Errorf("failed to create directory: %w", err)
	}
	name := id + ext
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return chat.Attachment{}, fmt.Errorf("failed to write upload: %w", err)
	}

	att := chat.Attachment{
		ID:       id,
		Filename: filepath.Base(filename),
		MimeType: mimeType,
		Size:     int64(len(data)),
		URL:      fmt.Sprintf("%s/%s/%s", s.urlPrefix, uploadsDir, name),
	}
	if isRaster(mimeType) {
		if thumb, err := s.thumbnail(id, data); err == nil {
			att.ThumbnailURL = thumb
		}
	}
	return att, nil
}

// SaveBase64 accepts a data URL such as "data:image/png;base64,...".
func (s *AttachmentStore) SaveBase64(filename, dataURL string) (chat.Attachment, error) {
	mimeType := extractMimeType(dataURL)
	if mimeType == "" {
		return chat.Attachment{}, fmt.Errorf("unsupported data url")
	}
	b64 := dataURL
	if i := strings.Index(dataURL, ","); i >= 0 {
		b64 = dataURL[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return chat.Attachment{}, fmt.Errorf("failed to decode base64: %w", err)
	}
	return s.Save(filename, mimeType, data)
}

func (s *AttachmentStore) thumbnail(id string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Dx() > thumbnailWidth {
		img = imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	}

	dir := filepath.Join(s.basePath, thumbsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	name := id + ".webp"
	if err := webp.Save(filepath.Join(dir, name), img, &webp.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", s.urlPrefix, thumbsDir, name), nil
}

func isRaster(mimeType string) bool {
	switch mimeType {
	case "image/png", "image/jpeg", "image/jpg", "image/gif":
		return true
	}
	return false
}

var dataURLPattern = regexp.MustCompile(`^data:([a-z]+/[a-z0-9.+-]+);base64,`)

func extractMimeType(dataURL string) string {
	m := dataURLPattern.FindStringSubmatch(dataURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
