package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidDataURI = errors.New("invalid image data URI")

	imageDataURIPattern = regexp.MustCompile(`^data:(image/.+?);base64,(.+)$`)

	extensions = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpeg",
		"image/jpg":     ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}
)

const defaultExtension = ".png"

// DataURI is a decoded data:image/...;base64 payload.
type DataURI struct {
	MimeType string
	Data     []byte
}

// ParseImageDataURI decodes a data:image/*;base64 URI.
func ParseImageDataURI(raw string) (*DataURI, error) {
	matches := imageDataURIPattern.FindStringSubmatch(raw)
	if len(matches) != 3 {
		return nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return &DataURI{MimeType: matches[1], Data: data}, nil
}

// EncodeDataURI formats data as data:<mime>;base64,<payload>.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ExtensionForMimeType maps an image MIME type to a file extension, png when unknown.
func ExtensionForMimeType(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return defaultExtension
}

// FileName appends the extension for mimeType to the trimmed name unless it is already there.
func FileName(name, mimeType string) string {
	base := strings.TrimSpace(name)
	ext := ExtensionForMimeType(mimeType)
	if strings.HasSuffix(strings.ToLower(base), strings.ToLower(ext)) {
		return base
	}
	return base + ext
}

// ObjectKey joins an optional prefix and a file name with exactly one separator.
func ObjectKey(prefix, fileName string) string {
	key := strings.TrimLeft(fileName, "/")
	if strings.TrimSpace(prefix) != "" {
		key = strings.TrimRight(prefix, "/") + "/" + key
	}
	return strings.TrimLeft(key, "/")
}
