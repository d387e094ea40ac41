package images

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidImage is the root of every error caused by unusable source bytes.
	ErrInvalidImage = errors.New("invalid image")

	ErrEmptyImage     = fmt.Errorf("%w: no image data", ErrInvalidImage)
	ErrExecutableFile = fmt.Errorf("%w: executable files are not allowed", ErrInvalidImage)
	ErrDisallowedType = fmt.Errorf("%w: disallowed mime type", ErrInvalidImage)
	ErrImageTooLarge  = fmt.Errorf("%w: image too large", ErrInvalidImage)
	ErrInvalidBase64  = fmt.Errorf("%w: malformed base64 payload", ErrInvalidImage)

	// ErrSourceUnavailable means a remote image could not be fetched.
	ErrSourceUnavailable = errors.New("image source unavailable")

	ErrInvalidName = errors.New("invalid variant name")
)

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// checkSource rejects executables and anything that does not sniff as a
// decodable raster image.
func checkSource(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}

	if isExecutableSignature(sniff) {
		return "", ErrExecutableFile
	}

	mimeType := detectMimeType(sniff)
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrDisallowedType, mimeType)
	}

	return mimeType, nil
}

func detectMimeType(sniff []byte) string {
	contentType := http.DetectContentType(sniff)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func isExecutableSignature(sniff []byte) bool {
	if len(sniff) < 2 {
		return false
	}

	if sniff[0] == 'M' && sniff[1] == 'Z' {
		return true // PE/COFF (Windows)
	}
	if sniff[0] == '#' && sniff[1] == '!' {
		return true // shebang scripts
	}
	if len(sniff) < 4 {
		return false
	}

	if bytes.Equal(sniff[:4], []byte{0x7f, 'E', 'L', 'F'}) {
		return true
	}

	for _, magic := range machoMagics {
		if bytes.Equal(sniff[:4], magic) {
			return true
		}
	}

	return false
}

var machoMagics = [][]byte{
	{0xfe, 0xed, 0xfa, 0xce},
	{0xce, 0xfa, 0xed, 0xfe},
	{0xfe, 0xed, 0xfa, 0xcf},
	{0xcf, 0xfa, 0xed, 0xfe},
	{0xca, 0xfe, 0xba, 0xbe},
	{0xbe, 0xba, 0xfe, 0xca},
}
