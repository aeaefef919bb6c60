package signature

import (
	"bytes"
	"encoding/base64"
	"strings"

	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
)

// Decoded holds the binary signature image and its detected content type.
type Decoded struct {
	ContentType string
	Data        []byte
}

var (
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// Decode parses a data-URL signature payload captured by the signature pad.
// Only base64-encoded PNG and JPEG images are accepted, and the decoded
// payload must not exceed maxBytes.
func Decode(dataURL string, maxBytes int) (*Decoded, error) {
	value := strings.TrimSpace(dataURL)
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature payload is empty")
	}

	const prefix = "data:"
	if !strings.HasPrefix(value, prefix) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature must be a data URL")
	}

	meta, encoded, found := strings.Cut(value[len(prefix):], ",")
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature data URL is malformed")
	}

	contentType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature must be base64 encoded")
	}
	if contentType != "image/png" && contentType != "image/jpeg" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature must be a PNG or JPEG image")
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(encoded)) > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature image is too large")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "signature is not valid base64")
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature image is too large")
	}

	if !matchesMagic(contentType, data) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature image content does not match its declared type")
	}

	return &Decoded{ContentType: contentType, Data: data}, nil
}

func matchesMagic(contentType string, data []byte) bool {
	switch contentType {
	case "image/png":
		return bytes.HasPrefix(data, pngMagic)
	case "image/jpeg":
		return bytes.HasPrefix(data, jpegMagic)
	}
	return false
}
