package signature

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
)

func pngDataURL(extra int) string {
	payload := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, extra)...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
}

func TestDecode_ValidPNG(t *testing.T) {
	decoded, err := Decode(pngDataURL(16), 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/png", decoded.ContentType)
	assert.Len(t, decoded.Data, 24)
}

func TestDecode_ValidJPEG(t *testing.T) {
	payload := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 8)...)
	url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload)

	decoded, err := Decode(url, 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", decoded.ContentType)
}

func TestDecode_Rejections(t *testing.T) {
	cases := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"not a data url", "https://example.com/sig.png"},
		{"missing comma", "data:image/png;base64"},
		{"unsupported type", "data:image/gif;base64," + base64.StdEncoding.EncodeToString([]byte("GIF89a"))},
		{"not base64 encoding", "data:image/png;charset=utf-8,abcd"},
		{"invalid base64", "data:image/png;base64,!!!!"},
		{"magic mismatch", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png at all"))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.url, 1024)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeInvalidSignature, typed.Code())
		})
	}
}

func TestDecode_SizeBound(t *testing.T) {
	_, err := Decode(pngDataURL(64), 32)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "too large"))
}
