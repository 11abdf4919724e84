package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestZstdCompressor(t *testing.T) {
	var c Compressor = ZstdCompressor{}

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"block markup", []byte("<!-- wp:paragraph -->\n<p></p>\n<!-- /wp:paragraph -->")},
		{"repetitive", []byte(strings.Repeat("the archive ", 512))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			compressed, err := c.Compress(tc.data)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			decompressed, err := c.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}

			if !bytes.Equal(decompressed, tc.data) {
				t.Errorf("Expected %q after round trip, got %q", tc.data, decompressed)
			}
		})
	}

	t.Run("garbage input", func(t *testing.T) {
		if _, err := c.Decompress([]byte("not zstd")); err == nil {
			t.Error("Expected an error decompressing garbage")
		}
	})
}
