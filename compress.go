package action

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// maxDecompressedSize caps how much a stored source blob may expand to,
// so a corrupt or hostile row cannot exhaust memory on load.
const maxDecompressedSize = 128 * 1024 * 1024 // 128 MB

// CompressSource brotli-compresses a bundled script for storage.
func CompressSource(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("compressing source: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing source: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressSource reverses CompressSource, enforcing maxDecompressedSize.
func DecompressSource(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(io.LimitReader(r, maxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing source: %w", err)
	}
	if len(out) > maxDecompressedSize {
		return nil, fmt.Errorf("decompressing source: output exceeds %d bytes", maxDecompressedSize)
	}
	return out, nil
}
