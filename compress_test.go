package action

import (
	"bytes"
	"strings"
	"testing"
)

// TestCompressSource_RoundTrip verifies compress/decompress is lossless.
func TestCompressSource_RoundTrip(t *testing.T) {
	src := []byte(`export default { fetch(request, env) { return new Response("ok"); } };`)
	packed, err := CompressSource(src)
	if err != nil {
		t.Fatalf("CompressSource: %v", err)
	}
	back, err := DecompressSource(packed)
	if err != nil {
		t.Fatalf("DecompressSource: %v", err)
	}
	if !bytes.Equal(back, src) {
		t.Errorf("round trip mismatch: got %q", back)
	}
}

// TestCompressSource_Empty verifies empty source round-trips.
func TestCompressSource_Empty(t *testing.T) {
	packed, err := CompressSource(nil)
	if err != nil {
		t.Fatalf("CompressSource: %v", err)
	}
	back, err := DecompressSource(packed)
	if err != nil {
		t.Fatalf("DecompressSource: %v", err)
	}
	if len(back) != 0 {
		t.Errorf("round trip of empty source = %d bytes", len(back))
	}
}

// TestCompressSource_Shrinks verifies repetitive script text actually
// compresses, since the store relies on it for large bundles.
func TestCompressSource_Shrinks(t *testing.T) {
	src := []byte(strings.Repeat("function handler(request) { return request; }\n", 200))
	packed, err := CompressSource(src)
	if err != nil {
		t.Fatalf("CompressSource: %v", err)
	}
	if len(packed) >= len(src) {
		t.Errorf("compressed %d bytes to %d, expected a reduction", len(src), len(packed))
	}
}

// TestDecompressSource_Garbage verifies corrupt blobs fail instead of
// returning partial output.
func TestDecompressSource_Garbage(t *testing.T) {
	if _, err := DecompressSource([]byte("not brotli at all")); err == nil {
		t.Error("want error for corrupt input")
	}
}
