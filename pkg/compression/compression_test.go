package compression

import (
	"bytes"
	"testing"
)

func TestGzipCompressor(t *testing.T) {
	c := NewGzipCompressor(LevelDefault)

	original := []byte("benchmark dataset payload, repeated payload, repeated payload")

	compressed, err := c.Compress(original)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	if !bytes.Equal(original, decompressed) {
		t.Errorf("round trip mismatch: got %q, want %q", decompressed, original)
	}
	if c.Type() != TypeGzip || c.Name() != "gzip" {
		t.Errorf("unexpected identity: %v %q", c.Type(), c.Name())
	}
}

func TestZstdCompressor(t *testing.T) {
	c, err := NewZstdCompressor(LevelDefault)
	if err != nil {
		t.Fatalf("NewZstdCompressor failed: %v", err)
	}
	defer c.Close()

	original := make([]byte, 1<<16)
	for i := range original {
		original[i] = byte(i % 7)
	}

	compressed, err := c.Compress(original)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) >= len(original) {
		t.Errorf("repetitive data should shrink: %d >= %d", len(compressed), len(original))
	}

	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(original, decompressed) {
		t.Error("round trip mismatch")
	}
}

func TestNoOpCompressor(t *testing.T) {
	c := NewNoOpCompressor()
	data := []byte{1, 2, 3}

	out, err := c.Compress(data)
	if err != nil || !bytes.Equal(out, data) {
		t.Errorf("Compress changed data: %v %v", out, err)
	}
	out, err = c.Decompress(data)
	if err != nil || !bytes.Equal(out, data) {
		t.Errorf("Decompress changed data: %v %v", out, err)
	}
}

func TestTypeString(t *testing.T) {
	cases := map[Type]string{
		TypeGzip: "gzip",
		TypeZstd: "zstd",
		TypeNone: "none",
		Type(7):  "unknown(7)",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("Type(%d).String() = %q, want %q", typ, got, want)
		}
	}
}

func TestTypeExtension(t *testing.T) {
	if TypeGzip.Extension() != ".gz" {
		t.Error("gzip extension")
	}
	if TypeZstd.Extension() != ".zst" {
		t.Error("zstd extension")
	}
	if TypeNone.Extension() != "" {
		t.Error("none extension")
	}
}

func TestParseType(t *testing.T) {
	cases := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{in: "gzip", want: TypeGzip},
		{in: "gz", want: TypeGzip},
		{in: "zstd", want: TypeZstd},
		{in: "zst", want: TypeZstd},
		{in: "none", want: TypeNone},
		{in: "", want: TypeNone},
		{in: "lz4", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseType(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseType(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseType(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestDetectType(t *testing.T) {
	gz := NewGzipCompressor(LevelDefault)
	gzData, err := gz.Compress([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if DetectType(gzData) != TypeGzip {
		t.Error("gzip magic not detected")
	}

	zc, err := NewZstdCompressor(LevelDefault)
	if err != nil {
		t.Fatal(err)
	}
	defer zc.Close()
	zstdData, err := zc.Compress([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if DetectType(zstdData) != TypeZstd {
		t.Error("zstd magic not detected")
	}

	if DetectType([]byte("raw int64 stream")) != TypeNone {
		t.Error("plain data must detect as uncompressed")
	}
	if DetectType([]byte{0x01}) != TypeNone {
		t.Error("short data must detect as uncompressed")
	}
}

func TestAutoDecompress(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")

	for _, typ := range []Type{TypeGzip, TypeZstd, TypeNone} {
		c, err := New(typ, LevelDefault)
		if err != nil {
			t.Fatal(err)
		}
		compressed, err := c.Compress(payload)
		if err != nil {
			t.Fatal(err)
		}

		out, err := AutoDecompress(compressed)
		if err != nil {
			t.Fatalf("%v: AutoDecompress failed: %v", typ, err)
		}
		if !bytes.Equal(out, payload) {
			t.Errorf("%v: round trip mismatch", typ)
		}
		Close(c)
	}
}

func TestNewUnknownType(t *testing.T) {
	if _, err := New(Type(9), LevelDefault); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestFactoryHelpers(t *testing.T) {
	for name, c := range map[string]Compressor{
		"default": Default(),
		"fast":    Fast(),
		"best":    Best(),
	} {
		data := []byte("factory helper payload")
		compressed, err := c.Compress(data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		out, err := c.Decompress(compressed)
		if err != nil || !bytes.Equal(out, data) {
			t.Errorf("%s round trip failed: %v", name, err)
		}
		Close(c)
	}
}
