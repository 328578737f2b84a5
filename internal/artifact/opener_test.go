package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseS3Ref(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		bucket string
		key    string
		ok     bool
	}{
		{name: "simple", ref: "s3://artifacts/catalog.json", bucket: "artifacts", key: "catalog.json", ok: true},
		{name: "nested key", ref: "s3://artifacts/v2/embeddings.npy", bucket: "artifacts", key: "v2/embeddings.npy", ok: true},
		{name: "local path", ref: "./data/catalog.json", ok: false},
		{name: "absolute path", ref: "/var/lib/mediasvc/catalog.json", ok: false},
		{name: "missing key", ref: "s3://artifacts", ok: false},
		{name: "empty bucket", ref: "s3:///catalog.json", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, ok := parseS3Ref(tt.ref)
			if ok != tt.ok {
				t.Fatalf("parseS3Ref(%q) ok = %v, want %v", tt.ref, ok, tt.ok)
			}
			if ok && (bucket != tt.bucket || key != tt.key) {
				t.Errorf("parseS3Ref(%q) = %q, %q, want %q, %q", tt.ref, bucket, key, tt.bucket, tt.key)
			}
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "https://minio.example.com/", want: "minio.example.com"},
		{input: "http://localhost:9000", want: "localhost:9000"},
		{input: "minio.example.com/some/path", want: "minio.example.com"},
	}

	for _, tt := range tests {
		if got := normalizeEndpoint(tt.input); got != tt.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestOpenLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	opener := NewOpener(nil)
	rc, err := opener.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `[]` {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestOpenS3WithoutConfig(t *testing.T) {
	opener := NewOpener(nil)
	if _, err := opener.Open(context.Background(), "s3://artifacts/catalog.json"); err == nil {
		t.Error("expected error for s3 ref without storage config")
	}
}
