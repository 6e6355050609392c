package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteString_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "live.txt")
	if err := WriteString(path, "hello"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
}

func TestWrite_FailureKeepsOldContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.txt")
	if err := WriteString(path, "old"); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := Write(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, expected boom", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Errorf("content = %q, expected old", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

func TestWithExt(t *testing.T) {
	tests := []struct{ in, expected string }{
		{"/tmp/live.txt", "/tmp/live.m3u"},
		{"/tmp/live", "/tmp/live.m3u"},
		{"/tmp/a.b/live.txt", "/tmp/a.b/live.m3u"},
	}
	for _, tt := range tests {
		if got := WithExt(tt.in, ".m3u"); got != tt.expected {
			t.Errorf("WithExt(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}
