package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	exp, err := ExpandHome("~/models")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if filepath.Base(exp) != "models" {
		t.Fatalf("unexpected expanded path: %q", exp)
	}
}

func TestSidecarLookup(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "densenet.onnx")
	if err := os.WriteFile(model, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := FindSidecar(model); got != "" {
		t.Fatalf("expected no sidecar, got %q", got)
	}
	meta := filepath.Join(dir, "densenet_metadata.json")
	if err := os.WriteFile(meta, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := FindSidecar(model); got != meta {
		t.Fatalf("expected %q, got %q", meta, got)
	}
	plain := filepath.Join(dir, "densenet.json")
	if err := os.WriteFile(plain, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := FindSidecar(model); got != plain {
		t.Fatalf("plain sidecar should win, got %q", got)
	}
}

func TestFileSizeAndStem(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "m.v2.onnx")
	if err := os.WriteFile(p, make([]byte, 1234), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err := FileSize(p)
	if err != nil || n != 1234 {
		t.Fatalf("size=%d err=%v", n, err)
	}
	if _, err := FileSize(dir); err == nil {
		t.Fatalf("expected error for directory")
	}
	if Stem(p) != "m.v2" {
		t.Fatalf("stem=%q", Stem(p))
	}
	if !IsDir(dir) || IsDir(p) || !PathExists(p) {
		t.Fatalf("unexpected path predicates")
	}
}
