package fsprobe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOS_Exists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	if err := os.WriteFile(file, []byte("hi"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	checker := New()

	if !checker.Exists(file) {
		t.Errorf("Expected %s to exist", file)
	}
	if !checker.Exists(dir) {
		t.Errorf("Expected directory %s to exist", dir)
	}
	if checker.Exists(filepath.Join(dir, "missing.html")) {
		t.Errorf("Expected missing file to not exist")
	}
}

func TestFunc_Exists(t *testing.T) {
	var seen string
	checker := Func(func(path string) bool {
		seen = path
		return path == "./a"
	})

	if !checker.Exists("./a") {
		t.Errorf("Expected ./a to exist")
	}
	if checker.Exists("./b") {
		t.Errorf("Expected ./b to not exist")
	}
	if seen != "./b" {
		t.Errorf("Expected last lookup to be './b', got '%s'", seen)
	}
}
