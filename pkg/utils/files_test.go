package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListFilesWithExt(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_000002.json", "a_000001.JSON", "notes.txt", "c_000003.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := MakeDir(filepath.Join(dir, "sub.json")); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}

	paths, err := ListFilesWithExt(dir, ".json")
	if err != nil {
		t.Fatalf("ListFilesWithExt failed: %v", err)
	}

	expected := []string{"a_000001.JSON", "b_000002.json", "c_000003.json"}
	if len(paths) != len(expected) {
		t.Fatalf("got %v, expected %v", paths, expected)
	}
	for i, name := range expected {
		if filepath.Base(paths[i]) != name {
			t.Errorf("path %d = %s, expected %s", i, filepath.Base(paths[i]), name)
		}
	}
}

func TestListFilesWithExtMissingDir(t *testing.T) {
	if _, err := ListFilesWithExt(filepath.Join(t.TempDir(), "missing"), ".json"); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.anim")
	dst := filepath.Join(dir, "moved.anim")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if !FileExists(src) {
		t.Error("FileExists should report an existing file")
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	if FileExists(src) || !FileExists(dst) {
		t.Error("MoveFile did not move the file")
	}
	if got := BaseName("/videos/dance.take2.mp4"); got != "dance.take2" {
		t.Errorf("BaseName = %q, expected dance.take2", got)
	}
}

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	if a == b {
		t.Error("expected distinct UUIDs")
	}
	if !IsUUID(a) {
		t.Errorf("%q is not a valid UUID", a)
	}
	if IsUUID("not-a-uuid") {
		t.Error("IsUUID accepted garbage")
	}
}
