package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte(`{"venue":"hall","targets":[]}`)
	if err := s.Write("hall.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("hall.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("hall/spot.png", []byte("png")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("hall/spot.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "png" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("nope.json")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.json", []byte("bye"))
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
	if err := s.Delete("del.json"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second delete err = %v, want os.ErrNotExist", err)
	}
}

func TestDeleteAll(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("hall/a.png", []byte("a"))
	_ = s.Write("hall/b.jpeg", []byte("b"))
	if err := s.DeleteAll("hall"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "hall")); !os.IsNotExist(err) {
		t.Errorf("dir still present: %v", err)
	}
	if err := s.DeleteAll("hall"); err != nil {
		t.Errorf("DeleteAll on missing dir: %v", err)
	}
	if err := s.DeleteAll(""); err == nil {
		t.Error("expected DeleteAll to refuse the root")
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("b.json", []byte("b"))
	_ = s.Write("a.json", []byte("a"))
	_ = s.Write("readme.txt", []byte("not json"))
	_ = s.Write("sub/c.json", []byte("nested"))
	_ = os.WriteFile(filepath.Join(s.Root(), ".ar-tmp-123.json"), []byte("x"), 0o644)

	items, err := s.List("", ".json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "a.json" || items[1].Path != "b.json" {
		t.Errorf("order = %q, %q", items[0].Path, items[1].Path)
	}
	if items[0].Checksum == "" || items[0].Size != 1 {
		t.Errorf("metadata = %+v", items[0])
	}
}

func TestNames(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("b.json", []byte("b"))
	_ = s.Write("a.json", []byte("a"))
	_ = s.Write("readme.txt", []byte("not json"))
	_ = s.Write("sub/c.json", []byte("nested"))
	_ = os.WriteFile(filepath.Join(s.Root(), ".ar-tmp-123.json"), []byte("x"), 0o644)
	// A name that cannot be read as a file.
	if err := os.Symlink(filepath.Join(s.Root(), "sub"), filepath.Join(s.Root(), "dir.json")); err != nil {
		t.Fatal(err)
	}

	names, err := s.Names("", ".json")
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 3 || names[0] != "a.json" || names[1] != "b.json" || names[2] != "dir.json" {
		t.Errorf("names = %q", names)
	}
	if _, err := s.List("", ".json"); err == nil {
		t.Error("List should fail to read dir.json")
	}
}

func TestListMissingRoot(t *testing.T) {
	s, err := NewFS(filepath.Join(t.TempDir(), "not-yet"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	items, err := s.List("", ".json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.DeleteAll(p); err == nil {
			t.Errorf("expected error for delete all of %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.json", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".ar-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "ar-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
