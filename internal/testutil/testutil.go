// Package testutil provides shared test helpers for setting up storage roots.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/quizdy/ar-server/internal/storage"
)

// TestFS creates a temporary storage root that is removed with the test.
func TestFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestRoots creates venues and images roots under one temporary public
// directory. Neither root exists on disk until something is written.
func TestRoots(t *testing.T) (venuesDir, imagesDir string, venues, images *storage.FS) {
	t.Helper()
	public := t.TempDir()
	venuesDir = filepath.Join(public, "venues")
	imagesDir = filepath.Join(public, "images")
	var err error
	if venues, err = storage.NewFS(venuesDir); err != nil {
		t.Fatal(err)
	}
	if images, err = storage.NewFS(imagesDir); err != nil {
		t.Fatal(err)
	}
	return venuesDir, imagesDir, venues, images
}
