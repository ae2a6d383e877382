// Package storage defines the file-system abstraction for venue documents and images.
package storage

import "github.com/quizdy/ar-server/internal/models"

// Provider is the interface for file operations below a root directory.
// All paths are relative to that root.
type Provider interface {
	// List returns metadata for the regular files directly inside dir whose
	// name ends in ext. A missing dir yields an empty result.
	List(dir, ext string) ([]models.FileMeta, error)
	// Names returns the sorted names of the files directly inside dir whose
	// name ends in ext, without reading them. A missing dir yields an empty
	// result.
	Names(dir, ext string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// DeleteAll removes path and everything below it. A missing path is not an error.
	DeleteAll(path string) error
}
