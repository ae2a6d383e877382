// Package imagewriter stores base64 data-URL images as files under a
// per-venue directory and maps them to public /images paths.
package imagewriter

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/quizdy/ar-server/internal/apperr"
	"github.com/quizdy/ar-server/internal/models"
	"github.com/quizdy/ar-server/internal/storage"
)

// PublicPrefix is the URL prefix under which stored images are served.
const PublicPrefix = "/images/"

const dataImagePrefix = "data:image"

var (
	subtypeRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9.+-]*$`)
	unsafeNameRe = regexp.MustCompile(`[\x00-\x1f\x7f/\\:*?"<>|]`)

	// Subtypes whose literal form makes a poor extension.
	subtypeExt = map[string]string{
		"svg+xml": "svg",
		"x-icon":  "ico",
	}
)

// Result describes a stored image. The zero value means nothing was written.
type Result struct {
	Path string // public path, e.g. /images/hall/spot.png
	File string // path relative to the images root
	Size int64

	// content of the file that was overwritten, for Undo
	previous []byte
	replaced bool
}

// Empty reports whether no image was written.
func (r Result) Empty() bool {
	return r.Path == ""
}

// Writer writes images below an images root.
type Writer struct {
	store storage.Provider
}

// New creates a Writer over the images storage.
func New(store storage.Provider) *Writer {
	return &Writer{store: store}
}

// Write decodes payload (data:image/<subtype>;base64,<body>) into
// <venue>/<title>.<ext>, overwriting any previous file of that name.
//
// Missing arguments or a payload that is not an embedded image yield an
// empty Result and no error. A malformed header or body yields an error
// wrapping apperr.ErrValidation; file system failures are returned as is.
func (w *Writer) Write(venue, title, payload string) (Result, error) {
	if venue == "" || title == "" || payload == "" {
		return Result{}, nil
	}
	if !strings.HasPrefix(payload, dataImagePrefix) {
		return Result{}, nil
	}
	if err := models.ValidateVenueName(venue); err != nil {
		return Result{}, err
	}

	data, ext, err := decodeDataURL(payload)
	if err != nil {
		return Result{}, err
	}
	name, err := sanitizeTitle(title)
	if err != nil {
		return Result{}, err
	}

	file := path.Join(venue, name+"."+ext)
	previous, err := w.store.Read(file)
	replaced := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("imagewriter: read %s: %w", file, err)
	}
	if err := w.store.Write(file, data); err != nil {
		return Result{}, fmt.Errorf("imagewriter: write %s: %w", file, err)
	}
	return Result{
		Path:     PublicPrefix + file,
		File:     file,
		Size:     int64(len(data)),
		previous: previous,
		replaced: replaced,
	}, nil
}

// Undo reverts a Write: an overwritten file gets its old content back, a
// newly created one is removed.
func (w *Writer) Undo(res Result) error {
	if res.Empty() {
		return nil
	}
	if res.replaced {
		if err := w.store.Write(res.File, res.previous); err != nil {
			return fmt.Errorf("imagewriter: restore %s: %w", res.File, err)
		}
		return nil
	}
	if err := w.store.Delete(res.File); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("imagewriter: undo %s: %w", res.File, err)
	}
	return nil
}

// Remove deletes the file behind a public image path owned by venue. Paths
// that do not point at a file inside that venue's directory are ignored, as
// is a file that is already gone.
func (w *Writer) Remove(venue, publicPath string) error {
	file, ok := FileFor(publicPath)
	if !ok || !strings.HasPrefix(file, venue+"/") {
		return nil
	}
	if err := w.store.Delete(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("imagewriter: remove %s: %w", file, err)
	}
	return nil
}

// FileFor maps a public path to its path relative to the images root.
func FileFor(publicPath string) (string, bool) {
	if !strings.HasPrefix(publicPath, PublicPrefix) {
		return "", false
	}
	rel := strings.TrimPrefix(publicPath, PublicPrefix)
	venue, name, ok := strings.Cut(rel, "/")
	if !ok || venue == "" || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	if models.ValidateVenueName(venue) != nil || name == "." || name == ".." {
		return "", false
	}
	return rel, true
}

// decodeDataURL parses data:image/<subtype>[;params];base64,<body> and
// returns the decoded bytes and the file extension.
func decodeDataURL(payload string) ([]byte, string, error) {
	rest := strings.TrimPrefix(payload, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", invalid("missing comma separator")
	}
	meta, encoded := rest[:commaIdx], rest[commaIdx+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", invalid("only base64 data URLs are supported")
	}
	mime := strings.Split(meta, ";")[0]
	_, subtype, ok := strings.Cut(mime, "/")
	subtype = strings.ToLower(subtype)
	if !ok || !subtypeRe.MatchString(subtype) {
		return nil, "", invalid(fmt.Sprintf("unsupported image type %q", mime))
	}
	ext := subtype
	if mapped, ok := subtypeExt[subtype]; ok {
		ext = mapped
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", invalid("invalid base64 data")
		}
	}
	return data, ext, nil
}

func invalid(msg string) error {
	return apperr.New(apperr.ErrValidation, "invalid image: "+msg)
}

// sanitizeTitle turns a target title into a safe file name stem.
func sanitizeTitle(title string) (string, error) {
	name := unsafeNameRe.ReplaceAllString(strings.TrimSpace(title), "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		return "", invalid(fmt.Sprintf("title %q is not usable as a file name", title))
	}
	return name, nil
}
