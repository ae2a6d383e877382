package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/quizdy/ar-server/internal/apperr"
)

const defaultMultipartMemory = 32 << 20

var errBadBody = apperr.New(apperr.ErrValidation, "invalid request body")

// decode reads a JSON or form-encoded request body into dst. Form keys use
// the bracket notation of browser clients: venue=hall&target[no]=2.
func decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return decodeForm(r, limit, dst)
	default:
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return bodyError(err)
		}
		return nil
	}
}

func decodeForm(r *http.Request, limit int64, dst any) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if limit <= 0 {
			limit = defaultMultipartMemory
		}
		err = r.ParseMultipartForm(limit)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return bodyError(err)
	}

	switch req := dst.(type) {
	case *VenueRequest:
		req.Venue = r.PostForm.Get("venue")
	case *TargetRequest:
		req.Venue = r.PostForm.Get("venue")
		return fillTarget(req, func(k string) (string, bool) {
			vs, ok := r.PostForm["target["+k+"]"]
			if !ok || len(vs) == 0 {
				return "", false
			}
			return vs[0], true
		})
	}
	return nil
}

func fillTarget(req *TargetRequest, field func(string) (string, bool)) error {
	in := &req.Target
	if s, ok := field("no"); ok && s != "" {
		no, err := strconv.Atoi(s)
		if err != nil {
			return apperr.New(apperr.ErrValidation, "invalid target no")
		}
		in.No = &no
	}
	for _, f := range []struct {
		key string
		dst *float64
	}{{"lat", &in.Lat}, {"lng", &in.Lng}} {
		s, ok := field(f.key)
		if !ok || s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return apperr.New(apperr.ErrValidation, "invalid target "+f.key)
		}
		*f.dst = v
	}
	in.Title, _ = field("title")
	in.Image, _ = field("image")
	in.Pic, _ = field("pic")
	in.Comments, _ = field("comments")
	if s, ok := field("base64"); ok {
		in.Base64 = &s
	}
	return nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return errors.Join(errBadBody, err)
}
