package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/quizdy/ar-server/internal/imagewriter"
	"github.com/quizdy/ar-server/internal/models"
	"github.com/quizdy/ar-server/internal/testutil"
	"github.com/quizdy/ar-server/internal/venuestore"
	"github.com/quizdy/ar-server/internal/venueservice"
)

const pngPayload = "data:image/png;base64,iVBORw0KGgo="

type testServer struct {
	router    http.Handler
	venuesDir string
	imagesDir string
}

// testEnv sets up temp venue and image roots, the service, and a router
// shaped like the production one: CORS, the API and /images.
func testEnv(t *testing.T, bodyLimit int64) *testServer {
	t.Helper()
	venuesDir, imagesDir, venues, images := testutil.TestRoots(t)
	svc := venueservice.NewService(venuestore.New(venues, images, nil), imagewriter.New(images))

	r := chi.NewRouter()
	r.Use(CORS(CORSOptions{}))
	r.Mount("/api", NewRouter(svc, bodyLimit, nil))
	MountImages(r, NewImageHandler(images))
	return &testServer{router: r, venuesDir: venuesDir, imagesDir: imagesDir}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		raw, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) form(t *testing.T, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return res
}

func decodeVenue(t *testing.T, w *httptest.ResponseRecorder) models.Venue {
	t.Helper()
	var v models.Venue
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestListVenues_NoDirectory(t *testing.T) {
	s := testEnv(t, 0)
	w := s.do(t, http.MethodGet, "/api/venues", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"venues":[]}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestVenueLifecycle(t *testing.T) {
	s := testEnv(t, 0)

	w := s.do(t, http.MethodPost, "/api/update-venue", map[string]string{"venue": "hall"})
	if w.Code != http.StatusOK {
		t.Fatalf("update-venue = %d, body = %s", w.Code, w.Body.String())
	}
	if res := decodeResult(t, w); !res.Ret || res.Msg != "success" {
		t.Errorf("result = %+v", res)
	}

	w = s.do(t, http.MethodGet, "/api/venues", nil)
	var list VenuesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Venues) != 1 || list.Venues[0] != "hall" {
		t.Errorf("venues = %v", list.Venues)
	}

	w = s.do(t, http.MethodGet, "/api/targets?venue=hall", nil)
	if !strings.Contains(w.Body.String(), `"targets":[]`) {
		t.Errorf("new venue body = %s", w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/delete-venue", map[string]string{"venue": "hall"})
	if w.Code != http.StatusOK {
		t.Fatalf("delete-venue = %d", w.Code)
	}
	w = s.do(t, http.MethodPost, "/api/delete-venue", map[string]string{"venue": "hall"})
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete-venue = %d, want 404", w.Code)
	}
	if res := decodeResult(t, w); res.Ret || res.Msg != "not found venue" {
		t.Errorf("result = %+v", res)
	}
}

func TestUpdateVenue_InvalidName(t *testing.T) {
	s := testEnv(t, 0)
	for _, name := range []string{"", "../etc", ".hidden"} {
		w := s.do(t, http.MethodPost, "/api/update-venue", map[string]string{"venue": name})
		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", name, w.Code)
		}
		if res := decodeResult(t, w); res.Ret {
			t.Errorf("%q: ret = true", name)
		}
	}
	if _, err := os.Stat(s.venuesDir); !os.IsNotExist(err) {
		t.Errorf("venues dir created for rejected names: %v", err)
	}
}

func TestUpdateVenue_InvalidJSON(t *testing.T) {
	s := testEnv(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/update-venue", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if res := decodeResult(t, w); res.Msg != "invalid request body" {
		t.Errorf("msg = %q", res.Msg)
	}
}

func TestGetTargets_Defaults(t *testing.T) {
	s := testEnv(t, 0)
	for _, path := range []string{"/api/targets", "/api/targets?venue=unknown"} {
		w := s.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, w.Code)
		}
		v := decodeVenue(t, w)
		if v.Venue != "" || v.Targets == nil || len(v.Targets) != 0 {
			t.Errorf("%s: venue = %+v", path, v)
		}
	}
}

func TestGetTargets_TraversalRejected(t *testing.T) {
	s := testEnv(t, 0)
	w := s.do(t, http.MethodGet, "/api/targets?venue="+url.QueryEscape("../secret"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateTarget_RoundTrip(t *testing.T) {
	s := testEnv(t, 0)
	s.do(t, http.MethodPost, "/api/update-venue", map[string]string{"venue": "hall"})

	w := s.do(t, http.MethodPost, "/api/update-target", map[string]any{
		"venue": "hall",
		"target": map[string]any{
			"title": "spot", "lat": 35.5, "lng": 139.25, "comments": "north door", "base64": pngPayload,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update-target = %d, body = %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/targets?venue=hall", nil)
	v := decodeVenue(t, w)
	if len(v.Targets) != 1 {
		t.Fatalf("targets = %+v", v.Targets)
	}
	got := v.Targets[0]
	if got.No != 1 || got.Title != "spot" || got.Lat != 35.5 || got.Image != "/images/hall/spot.png" || got.Comments != "north door" {
		t.Errorf("target = %+v", got)
	}
	if strings.Contains(w.Body.String(), "base64") {
		t.Error("payload leaked into the stored document")
	}

	img := s.do(t, http.MethodGet, got.Image, nil)
	if img.Code != http.StatusOK || img.Body.Len() == 0 {
		t.Errorf("GET %s = %d (%d bytes)", got.Image, img.Code, img.Body.Len())
	}
}

func TestUpdateTarget_FormEncoded(t *testing.T) {
	s := testEnv(t, 0)
	s.form(t, "/api/update-venue", url.Values{"venue": {"hall"}})

	w := s.form(t, "/api/update-target", url.Values{
		"venue":            {"hall"},
		"target[title]":    {"gate"},
		"target[lat]":      {"1.5"},
		"target[lng]":      {"-2.25"},
		"target[comments]": {"c"},
		"target[base64]":   {pngPayload},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update-target = %d, body = %s", w.Code, w.Body.String())
	}

	w = s.form(t, "/api/update-target", url.Values{
		"venue":         {"hall"},
		"target[no]":    {"1"},
		"target[title]": {"gate"},
		"target[lat]":   {"3"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("overwrite = %d, body = %s", w.Code, w.Body.String())
	}

	v := decodeVenue(t, s.do(t, http.MethodGet, "/api/targets?venue=hall", nil))
	if len(v.Targets) != 1 || v.Targets[0].Lat != 3 || v.Targets[0].Image != "/images/hall/gate.png" {
		t.Errorf("targets = %+v", v.Targets)
	}

	w = s.form(t, "/api/update-target", url.Values{"venue": {"hall"}, "target[no]": {"x"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad no = %d, want 400", w.Code)
	}
}

func TestUpdateTarget_PicAlias(t *testing.T) {
	s := testEnv(t, 0)
	s.do(t, http.MethodPost, "/api/update-venue", map[string]string{"venue": "hall"})
	w := s.do(t, http.MethodPost, "/api/update-target", map[string]any{
		"venue":  "hall",
		"target": map[string]any{"title": "old", "pic": "/images/hall/old.jpg"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update-target = %d, body = %s", w.Code, w.Body.String())
	}
	v := decodeVenue(t, s.do(t, http.MethodGet, "/api/targets?venue=hall", nil))
	if len(v.Targets) != 1 || v.Targets[0].Image != "/images/hall/old.jpg" {
		t.Errorf("targets = %+v", v.Targets)
	}
}

func TestUpdateTarget_Failures(t *testing.T) {
	s := testEnv(t, 0)
	s.do(t, http.MethodPost, "/api/update-venue", map[string]string{"venue": "hall"})

	tests := []struct {
		name   string
		body   map[string]any
		status int
		msg    string
	}{
		{
			name:   "unknown venue",
			body:   map[string]any{"venue": "ghost", "target": map[string]any{"title": "a", "base64": pngPayload}},
			status: http.StatusNotFound,
			msg:    "no exist venue",
		},
		{
			name:   "no image",
			body:   map[string]any{"venue": "hall", "target": map[string]any{"title": "a"}},
			status: http.StatusBadRequest,
			msg:    "failed to write image",
		},
		{
			name:   "not an image payload",
			body:   map[string]any{"venue": "hall", "target": map[string]any{"title": "a", "base64": "hello"}},
			status: http.StatusBadRequest,
			msg:    "failed to write image",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/update-target", tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if res := decodeResult(t, w); res.Ret || res.Msg != tt.msg {
				t.Errorf("result = %+v", res)
			}
		})
	}

	v := decodeVenue(t, s.do(t, http.MethodGet, "/api/targets?venue=hall", nil))
	if len(v.Targets) != 0 {
		t.Errorf("failed updates persisted: %+v", v.Targets)
	}
}

func TestDeleteTarget(t *testing.T) {
	s := testEnv(t, 0)
	s.do(t, http.MethodPost, "/api/update-venue", map[string]string{"venue": "hall"})
	for _, title := range []string{"a", "b"} {
		s.do(t, http.MethodPost, "/api/update-target", map[string]any{
			"venue": "hall", "target": map[string]any{"title": title, "base64": pngPayload},
		})
	}

	w := s.do(t, http.MethodPost, "/api/delete-target", map[string]any{"venue": "hall", "target": map[string]any{"no": 1}})
	if w.Code != http.StatusOK {
		t.Fatalf("delete-target = %d, body = %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(s.imagesDir, "hall", "a.png")); !os.IsNotExist(err) {
		t.Errorf("image not removed: %v", err)
	}

	v := decodeVenue(t, s.do(t, http.MethodGet, "/api/targets?venue=hall", nil))
	if len(v.Targets) != 1 || v.Targets[0].No != 2 {
		t.Errorf("targets = %+v", v.Targets)
	}

	w = s.do(t, http.MethodPost, "/api/delete-target", map[string]any{"venue": "hall", "target": map[string]any{"no": 9}})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing target = %d, want 404", w.Code)
	}
	if res := decodeResult(t, w); res.Msg != "no exist target" {
		t.Errorf("msg = %q", res.Msg)
	}

	w = s.do(t, http.MethodPost, "/api/delete-target", map[string]any{"venue": "hall", "target": map[string]any{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing no = %d, want 400", w.Code)
	}
}

func TestGetTargets_ETag(t *testing.T) {
	s := testEnv(t, 0)
	s.do(t, http.MethodPost, "/api/update-venue", map[string]string{"venue": "hall"})

	w := s.do(t, http.MethodGet, "/api/targets?venue=hall", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/targets?venue=hall", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Errorf("cached = %d, want 304", w.Code)
	}

	s.do(t, http.MethodPost, "/api/update-target", map[string]any{
		"venue": "hall", "target": map[string]any{"title": "a", "base64": pngPayload},
	})
	req = httptest.NewRequest(http.MethodGet, "/api/targets?venue=hall", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("after change = %d, want 200", w.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	s := testEnv(t, 64)
	w := s.do(t, http.MethodPost, "/api/update-venue", map[string]string{"venue": strings.Repeat("x", 200)})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestCORS(t *testing.T) {
	s := testEnv(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/update-target", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Errorf("allow-headers = %q", got)
	}

	w = s.do(t, http.MethodGet, "/api/venues", nil)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("GET missing CORS header")
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	h := CORS(CORSOptions{AllowedOrigins: []string{"https://app.test"}})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for origin, want := range map[string]string{
		"https://app.test":  "https://app.test",
		"https://evil.test": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("%s: allow-origin = %q, want %q", origin, got, want)
		}
	}
}

func TestServeImage_NotFoundAndTraversal(t *testing.T) {
	s := testEnv(t, 0)
	for _, path := range []string{
		"/images/hall/nope.png",
		"/images/../venues/hall.json",
		"/images/hall/..%2F..%2Fsecret",
		"/images/.hidden/a.png",
	} {
		w := s.do(t, http.MethodGet, path, nil)
		if w.Code == http.StatusOK {
			t.Errorf("%s should not return 200", path)
		}
	}
}
