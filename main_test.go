package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cassiopeia/config"
	"cassiopeia/providers/astro"
	"cassiopeia/providers/iss"
	"cassiopeia/providers/jwst"
	"cassiopeia/providers/osdr"
)

func newTestRouter(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		HTTPPort:         "8080",
		RustAPIURL:       "http://127.0.0.1:1", // refused unless a test overrides it
		JWSTHost:         "http://127.0.0.1:1",
		AstroBaseURL:     "http://127.0.0.1:1",
		DefaultLatitude:  55.7558,
		DefaultLongitude: 37.6176,
		CSVOutDir:        t.TempDir(),
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger := zap.NewNop()
	return buildRouter(cfg, logger,
		iss.NewFetcher(cfg, logger),
		osdr.NewFetcher(cfg, logger),
		jwst.NewFetcher(cfg, logger),
		astro.NewFetcher(cfg, logger),
	)
}

func doRequest(router *gin.Engine, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDashboardRendersOnUpstreamFailure(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite dead upstream", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Космический Дашборд") {
		t.Errorf("page body missing heading")
	}
}

func TestRootRedirectsToDashboard(t *testing.T) {
	router := newTestRouter(t, nil)
	w := doRequest(router, http.MethodGet, "/", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("got %d -> %q", w.Code, w.Header().Get("Location"))
	}
}

func TestIssLastPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/last" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"payload":{"latitude":51.5}}`))
	}))
	defer srv.Close()

	router := newTestRouter(t, func(cfg *config.Config) { cfg.RustAPIURL = srv.URL })

	w := doRequest(router, http.MethodGet, "/api/iss/last", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	payload, _ := body["payload"].(map[string]any)
	if payload["latitude"] != 51.5 {
		t.Errorf("body = %#v", body)
	}
}

func TestIssLastPassthroughUpstreamDown(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/api/iss/last", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, passthrough must stay 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "upstream" {
		t.Errorf("body = %#v", body)
	}
}

func TestJwstFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/all/type/jpg" {
			t.Errorf("catalog path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"body":[
			{"location":"http://x/a.jpg","observation_id":"obs-1","program":101,
			 "details":{"suffix":"_i2d","instruments":[{"instrument":"nircam"}]}},
			{"location":"http://x/skip.fits"}
		]}`))
	}))
	defer srv.Close()

	router := newTestRouter(t, func(cfg *config.Config) { cfg.JWSTHost = srv.URL })

	w := doRequest(router, http.MethodGet, "/api/jwst/feed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Source string `json:"source"`
		Count  int    `json:"count"`
		Items  []struct {
			URL     string `json:"url"`
			Caption string `json:"caption"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Source != "all/type/jpg" || body.Count != 1 || len(body.Items) != 1 {
		t.Fatalf("feed = %+v", body)
	}
	if body.Items[0].URL != "http://x/a.jpg" {
		t.Errorf("item = %+v", body.Items[0])
	}
	if body.Items[0].Caption != "obs-1 · P101 · _i2d · NIRCAM" {
		t.Errorf("caption = %q", body.Items[0].Caption)
	}
}

func TestJwstFeedUpstreamFailure(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/api/jwst/feed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, feed failure must stay 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["source"] != "error" || body["count"] != 0.0 {
		t.Errorf("body = %#v", body)
	}
	if items, ok := body["items"].([]any); !ok || len(items) != 0 {
		t.Errorf("items = %#v", body["items"])
	}
}

func TestAstroEventsMissingCredentials(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/api/astro/events", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "Missing ASTRO_APP_ID/ASTRO_APP_SECRET" {
		t.Errorf("body = %#v", body)
	}
}

func TestLegacyDataEmptyArchive(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/api/legacy/data", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "No CSV files found." {
		t.Errorf("body = %#v", body)
	}
}

func TestLegacyDataAndExport(t *testing.T) {
	dir := ""
	router := newTestRouter(t, func(cfg *config.Config) { dir = cfg.CSVOutDir })

	csv := "label,voltage\nok,3.3\n"
	if err := os.WriteFile(filepath.Join(dir, "telemetry_20240101_000000.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	w := doRequest(router, http.MethodGet, "/api/legacy/data", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("data status = %d", w.Code)
	}
	var rows []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["voltage"] != 3.3 {
		t.Errorf("rows = %#v", rows)
	}

	w = doRequest(router, http.MethodGet, "/api/legacy/export.csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "telemetry_20240101_000000.csv") {
		t.Errorf("disposition = %q", cd)
	}
	if w.Body.String() != csv {
		t.Errorf("export body = %q", w.Body.String())
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	router := newTestRouter(t, func(cfg *config.Config) { cfg.APISecretKey = "s3cret" })

	w := doRequest(router, http.MethodGet, "/api/legacy/data", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("without key: status = %d, want 401", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/legacy/data", map[string]string{"X-API-KEY": "s3cret"})
	if w.Code == http.StatusUnauthorized {
		t.Fatalf("with key: still 401")
	}

	// Pages stay open regardless of the API key.
	w = doRequest(router, http.MethodGet, "/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("page status = %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, nil)
	w := doRequest(router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %#v", body)
	}
}

func TestOsdrPageFlattensDictionary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/osdr/list" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`{"items":[
			{"id":1,"raw":{"OSD-1":{"title":"Mouse study","REST_URL":"http://x/1/"}}}
		]}`))
	}))
	defer srv.Close()

	router := newTestRouter(t, func(cfg *config.Config) { cfg.RustAPIURL = srv.URL })

	w := doRequest(router, http.MethodGet, "/osdr?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Mouse study") {
		t.Errorf("flattened title missing from page")
	}
}
