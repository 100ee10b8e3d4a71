package astro

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"cassiopeia/config"
)

// Die Events-API rechnet serverseitig Ephemeriden und braucht deutlich
// länger als die Dashboard-Upstreams.
const fetchTimeout = 25 * time.Second

// ErrMissingCredentials zeigt fehlende ASTRO_APP_ID/ASTRO_APP_SECRET an.
// Das ist ein Konfigurationsfehler und wird als HTTP 500 sichtbar.
var ErrMissingCredentials = errors.New("missing ASTRO_APP_ID/ASTRO_APP_SECRET")

// Fetcher kapselt die Zugriffe auf die Astronomy-Events-API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	http   *http.Client
}

// NewFetcher erstellt einen neuen Astro-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		http:   &http.Client{Timeout: fetchTimeout},
	}
}

// Events holt Himmelsereignisse für einen Beobachterstandort im Fenster
// heute..heute+days. Der zweite Rückgabewert ist der HTTP-Status, mit dem
// der eigene Handler antworten soll: 200 bei Erfolg, 403 mit
// {error, code, raw} wenn der Upstream ablehnt oder nicht erreichbar ist.
func (f *Fetcher) Events(ctx context.Context, lat, lon float64, days int) (int, any, error) {
	if f.Config.AstroAppID == "" || f.Config.AstroAppSecret == "" {
		return 0, nil, ErrMissingCredentials
	}

	from := time.Now().UTC().Format("2006-01-02")
	to := time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", lat))
	q.Set("longitude", fmt.Sprintf("%g", lon))
	q.Set("from", from)
	q.Set("to", to)
	reqURL := strings.TrimRight(f.Config.AstroBaseURL, "/") + "/api/v2/bodies/events?" + q.Encode()

	auth := base64.StdEncoding.EncodeToString([]byte(f.Config.AstroAppID + ":" + f.Config.AstroAppSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return http.StatusForbidden, errBody(err.Error(), 500, nil), nil
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "cassiopeia-web/1.0")

	resp, err := f.http.Do(req)
	if err != nil {
		f.Logger.Warn("Astro-API nicht erreichbar", zap.Error(err))
		return http.StatusForbidden, errBody(err.Error(), 500, nil), nil
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		body = nil
	}

	if resp.StatusCode >= 400 {
		f.Logger.Warn("Astro-API lehnt ab", zap.Int("status", resp.StatusCode))
		return http.StatusForbidden, errBody(fmt.Sprintf("HTTP %d", resp.StatusCode), resp.StatusCode, body), nil
	}

	if body == nil {
		body = map[string]any{"raw": string(data)}
	}
	return http.StatusOK, body, nil
}

// errBody ist die Fehlerform {error, code, raw} der Events-Schnittstelle.
func errBody(msg string, code int, raw any) map[string]any {
	return map[string]any{"error": msg, "code": code, "raw": raw}
}
