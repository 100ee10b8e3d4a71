package jwst

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"cassiopeia/config"
	"cassiopeia/models"
	"cassiopeia/providers/upstream"
)

// Der Bildkatalog ist träge; Galerie-Abrufe dürfen länger warten.
const fetchTimeout = 30 * time.Second

// Fetcher kapselt die Zugriffe auf den JWST-Bildkatalog.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *upstream.Client
}

// NewFetcher erstellt einen neuen JWST-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		client: upstream.NewClient(fetchTimeout, logger),
	}
}

// Get holt eine Katalogseite. path kommt aus FeedPath, page/perPage sind
// bereits validiert.
func (f *Fetcher) Get(ctx context.Context, path string, page, perPage int) models.UpstreamResult {
	host := strings.TrimRight(f.Config.JWSTHost, "/")
	u := fmt.Sprintf("%s/%s?page=%d&perPage=%d", host, strings.TrimLeft(path, "/"), page, perPage)

	headers := map[string]string{"x-api-key": f.Config.JWSTAPIKey}
	if f.Config.JWSTEmail != "" {
		headers["email"] = f.Config.JWSTEmail
	}
	return f.client.FetchJSON(ctx, u, headers)
}

// FeedPath übersetzt den source-Selektor der Feed-API in einen Katalogpfad.
// Default ist die JPG-Liste; suffix und program wählen engere Ausschnitte.
func FeedPath(source, suffix, program string) string {
	switch source {
	case "suffix":
		if s := strings.TrimLeft(strings.TrimSpace(suffix), "/"); s != "" {
			return "all/suffix/" + s
		}
	case "program":
		if p := strings.TrimSpace(program); p != "" {
			return "program/id/" + url.PathEscape(p)
		}
	}
	return "all/type/jpg"
}
