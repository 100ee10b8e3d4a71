package osdr

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"cassiopeia/config"
	"cassiopeia/models"
	"cassiopeia/providers/upstream"
)

const fetchTimeout = 5 * time.Second

// Fetcher holt die OSDR-Experimentliste über den rust_iss Proxy.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *upstream.Client
}

// NewFetcher erstellt einen neuen OSDR-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		client: upstream.NewClient(fetchTimeout, logger),
	}
}

// List holt bis zu limit Einträge. limit kommt unvalidiert vom Client,
// der Upstream behandelt Unsinn selbst (bewusst nicht-strikt).
func (f *Fetcher) List(ctx context.Context, limit string) models.UpstreamResult {
	if limit == "" {
		limit = "20"
	}
	return f.client.FetchJSON(ctx, f.ListURL(limit), nil)
}

// ListURL baut die Upstream-URL; die Seiten zeigen sie als Quelle an.
func (f *Fetcher) ListURL(limit string) string {
	return f.Config.RustBase() + "/osdr/list?limit=" + url.QueryEscape(limit)
}
