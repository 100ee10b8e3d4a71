package iss

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cassiopeia/config"
	"cassiopeia/models"
	"cassiopeia/providers/upstream"
)

// Dashboard-Polling verträgt keine langen Wartezeiten.
const fetchTimeout = 5 * time.Second

// Fetcher kapselt die Zugriffe auf den rust_iss Telemetrie-Upstream.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *upstream.Client
}

// NewFetcher erstellt einen neuen ISS-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		client: upstream.NewClient(fetchTimeout, logger),
	}
}

// Last holt die letzte bekannte ISS-Position.
func (f *Fetcher) Last(ctx context.Context) models.UpstreamResult {
	return f.client.FetchJSON(ctx, f.Config.RustBase()+"/last", nil)
}

// Trend holt die Bewegungs-Trenddaten. rawQuery wird unverändert angehängt.
func (f *Fetcher) Trend(ctx context.Context, rawQuery string) models.UpstreamResult {
	url := f.Config.RustBase() + "/iss/trend"
	if rawQuery != "" {
		url += "?" + rawQuery
	}
	return f.client.FetchJSON(ctx, url, nil)
}

// PipeLast spiegelt /last im Passthrough-Modus.
func (f *Fetcher) PipeLast(ctx context.Context) any {
	return f.client.ProxyRaw(ctx, f.Config.RustBase()+"/last")
}

// PipeTrend spiegelt /iss/trend im Passthrough-Modus.
func (f *Fetcher) PipeTrend(ctx context.Context, rawQuery string) any {
	url := f.Config.RustBase() + "/iss/trend"
	if rawQuery != "" {
		url += "?" + rawQuery
	}
	return f.client.ProxyRaw(ctx, url)
}
