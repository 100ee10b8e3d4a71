package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cassiopeia/models"
	"cassiopeia/storage"
)

// LastFetcher liefert die letzte ISS-Position. Schmal gehalten, damit Tests
// einen Fake unterschieben können.
type LastFetcher interface {
	Last(ctx context.Context) models.UpstreamResult
}

// SnapshotRecorder schreibt periodisch ISS-Positionen als telemetry_*.csv
// ins Archivverzeichnis, die Produzentenseite der Legacy-Endpoints.
type SnapshotRecorder struct {
	Dir     string
	Fetcher LastFetcher
	Logger  *zap.Logger
}

// NewSnapshotRecorder erstellt einen neuen Recorder.
func NewSnapshotRecorder(dir string, fetcher LastFetcher, logger *zap.Logger) *SnapshotRecorder {
	return &SnapshotRecorder{Dir: dir, Fetcher: fetcher, Logger: logger}
}

// Run holt eine Position und legt eine Snapshot-Datei an. Ein nicht
// erreichbarer Upstream ist ein gewöhnlicher Fehler, kein Absturz; der
// nächste Cron-Lauf versucht es erneut.
func (r *SnapshotRecorder) Run(ctx context.Context) (string, error) {
	res := r.Fetcher.Last(ctx)
	if !res.OK {
		return "", fmt.Errorf("iss upstream unavailable: %s", res.ErrorMessage)
	}

	body, _ := res.Body.(map[string]any)
	payload, _ := Coerce(body["payload"]).(map[string]any)

	snap := storage.TelemetrySnapshot{
		RecordedAt: time.Now(),
		Latitude:   stringify(payload["latitude"]),
		Longitude:  stringify(payload["longitude"]),
		Altitude:   stringify(payload["altitude"]),
		Velocity:   stringify(payload["velocity"]),
	}
	path, err := storage.WriteSnapshot(r.Dir, snap)
	if err != nil {
		return "", err
	}
	r.Logger.Debug("Snapshot geschrieben", zap.String("file", path))
	return path, nil
}
