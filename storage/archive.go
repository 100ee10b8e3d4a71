package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoArchiveFiles zeigt ein leeres Archiv an. Die Legacy-Endpoints machen
// daraus ein 404, im Gegensatz zu Upstream-Ausfällen, die leise degradieren.
var ErrNoArchiveFiles = errors.New("no telemetry csv files found")

// Dateinamensschema: telemetry_<YYYYMMDD_HHMMSS>.csv
var fileStampRe = regexp.MustCompile(`_(\d{8}_\d{6})\.csv$`)

const snapshotStampLayout = "20060102_150405"

// Spalten, die beim Parsen typisiert werden. Alles andere bleibt String.
var (
	floatColumns = map[string]bool{"voltage": true, "temp": true, "numeric_value": true}
	boolColumns  = map[string]bool{"boolean_status": true}
)

// TelemetrySnapshot ist eine einzelne aufgezeichnete ISS-Position.
// Die Werte kommen aus dem Upstream-JSON und werden unverändert abgelegt.
type TelemetrySnapshot struct {
	RecordedAt time.Time
	Latitude   string
	Longitude  string
	Altitude   string
	Velocity   string
}

// LatestTelemetryPath wählt die Archivdatei mit dem jüngsten im Dateinamen
// kodierten Zeitstempel. Bewusst nicht mtime: der eingebettete Stempel ist
// die dokumentierte Auswahlregel, auch wenn Dateien umbenannt wurden.
func LatestTelemetryPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoArchiveFiles
		}
		return "", err
	}

	best, bestStamp := "", ""
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "telemetry_") {
			continue
		}
		m := fileStampRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if m[1] > bestStamp {
			best, bestStamp = name, m[1]
		}
	}
	if best == "" {
		return "", ErrNoArchiveFiles
	}
	return filepath.Join(dir, best), nil
}

// ReadLatestTelemetry parst Header und Zeilen der jüngsten Archivdatei.
// Bekannte Spalten werden typisiert (voltage/temp/numeric_value als Zahl,
// boolean_status als Bool), unbekannte bleiben Strings.
func ReadLatestTelemetry(dir string) ([]map[string]any, error) {
	path, err := LatestTelemetryPath(dir)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return []map[string]any{}, nil
	}

	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			var val string
			if i < len(rec) {
				val = rec[i]
			}
			switch {
			case floatColumns[col]:
				if n, err := strconv.ParseFloat(val, 64); err == nil {
					row[col] = n
				} else {
					row[col] = val
				}
			case boolColumns[col]:
				row[col] = strings.EqualFold(val, "true")
			default:
				row[col] = val
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ExportLatest liefert Name und Rohinhalt der jüngsten Archivdatei für den
// Download-Endpoint.
func ExportLatest(dir string) (string, []byte, error) {
	path, err := LatestTelemetryPath(dir)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(path), data, nil
}

// WriteSnapshot legt eine neue Archivdatei für den Zeitpunkt der Aufnahme
// an und gibt ihren Pfad zurück.
func WriteSnapshot(dir string, snap TelemetrySnapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("telemetry_%s.csv", snap.RecordedAt.UTC().Format(snapshotStampLayout))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"recorded_at", "latitude", "longitude", "altitude", "velocity"}); err != nil {
		return "", err
	}
	row := []string{
		snap.RecordedAt.UTC().Format(time.RFC3339),
		snap.Latitude,
		snap.Longitude,
		snap.Altitude,
		snap.Velocity,
	}
	if err := w.Write(row); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}
