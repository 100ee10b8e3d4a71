package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLatestTelemetryPathPicksNewestStamp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "telemetry_20231231_235959.csv", "a\n1\n")
	writeFile(t, dir, "telemetry_20240101_000000.csv", "a\n2\n")
	writeFile(t, dir, "telemetry_notastamp.csv", "a\n3\n")
	writeFile(t, dir, "other_20250101_000000.csv", "a\n4\n")

	path, err := LatestTelemetryPath(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "telemetry_20240101_000000.csv" {
		t.Fatalf("picked %s", path)
	}
}

func TestLatestTelemetryPathEmpty(t *testing.T) {
	dir := t.TempDir()
	if _, err := LatestTelemetryPath(dir); !errors.Is(err, ErrNoArchiveFiles) {
		t.Fatalf("empty dir: got %v", err)
	}
	if _, err := LatestTelemetryPath(filepath.Join(dir, "missing")); !errors.Is(err, ErrNoArchiveFiles) {
		t.Fatalf("missing dir: got %v", err)
	}
}

func TestReadLatestTelemetryTypedColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "telemetry_20240101_120000.csv",
		"label,voltage,temp,boolean_status,numeric_value\n"+
			"ok,3.3,21.5,true,42\n"+
			"bad,notanumber,,FALSE,\n")

	rows, err := ReadLatestTelemetry(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}

	first := rows[0]
	if first["label"] != "ok" || first["voltage"] != 3.3 || first["temp"] != 21.5 {
		t.Errorf("typed row wrong: %#v", first)
	}
	if first["boolean_status"] != true || first["numeric_value"] != 42.0 {
		t.Errorf("typed row wrong: %#v", first)
	}

	// Unparseable numerics fall back to the raw string.
	second := rows[1]
	if second["voltage"] != "notanumber" || second["boolean_status"] != false {
		t.Errorf("fallback row wrong: %#v", second)
	}
}

func TestWriteSnapshotRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "csv")
	snap := TelemetrySnapshot{
		RecordedAt: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		Latitude:   "51.5",
		Longitude:  "-0.1",
		Altitude:   "420.1",
		Velocity:   "27600",
	}

	path, err := WriteSnapshot(dir, snap)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "telemetry_20240601_123000.csv" {
		t.Fatalf("file name %s", path)
	}

	rows, err := ReadLatestTelemetry(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	row := rows[0]
	if row["latitude"] != "51.5" || row["velocity"] != "27600" {
		t.Errorf("row wrong: %#v", row)
	}
	if row["recorded_at"] != "2024-06-01T12:30:00Z" {
		t.Errorf("recorded_at = %v", row["recorded_at"])
	}
}

func TestExportLatest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "telemetry_20240101_000000.csv", "a,b\n1,2\n")

	name, data, err := ExportLatest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if name != "telemetry_20240101_000000.csv" {
		t.Errorf("name = %s", name)
	}
	if !strings.HasPrefix(string(data), "a,b\n") {
		t.Errorf("data = %q", data)
	}

	if _, _, err := ExportLatest(t.TempDir()); !errors.Is(err, ErrNoArchiveFiles) {
		t.Fatalf("empty dir: got %v", err)
	}
}
