package services

import (
	"sort"
	"strings"

	"cassiopeia/models"
)

// FlattenRecords wandelt OSDR-Zeilen in eine flache, einheitliche Liste.
// Dictionary-förmige raw-Objekte ({"OSD-1": {...}, "OSD-2": {...}}) werden
// pro Schlüssel/Wert-Paar aufgefaltet, alle anderen Zeilen werden
// durchgereicht und bekommen nur die REST-URL angehängt, falls vorhanden.
func FlattenRecords(rows []any) []models.FlatRecord {
	out := make([]models.FlatRecord, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		raw, _ := row["raw"].(map[string]any)

		if raw != nil && looksDatasetDict(raw) {
			// Dekodierte Maps haben keine Reihenfolge mehr; sortierte
			// Schlüssel halten die Ausgabe stabil.
			keys := make([]string, 0, len(raw))
			for k := range raw {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				v, ok := raw[k].(map[string]any)
				if !ok {
					// Skalare Werte tragen keinen Datensatz.
					continue
				}
				rest := restURLOf(v)
				title := stringify(v["title"])
				if title == "" {
					title = stringify(v["name"])
				}
				if title == "" && rest != "" {
					title = lastPathSegment(rest)
				}
				out = append(out, models.FlatRecord{
					ID:         row["id"],
					DatasetID:  k,
					Title:      title,
					Status:     stringify(row["status"]),
					UpdatedAt:  stringify(row["updated_at"]),
					InsertedAt: stringify(row["inserted_at"]),
					RestURL:    rest,
					Raw:        v,
				})
			}
			continue
		}

		rest := ""
		if raw != nil {
			rest = restURLOf(raw)
		}
		out = append(out, models.FlatRecord{
			ID:         row["id"],
			Title:      stringify(row["title"]),
			Status:     stringify(row["status"]),
			UpdatedAt:  stringify(row["updated_at"]),
			InsertedAt: stringify(row["inserted_at"]),
			RestURL:    rest,
			Raw:        row["raw"],
		})
	}
	return out
}

// looksDatasetDict erkennt Dictionary-förmige Antworten: ein Schlüssel mit
// "OSD-"-Präfix ODER ein Wert, der eine REST-URL trägt. Beides kommt vor,
// je nachdem wie der Upstream die Datensätze verpackt.
func looksDatasetDict(raw map[string]any) bool {
	for k, v := range raw {
		if strings.HasPrefix(k, "OSD-") {
			return true
		}
		if m, ok := v.(map[string]any); ok {
			if _, has := m["REST_URL"]; has {
				return true
			}
			if _, has := m["rest_url"]; has {
				return true
			}
		}
	}
	return false
}

// restURLOf liefert die REST-URL eines Datensatzes, erster Treffer gewinnt.
func restURLOf(m map[string]any) string {
	for _, k := range []string{"REST_URL", "rest_url", "rest"} {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// lastPathSegment holt das letzte nicht-leere Pfadsegment als Ersatztitel.
func lastPathSegment(u string) string {
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
