package services

import (
	"sort"

	"cassiopeia/models"
)

// CollectEvents durchsucht einen beliebigen JSON-Baum nach ereignisartigen
// Objekten und normalisiert sie in eine feste Form. Ein Objekt zählt als
// Ereignis, wenn es sowohl ein Typ-Feld (type/event_type/category) als auch
// ein Subjekt-Feld (name/body/object/target) trägt.
//
// Qualifizierende Knoten werden trotzdem weiter durchlaufen; verschachtelte
// Ereignisse erscheinen zusätzlich im Ergebnis. Keine Deduplizierung, keine
// Sortierung; Aufrufer kappen die Liste fürs Rendern selbst.
func CollectEvents(tree any) []models.NormalizedEvent {
	var events []models.NormalizedEvent

	// Expliziter Stack statt Rekursion: die Tiefe des Inputs darf den
	// Call-Stack nicht sprengen. Knoten vor Kindern, Objektschlüssel
	// sortiert (dekodierte Maps haben keine Eingabereihenfolge mehr).
	stack := []any{tree}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch t := node.(type) {
		case []any:
			for i := len(t) - 1; i >= 0; i-- {
				stack = append(stack, t[i])
			}
		case map[string]any:
			if looksEvent(t) {
				events = append(events, normalizeEvent(t))
			}
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for i := len(keys) - 1; i >= 0; i-- {
				stack = append(stack, t[keys[i]])
			}
		}
	}
	return events
}

func looksEvent(m map[string]any) bool {
	return coalesce(m, "type", "event_type", "category") != "" &&
		coalesce(m, "name", "body", "object", "target") != ""
}

// normalizeEvent koalesziert die wechselnden Quell-Feldnamen, erster
// nicht-leerer Treffer gewinnt.
func normalizeEvent(m map[string]any) models.NormalizedEvent {
	return models.NormalizedEvent{
		Name:  coalesce(m, "name", "body", "object", "target"),
		Type:  coalesce(m, "type", "event_type", "category", "kind"),
		When:  coalesce(m, "time", "date", "occursAt", "peak", "instant"),
		Extra: coalesce(m, "magnitude", "mag", "altitude", "note"),
	}
}

func coalesce(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringify(m[k]); s != "" {
			return s
		}
	}
	return ""
}
