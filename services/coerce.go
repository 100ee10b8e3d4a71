package services

import (
	"math"
	"strconv"
)

// Coerce sichert jede Upstream-Grenze ab: alles, was kein JSON-Objekt oder
// -Array ist, wird zu einem leeren Objekt. Nachgelagerter Code darf danach
// nie mehr auf einem Skalar als Objekt arbeiten.
func Coerce(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		return v
	default:
		return map[string]any{}
	}
}

// stringify rendert skalare JSON-Werte als Text. Ganzzahlige Werte kommen
// ohne Dezimalstellen (Upstreams liefern IDs mal als Zahl, mal als String).
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatFloat(t, 'f', 0, 64)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
