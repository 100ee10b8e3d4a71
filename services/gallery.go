package services

import (
	"regexp"
	"sort"
	"strings"

	"cassiopeia/models"
)

var (
	// Direkte Kandidatenfelder: Bild-Endung reicht, Query-String erlaubt.
	imageExtRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png)(\?.*)?$`)
	// Der Deep-Scan ist verlustbehaftet und verlangt deshalb eine volle URL.
	imageURLRe = regexp.MustCompile(`(?i)^https?://.*\.(jpg|jpeg|png)$`)
)

// PickImageURL sucht die erste brauchbare Bild-URL eines Katalogeintrags.
// Direkte Felder (location/url, dann thumbnail) sind autoritativ; erst wenn
// keines passt, wird die gesamte Struktur durchsucht. Leerer String = kein
// Treffer, der Eintrag wird dann verworfen statt einen Fehler zu melden.
func PickImageURL(record any) string {
	m, ok := record.(map[string]any)
	if !ok {
		return ""
	}
	loc, _ := m["location"].(string)
	if loc == "" {
		loc, _ = m["url"].(string)
	}
	thumb, _ := m["thumbnail"].(string)
	for _, cand := range []string{loc, thumb} {
		if cand != "" && imageExtRe.MatchString(cand) {
			return cand
		}
	}
	return deepImageScan(m)
}

// deepImageScan läuft die Struktur mit einem expliziten Stack ab, damit
// beliebig tiefe Verschachtelung den Call-Stack nicht sprengt. Strings des
// aktuellen Knotens werden vor den Kindern geprüft, Container landen auf
// dem Stack (zuletzt gemerkt, zuerst untersucht).
func deepImageScan(root any) string {
	stack := []any{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch t := node.(type) {
		case []any:
			for _, v := range t {
				if s, ok := v.(string); ok && imageURLRe.MatchString(s) {
					return s
				}
				switch v.(type) {
				case map[string]any, []any:
					stack = append(stack, v)
				}
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				v := t[k]
				if s, ok := v.(string); ok && imageURLRe.MatchString(s) {
					return s
				}
				switch v.(type) {
				case map[string]any, []any:
					stack = append(stack, v)
				}
			}
		}
	}
	return ""
}

// BuildGalleryItems normalisiert eine Katalogliste zu Galerie-Einträgen.
// Einträge ohne brauchbare Bild-URL werden stillschweigend verworfen;
// instrument filtert optional auf Instrumentnamen, perPage begrenzt das
// Ergebnis.
func BuildGalleryItems(list []any, instrument string, perPage int) []models.GalleryItem {
	instF := strings.ToUpper(strings.TrimSpace(instrument))
	items := make([]models.GalleryItem, 0, len(list))

	for _, e := range list {
		it, ok := e.(map[string]any)
		if !ok {
			continue
		}
		imgURL := PickImageURL(it)
		if imgURL == "" {
			continue
		}

		details, _ := it["details"].(map[string]any)

		insts := []string{}
		if details != nil {
			if arr, ok := details["instruments"].([]any); ok {
				for _, iv := range arr {
					im, ok := iv.(map[string]any)
					if !ok {
						continue
					}
					if name, ok := im["instrument"].(string); ok && name != "" {
						insts = append(insts, strings.ToUpper(name))
					}
				}
			}
		}
		// Der Filter greift nur, wenn der Eintrag Instrumente nennt.
		if instF != "" && len(insts) > 0 && !containsString(insts, instF) {
			continue
		}

		loc, _ := it["location"].(string)
		if loc == "" {
			loc, _ = it["url"].(string)
		}
		link := loc
		if link == "" {
			link = imgURL
		}

		obs := stringify(it["observation_id"])
		if obs == "" {
			obs = stringify(it["observationId"])
		}
		program := stringify(it["program"])
		suffix := ""
		if details != nil {
			suffix = stringify(details["suffix"])
		}
		if suffix == "" {
			suffix = stringify(it["suffix"])
		}

		items = append(items, models.GalleryItem{
			URL:         imgURL,
			Observation: obs,
			Program:     program,
			Suffix:      suffix,
			Instruments: insts,
			Caption:     galleryCaption(it, obs, program, suffix, insts),
			Link:        link,
		})
		if perPage > 0 && len(items) >= perPage {
			break
		}
	}
	return items
}

// galleryCaption baut "obs · Pprogram · suffix · inst1/inst2" aus den
// vorhandenen Teilen.
func galleryCaption(it map[string]any, obs, program, suffix string, insts []string) string {
	head := obs
	if head == "" {
		head = stringify(it["id"])
	}
	if program == "" {
		program = "-"
	}
	parts := []string{head, "P" + program, suffix, strings.Join(insts, "/")}

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " · ")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
