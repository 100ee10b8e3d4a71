package models

// GalleryItem ist ein einzelnes Bild im JWST-Feed. Es wird nur gebaut,
// wenn eine brauchbare Bild-URL gefunden wurde.
type GalleryItem struct {
	URL         string   `json:"url"`
	Observation string   `json:"obs"`
	Program     string   `json:"program"`
	Suffix      string   `json:"suffix"`
	Instruments []string `json:"inst"`
	Caption     string   `json:"caption"`
	Link        string   `json:"link"`
}
