package models

// UpstreamResult ist das Ergebnis eines einzelnen Upstream-Abrufs.
// Fetcher liefern für jeden Versuch einen wohlgeformten Wert zurück und
// werfen nie einen Fehler nach oben; OK=false bedeutet "Default-Daten nutzen".
type UpstreamResult struct {
	OK           bool   `json:"ok"`
	Status       int    `json:"status"`
	Body         any    `json:"body"`
	ErrorMessage string `json:"error_message,omitempty"`
}
