package models

// NormalizedEvent ist ein astronomisches Ereignis in fester Form.
// Alle Felder dürfen leer sein; die Quelle liefert sie unter wechselnden Namen.
type NormalizedEvent struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	When  string `json:"when"`
	Extra string `json:"extra"`
}
