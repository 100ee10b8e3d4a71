package models

// FlatRecord ist die einheitliche Zeilenform für OSDR-Daten, egal ob der
// Upstream eine Liste oder ein Dictionary ("OSD-1" => {...}) geliefert hat.
// Raw behält das ursprüngliche verschachtelte Objekt für spätere Inspektion.
type FlatRecord struct {
	ID         any    `json:"id"`
	DatasetID  string `json:"dataset_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
	InsertedAt string `json:"inserted_at,omitempty"`
	RestURL    string `json:"rest_url,omitempty"`
	Raw        any    `json:"raw,omitempty"`
}
