package blanklogo

import "time"

// Entity carries the timestamps shared by all persisted BlankLogo entities.
// Embed it in entity structs; stores maintain UpdatedAt on every write.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
