package domain

import "time"

// KeyPrefix namespaces all Redis keys owned by the service.
const KeyPrefix = "recall:"

// ContentRecord is a saved unit of searchable text. ID, OwnerID, ScopeID and
// CreatedAt are immutable after creation; Text and Embedding only ever change
// together, bumping UpdatedAt.
type ContentRecord struct {
	ID        string
	OwnerID   string
	ScopeID   string
	Text      string
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Preview returns a shortened form of the text for logs and listings.
func (r ContentRecord) Preview() string {
	if len(r.Text) <= 100 {
		return r.Text
	}
	return r.Text[:97] + "..."
}

// SearchMatch pairs a record with its similarity score in [0,1].
// Ephemeral; never persisted.
type SearchMatch struct {
	Record     ContentRecord
	Similarity float64
}

// WatchRoom is a shared viewing room bound to a scope. Rooms expire via
// storage TTL; an expired room is simply absent.
type WatchRoom struct {
	ScopeID   string    `json:"scope_id"`
	RoomURL   string    `json:"room_url"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
