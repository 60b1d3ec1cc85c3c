package domain

import "time"

// Tag is a global label. A reference carries at most one.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
