package scry

import "time"

// Chat is one persisted conversation: the session identity, its generated
// title and the committed exchanges in order.
type Chat struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Exchanges []Exchange
}
