// Package domain contains core concepts of the chat directory.
// Messages are immutable once written.
package domain

import "time"

// Message represents an immutable chat entry.
type Message struct {
	ID          string
	ChatID      string
	Sender      string
	Text        string
	CreatedAt   int64  // unix milliseconds, wall clock of the writer
	Timestamp   string // display time, e.g. "15:04"
	SenderPhoto string
}

func (m Message) At() time.Time {
	return time.UnixMilli(m.CreatedAt).UTC()
}
