package models

import (
	"sort"
	"strings"
	"time"
)

// Message is a single entry in a two-party chat channel.
type Message struct {
	ID         string    `db:"id" json:"id"`
	ChannelID  string    `db:"channel_id" json:"channel_id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	SenderName string    `db:"sender_name" json:"sender_name"`
	Text       string    `db:"text" json:"text"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ChannelID derives the deterministic channel id for two participants.
func ChannelID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// MessageFilter pages through a channel history.
type MessageFilter struct {
	ChannelID string
	Before    *time.Time
	Limit     int
}
