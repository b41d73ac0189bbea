package domain

import "time"

// ConversationEvent is the persisted form of one history event: the raw
// event document keyed by conversation, ordered by the auto-incremented
// sequence. Rows are append-only; the bridge never updates or deletes them.
type ConversationEvent struct {
	Seq            uint64    `gorm:"primaryKey;autoIncrement" json:"seq"`
	ConversationID string    `gorm:"type:TEXT NOT NULL;index:ix_conversation_events_conv" json:"conversation_id"`
	Payload        string    `gorm:"type:TEXT NOT NULL" json:"payload"`
	CreatedAt      time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime" json:"created_at"`
}

// TableName implements the GORM tabler interface.
func (ConversationEvent) TableName() string { return "conversation_events" }
