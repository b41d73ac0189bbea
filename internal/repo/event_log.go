// Package repo – conversation event log.
//
// Free functions over a *gorm.DB, mirroring the append-only contract of the
// event sequence: events are inserted in order inside one transaction and
// read back by ascending sequence. Nothing here mutates or deletes rows.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/channelkit/go-suggest-bridge/internal/domain"
)

// AppendEvents appends events to a conversation's history in one
// transaction, preserving their order.
func AppendEvents(ctx context.Context, db *gorm.DB, conversationID string, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([]domain.ConversationEvent, 0, len(events))
	for _, ev := range events {
		payload, err := ev.MarshalJSON()
		if err != nil {
			return err
		}
		rows = append(rows, domain.ConversationEvent{
			ConversationID: conversationID,
			Payload:        string(payload),
		})
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
}

// ListEvents returns a conversation's full event history in append order.
func ListEvents(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.Event, error) {
	var rows []domain.ConversationEvent
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, domain.Event(row.Payload))
	}
	return events, nil
}

// CountEvents returns the number of events recorded for a conversation.
func CountEvents(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ConversationEvent{}).
		Where("conversation_id = ?", conversationID).
		Count(&n).Error
	return n, err
}
