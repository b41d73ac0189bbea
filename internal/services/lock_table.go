package services

import "sync"

// convLock is one conversation's mutex plus the number of holders and
// waiters, so idle entries can be removed from the table.
type convLock struct {
	mu   sync.Mutex
	refs int
}

// ConversationLocks serializes mutation sequences per conversation
// identifier: at most one append-and-persist runs for a given conversation
// at a time, while different conversations proceed independently. Entries
// are created lazily and dropped as soon as the last holder releases, so the
// table stays bounded by the number of in-flight deliveries.
type ConversationLocks struct {
	mu    sync.Mutex
	table map[string]*convLock
}

// NewConversationLocks returns an empty lock table.
func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{table: make(map[string]*convLock)}
}

// Acquire blocks until the conversation's lock is held and returns the
// release function. Each mutation only ever holds its own conversation's
// lock, so no lock ordering across conversations is needed.
func (l *ConversationLocks) Acquire(conversationID string) (release func()) {
	l.mu.Lock()
	entry, ok := l.table[conversationID]
	if !ok {
		entry = &convLock{}
		l.table[conversationID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.table, conversationID)
		}
		l.mu.Unlock()
	}
}
