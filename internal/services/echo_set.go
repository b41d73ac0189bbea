package services

import "sync"

// EchoSet is a size-capped set of texts this bridge instance has recently
// sent outbound. The inbound path consults it to recognize the bridge's own
// messages being re-delivered through the webhook, which would otherwise be
// replayed into conversation history a second time.
//
// Eviction is FIFO by insertion: once the cap is reached, the oldest
// recorded text makes room for the newest. Duplicate texts are counted so
// evicting one send of a text does not forget a later send of the same text.
// All methods are safe for concurrent use.
type EchoSet struct {
	mu     sync.Mutex
	cap    int
	order  []string
	counts map[string]int
}

// NewEchoSet returns an EchoSet retaining at most capacity texts.
// A capacity below 1 is raised to 1.
func NewEchoSet(capacity int) *EchoSet {
	if capacity < 1 {
		capacity = 1
	}
	return &EchoSet{
		cap:    capacity,
		counts: make(map[string]int),
	}
}

// Add records an outbound text, evicting the oldest entry when full.
func (s *EchoSet) Add(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		if s.counts[oldest] <= 1 {
			delete(s.counts, oldest)
		} else {
			s.counts[oldest]--
		}
	}
	s.order = append(s.order, text)
	s.counts[text]++
}

// Contains reports whether text was recently sent by this bridge instance.
func (s *EchoSet) Contains(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[text] > 0
}

// Len returns the number of retained texts (duplicates included).
func (s *EchoSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
