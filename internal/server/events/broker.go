// Package events fans out per-user change notifications so connected
// clients know when to refetch a folder listing.
package events

import (
	"sync"
	"time"
)

type Kind string

const (
	FolderCreated  Kind = "folder.created"
	FolderDeleted  Kind = "folder.deleted"
	FileUploaded   Kind = "file.uploaded"
	FileDeleted    Kind = "file.deleted"
	PrivacyChanged Kind = "privacy.changed"
	AccountDeleted Kind = "account.deleted"
)

type Event struct {
	UserID   string    `json:"-"`
	Kind     Kind      `json:"kind"`
	FolderID string    `json:"folder_id"`
	ItemID   string    `json:"item_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher is the side handed to code that mutates the tree.
type Publisher interface {
	Publish(Event)
}

// Broker delivers each event to the subscribers of its user. Slow
// subscribers lose events rather than blocking publishers.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	buffer int
	closed bool
}

var _ Publisher = (*Broker)(nil)

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{subs: make(map[string]map[chan Event]struct{}), buffer: buffer}
}

func (b *Broker) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of userID's events and a cancel func that
// closes it. cancel may be called more than once. After Close the channel
// comes back already closed.
func (b *Broker) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan Event]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[userID][ch]; !ok {
				return // closed by Close
			}
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Close ends every subscription so streaming handlers return, and makes
// later subscriptions end immediately. Publish becomes a no-op.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for userID, chans := range b.subs {
		for ch := range chans {
			close(ch)
		}
		delete(b.subs, userID)
	}
}

// Subscribers reports how many channels are open for userID.
func (b *Broker) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}
