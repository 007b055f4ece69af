// Package notify implements the pub/sub hub shared by the version store and
// the sync coordinator. Delivery is synchronous on the goroutine performing
// the mutation, so a publisher always sees its own write before any other
// subscriber runs.
package notify

import "sync"

// EventKind labels what happened to produce an Event.
type EventKind string

const (
	EventVersionSaved    EventKind = "version_saved"
	EventVersionRestored EventKind = "version_restored"
	EventVersionDeleted  EventKind = "version_deleted"
	EventRemoteOperation EventKind = "remote_operation"
)

// Event is delivered to every subscriber. Payload carries the kind-specific
// object (*versions.Version or *syncx.Operation); filtering by resource, user
// or kind is the subscriber's responsibility.
type Event struct {
	Kind       EventKind
	ResourceID string
	VersionID  string
	Payload    any
}

type subscriber struct {
	id int
	fn func(Event)
}

// Notifier is an observer registry. The zero value is not usable; construct
// with New.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers fn and returns an unsubscribe function. Unsubscribing
// twice is a no-op. Subscribers are invoked in registration order.
func (n *Notifier) Subscribe(fn func(Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	n.subs = append(n.subs, subscriber{id: id, fn: fn})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, s := range n.subs {
			if s.id == id {
				n.subs = append(n.subs[:i], n.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every current subscriber, synchronously.
func (n *Notifier) Publish(e Event) {
	n.mu.Lock()
	subs := make([]subscriber, len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Len reports the current number of subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
