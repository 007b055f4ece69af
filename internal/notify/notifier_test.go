package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_DeliversInOrder(t *testing.T) {
	n := New()
	var order []string

	n.Subscribe(func(e Event) { order = append(order, "first") })
	n.Subscribe(func(e Event) { order = append(order, "second") })

	n.Publish(Event{Kind: EventVersionSaved})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestNotifier_DeliveryIsSynchronous(t *testing.T) {
	n := New()
	seen := false
	n.Subscribe(func(e Event) { seen = true })

	n.Publish(Event{Kind: EventVersionSaved, ResourceID: "r1"})
	// no waiting: delivery happened on this goroutine
	require.True(t, seen)
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := New()
	calls := 0
	unsub := n.Subscribe(func(e Event) { calls++ })

	n.Publish(Event{})
	unsub()
	n.Publish(Event{})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, n.Len())

	// idempotent
	unsub()
	assert.Equal(t, 0, n.Len())
}

func TestNotifier_AllSubscribersReceiveEveryEvent(t *testing.T) {
	n := New()
	a, b := 0, 0
	n.Subscribe(func(e Event) { a++ })
	n.Subscribe(func(e Event) { b++ })

	n.Publish(Event{Kind: EventVersionSaved})
	n.Publish(Event{Kind: EventRemoteOperation})

	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}
