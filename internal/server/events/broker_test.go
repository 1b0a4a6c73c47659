package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_DeliversPerUser(t *testing.T) {
	b := NewBroker(4)
	alice, cancelA := b.Subscribe("alice")
	defer cancelA()
	bob, cancelB := b.Subscribe("bob")
	defer cancelB()

	b.Publish(Event{UserID: "alice", Kind: FileUploaded, FolderID: "home"})

	select {
	case ev := <-alice:
		assert.Equal(t, FileUploaded, ev.Kind)
		assert.False(t, ev.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("alice got nothing")
	}
	select {
	case ev := <-bob:
		t.Fatalf("bob got %v", ev)
	default:
	}
}

func TestBroker_DropsWhenFull(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe("u")
	defer cancel()

	b.Publish(Event{UserID: "u", Kind: FolderCreated})
	b.Publish(Event{UserID: "u", Kind: FolderDeleted})

	ev := <-ch
	assert.Equal(t, FolderCreated, ev.Kind)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event %v", ev)
	default:
	}
}

func TestBroker_CancelClosesAndUnregisters(t *testing.T) {
	b := NewBroker(0)
	ch, cancel := b.Subscribe("u")
	require.Equal(t, 1, b.Subscribers("u"))

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("u"))

	assert.NotPanics(t, func() { b.Publish(Event{UserID: "u"}) })
}

func TestBroker_CloseEndsSubscriptions(t *testing.T) {
	b := NewBroker(4)
	ch1, cancel1 := b.Subscribe("u")
	ch2, _ := b.Subscribe("v")

	b.Close()
	b.Close()

	_, open := <-ch1
	assert.False(t, open)
	_, open = <-ch2
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("u"))

	assert.NotPanics(t, cancel1)
	assert.NotPanics(t, func() { b.Publish(Event{UserID: "u"}) })

	late, cancel := b.Subscribe("u")
	_, open = <-late
	assert.False(t, open)
	assert.NotPanics(t, cancel)
	assert.Equal(t, 0, b.Subscribers("u"))
}
