package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishSubscribe(t *testing.T) {
	ps := NewPubSub[int]()
	a := ps.Subscribe("replay")
	b := ps.Subscribe("replay")
	other := ps.Subscribe("other")

	assert.Equal(t, 2, ps.Publish("replay", 7))
	assert.Equal(t, 7, <-a)
	assert.Equal(t, 7, <-b)
	assert.Empty(t, other)
	assert.Equal(t, 0, ps.Publish("nobody", 1))
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	ps := NewBufferedPubSub[string](1)
	ch := ps.Subscribe("replay")

	assert.Equal(t, 1, ps.Publish("replay", "first"))
	assert.Equal(t, 0, ps.Publish("replay", "second"))
	assert.Equal(t, "first", <-ch)
}

func TestUnsubscribe(t *testing.T) {
	ps := NewPubSub[int]()
	a := ps.Subscribe("replay")
	b := ps.Subscribe("replay")

	ps.Unsubscribe("replay", a)
	_, open := <-a
	assert.False(t, open)

	assert.Equal(t, 1, ps.Publish("replay", 3))
	assert.Equal(t, 3, <-b)

	ps.Unsubscribe("replay", b)
	assert.Equal(t, 0, ps.Publish("replay", 4))
}

func TestClose(t *testing.T) {
	ps := NewPubSub[int]()
	a := ps.Subscribe("replay")
	ps.Close()
	ps.Close()

	_, open := <-a
	assert.False(t, open)
	_, open = <-ps.Subscribe("replay")
	assert.False(t, open)
	assert.Equal(t, 0, ps.Publish("replay", 1))
}
