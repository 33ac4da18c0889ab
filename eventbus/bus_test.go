package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitOrderMatchesSubscriptionOrder(t *testing.T) {
	bus := New(nil)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.On("test", func(Event) { order = append(order, i) })
	}

	bus.Emit("test", nil)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestOnceFiresExactlyOnce(t *testing.T) {
	bus := New(nil)

	count := 0
	bus.Once("tick", func(Event) { count++ })

	bus.Emit("tick", nil)
	bus.Emit("tick", nil)
	bus.Emit("tick", nil)

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.SubscriberCount("tick"))
}

func TestPanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	bus := New(nil)

	var got []string
	bus.On("ch", func(Event) { got = append(got, "a") })
	bus.On("ch", func(Event) { panic("boom") })
	bus.On("ch", func(Event) { got = append(got, "c") })

	require.NotPanics(t, func() { bus.Emit("ch", nil) })
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestCancelIsIdempotent(t *testing.T) {
	bus := New(nil)

	count := 0
	sub := bus.On("ch", func(Event) { count++ })

	sub.Cancel()
	sub.Cancel()
	bus.Emit("ch", nil)

	assert.Equal(t, 0, count)
}

func TestEmptyChannelsArePruned(t *testing.T) {
	bus := New(nil)

	sub := bus.On("ch", func(Event) {})
	assert.Contains(t, bus.Channels(), "ch")

	sub.Cancel()
	assert.Empty(t, bus.Channels())
}

func TestOffContextRemovesAllHandlersForOwner(t *testing.T) {
	bus := New(nil)

	type owner struct{ name string }
	mine := &owner{name: "theme-toggle"}
	theirs := &owner{name: "chat"}

	count := 0
	bus.On("a", func(Event) { count++ }, SubscribeOptions{Context: mine})
	bus.On("b", func(Event) { count++ }, SubscribeOptions{Context: mine})
	bus.On("a", func(Event) { count++ }, SubscribeOptions{Context: theirs})

	bus.OffContext(mine)

	bus.Emit("a", nil)
	bus.Emit("b", nil)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"a"}, bus.Channels())
}

func TestEmitCarriesPayload(t *testing.T) {
	bus := New(nil)

	var got Event
	bus.On(ComponentChannel("chat", "ready"), func(e Event) { got = e })
	bus.Emit("component:chat:ready", map[string]string{"id": "c1"})

	assert.Equal(t, "component:chat:ready", got.Channel)
	assert.Equal(t, map[string]string{"id": "c1"}, got.Payload)
}

func TestSubscribeDuringEmitDoesNotFireInSameEmission(t *testing.T) {
	bus := New(nil)

	lateFired := false
	bus.On("ch", func(Event) {
		bus.On("ch", func(Event) { lateFired = true })
	})

	bus.Emit("ch", nil)
	assert.False(t, lateFired)

	bus.Emit("ch", nil)
	assert.True(t, lateFired)
}

func TestWildcardTapSeesEveryChannel(t *testing.T) {
	bus := New(nil)

	var seen []string
	bus.On(ChannelAll, func(ev Event) { seen = append(seen, ev.Channel) })

	bus.Emit("ch", nil)
	bus.Emit("component:chat:ready", nil)

	assert.Equal(t, []string{"ch", "component:chat:ready"}, seen)
}

func TestWildcardTapRunsAfterChannelSubscribers(t *testing.T) {
	bus := New(nil)

	var order []string
	bus.On(ChannelAll, func(Event) { order = append(order, "tap") })
	bus.On("ch", func(Event) { order = append(order, "direct") })

	bus.Emit("ch", nil)
	assert.Equal(t, []string{"direct", "tap"}, order)
}

func TestWildcardOnceTap(t *testing.T) {
	bus := New(nil)

	count := 0
	bus.Once(ChannelAll, func(Event) { count++ })

	bus.Emit("a", nil)
	bus.Emit("b", nil)
	assert.Equal(t, 1, count)
}
