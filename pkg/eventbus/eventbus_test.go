package eventbus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type unitChanged struct {
	ID string
}

func TestPublish_InvokesMatchingSubscriber(t *testing.T) {
	bus := NewEventPublisher(logrus.New())

	var got []string
	bus.Subscribe(func(ev *unitChanged) {
		got = append(got, ev.ID)
	})

	bus.Publish(&unitChanged{ID: "a"})
	bus.Publish(&unitChanged{ID: "b"})

	require.Equal(t, []string{"a", "b"}, got)
}

func TestPublish_SkipsNonMatchingSubscriber(t *testing.T) {
	bus := NewEventPublisher(logrus.New())

	called := false
	bus.Subscribe(func(ev *unitChanged, extra string) {
		called = true
	})

	bus.Publish(&unitChanged{ID: "a"})
	require.False(t, called)
}

func TestPublishE_CollectsHandlerErrors(t *testing.T) {
	bus := NewEventPublisher(logrus.New())

	wantErr := errors.New("projection failed")
	bus.Subscribe(func(ev *unitChanged) error { return wantErr })
	bus.Subscribe(func(ev *unitChanged) error { return nil })

	err := bus.PublishE(&unitChanged{ID: "a"})
	require.ErrorIs(t, err, wantErr)
}

func TestPublishE_NoSubscribers(t *testing.T) {
	bus := NewEventPublisher(logrus.New())
	err := bus.PublishE(&unitChanged{ID: "a"})
	require.ErrorIs(t, err, ErrNoSubscribers)
}

func TestPublish_RecoversFromPanic(t *testing.T) {
	bus := NewEventPublisher(logrus.New())

	bus.Subscribe(func(ev *unitChanged) { panic("boom") })

	require.NotPanics(t, func() {
		bus.Publish(&unitChanged{ID: "a"})
	})
}

func TestUnsubscribeAndClear(t *testing.T) {
	bus := NewEventPublisher(logrus.New())

	h := func(ev *unitChanged) {}
	bus.Subscribe(h)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Unsubscribe(h)
	require.Equal(t, 0, bus.SubscribersCount())

	bus.Subscribe(h)
	bus.Clear()
	require.Equal(t, 0, bus.SubscribersCount())
}
