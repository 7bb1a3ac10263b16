package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_DeliversCurrentValue(t *testing.T) {
	p := New("initial")
	sub := p.Subscribe()
	defer sub.Close()

	assert.Equal(t, "initial", <-sub.C)
}

func TestPublish_ConflatesForSlowSubscriber(t *testing.T) {
	p := New(0)
	sub := p.Subscribe()
	defer sub.Close()

	for i := 1; i <= 5; i++ {
		p.Publish(i)
	}

	assert.Equal(t, 5, <-sub.C)
	select {
	case v := <-sub.C:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
	assert.Equal(t, 5, p.Current())
}

func TestPublish_FansOut(t *testing.T) {
	p := New([]int(nil))
	a, b := p.Subscribe(), p.Subscribe()
	<-a.C
	<-b.C

	p.Publish([]int{1, 2})

	assert.Equal(t, []int{1, 2}, <-a.C)
	assert.Equal(t, []int{1, 2}, <-b.C)
}

func TestSubscription_Close(t *testing.T) {
	p := New(1)
	sub := p.Subscribe()
	<-sub.C

	sub.Close()
	sub.Close()
	p.Publish(2)

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed")
}

func TestPublisher_Close(t *testing.T) {
	p := New(1)
	sub := p.Subscribe()
	<-sub.C

	p.Close()
	p.Publish(2)
	_, ok := <-sub.C
	require.False(t, ok)

	late := p.Subscribe()
	_, ok = <-late.C
	assert.False(t, ok, "subscribing to a closed publisher yields a closed channel")
	late.Close()
}

func TestSubscribers_CountsOpenSubscriptions(t *testing.T) {
	p := New(0)
	assert.Equal(t, 0, p.Subscribers())

	a := p.Subscribe()
	b := p.Subscribe()
	assert.Equal(t, 2, p.Subscribers())

	a.Close()
	a.Close()
	assert.Equal(t, 1, p.Subscribers())

	p.Close()
	assert.Equal(t, 0, p.Subscribers())
	b.Close()
}
