package server

import (
	"testing"

	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stretchr/testify/assert"
)

func TestFanOut(t *testing.T) {
	var got []string
	handler := FanOut(
		func(n game.GameNotification) { got = append(got, "first:"+n.Type) },
		nil,
		func(n game.GameNotification) { got = append(got, "second:"+n.Type) },
	)
	handler(game.GameNotification{Type: game.NotifyMoveMade})
	assert.Equal(t, []string{"first:MOVE_MADE", "second:MOVE_MADE"}, got)
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	first, cancelFirst := b.Subscribe("g1")
	second, cancelSecond := b.Subscribe("g1")
	other, cancelOther := b.Subscribe("g2")
	defer cancelOther()
	assert.Equal(t, 2, b.Subscribers("g1"))

	b.Publish(game.GameNotification{GameID: "g1", Version: 2})
	assert.Equal(t, int64(2), (<-first).Version)
	assert.Equal(t, int64(2), (<-second).Version)
	assert.Empty(t, other)

	cancelFirst()
	cancelFirst()
	_, open := <-first
	assert.False(t, open)
	assert.Equal(t, 1, b.Subscribers("g1"))

	// A full subscriber drops notifications instead of blocking.
	for i := 0; i < 64; i++ {
		b.Publish(game.GameNotification{GameID: "g1", Version: int64(i)})
	}
	assert.Len(t, second, cap(second))

	cancelSecond()
	assert.Equal(t, 0, b.Subscribers("g1"))
}
