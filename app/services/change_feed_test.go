package services

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/nightpulse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeFeed_LocalDelivery(t *testing.T) {
	feed := NewChangeFeed(nil, "", nil)

	var got []ChangeEvent
	feed.Subscribe(func(ev ChangeEvent) { got = append(got, ev) })
	feed.Subscribe(func(ev ChangeEvent) { got = append(got, ev) })

	feed.NotifyVote(context.Background(), models.VoteModeFood, "20261016")

	require.Len(t, got, 2)
	assert.Equal(t, ChangeEvent{Mode: models.VoteModeFood, Night: "20261016"}, got[0])
}

func TestChangeFeed_RunWithoutRedisStopsOnCancel(t *testing.T) {
	feed := NewChangeFeed(nil, "", nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
