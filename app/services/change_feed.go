package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/amirphl/nightpulse/models"
	"github.com/redis/go-redis/v9"
)

// ChangeEvent announces that a night bucket received a vote write
type ChangeEvent struct {
	Mode  models.VoteMode `json:"mode"`
	Night string          `json:"night"`
}

// ChangeHandler consumes change events
type ChangeHandler func(ChangeEvent)

// ChangeFeed fans vote writes out over Redis pub/sub so every replica
// refreshes its live tallies. Without Redis events are delivered in-process.
type ChangeFeed struct {
	rc      *redis.Client
	channel string
	logger  *log.Logger

	mu       sync.RWMutex
	handlers []ChangeHandler
}

// NewChangeFeed creates a change feed. rc may be nil.
func NewChangeFeed(rc *redis.Client, channel string, logger *log.Logger) *ChangeFeed {
	if channel == "" {
		channel = "nightpulse:votes"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ChangeFeed{rc: rc, channel: channel, logger: logger}
}

// Subscribe registers a handler. Handlers must not block.
func (f *ChangeFeed) Subscribe(h ChangeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
}

// NotifyVote publishes a change. A failed publish is delivered locally instead.
func (f *ChangeFeed) NotifyVote(ctx context.Context, mode models.VoteMode, night string) {
	ev := ChangeEvent{Mode: mode, Night: night}
	if f.rc == nil {
		f.dispatch(ev)
		return
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		f.logger.Printf("change feed: encode %v: %v", ev, err)
		f.dispatch(ev)
		return
	}
	if err := f.rc.Publish(ctx, f.channel, raw).Err(); err != nil {
		f.logger.Printf("change feed: publish %s/%s: %v", mode, night, err)
		f.dispatch(ev)
	}
}

func (f *ChangeFeed) dispatch(ev ChangeEvent) {
	f.mu.RLock()
	handlers := append([]ChangeHandler(nil), f.handlers...)
	f.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}

// Run consumes the Redis channel until ctx is cancelled. Without Redis it
// only waits for cancellation.
func (f *ChangeFeed) Run(ctx context.Context) error {
	if f.rc == nil {
		<-ctx.Done()
		return nil
	}

	sub := f.rc.Subscribe(ctx, f.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	f.logger.Printf("change feed: subscribed to %s", f.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.logger.Printf("change feed: bad payload %q: %v", msg.Payload, err)
				continue
			}
			if !ev.Mode.Valid() || ev.Night == "" {
				continue
			}
			f.dispatch(ev)
		}
	}
}
