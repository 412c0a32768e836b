package bot

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// MatchEventsChannel is the redis pub/sub channel the web feed subscribes to.
const MatchEventsChannel = "match_events"

// MatchEvent is published at every match lifecycle step so the web process
// can stream live status to spectators.
type MatchEvent struct {
	Type       string `json:"type"`
	MatchID    uint32 `json:"match_id"`
	Server     string `json:"server,omitempty"`
	RadiantWin *bool  `json:"radiant_win,omitempty"`
}

// Publisher fans match events out of the bot process. A nil Publisher is
// valid and drops everything.
type Publisher interface {
	PublishMatchEvent(ctx context.Context, event MatchEvent)
}

// RedisPublisher publishes match events on a redis channel.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) PublishMatchEvent(ctx context.Context, event MatchEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[EVENTS] Marshal match event failed: %v", err)
		return
	}
	if err := p.rdb.Publish(ctx, MatchEventsChannel, payload).Err(); err != nil {
		log.Printf("[EVENTS] Publish match event failed: %v", err)
	}
}
