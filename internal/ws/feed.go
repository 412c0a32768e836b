package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dotaladder/backend/internal/bot"
)

// MatchFeedHub is the single hub for all match watchers.
var MatchFeedHub *Hub

func init() {
	MatchFeedHub = NewHub()
	go MatchFeedHub.Run()
}

// HandleWebSocket upgrades a watcher connection. An optional match query
// parameter narrows the feed to one match.
func HandleWebSocket(c *gin.Context) {
	var matchID uint32
	if raw := c.Query("match"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
			return
		}
		matchID = uint32(id)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:    conn,
		matchID: matchID,
		send:    make(chan []byte, 256),
	}
	MatchFeedHub.register <- client

	go client.writePump(MatchFeedHub)
	go client.readPump(MatchFeedHub)
}

// StartMatchEventSubscriber relays match lifecycle events published by the
// bots into the websocket feed. It reconnects with the subscription for as
// long as the context lives.
func StartMatchEventSubscriber(ctx context.Context, rdb *redis.Client) {
	go func() {
		sub := rdb.Subscribe(ctx, bot.MatchEventsChannel)
		defer sub.Close()

		log.Printf("[WS] Subscribed to %s", bot.MatchEventsChannel)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event bot.MatchEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("[WS] Bad match event payload: %v", err)
					continue
				}
				MatchFeedHub.Broadcast(event.MatchID, event)
			}
		}
	}()
}
