package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/queue"
	"github.com/dotaladder/backend/internal/store"
)

// GetProfile returns a user's public profile.
func GetProfile(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		steamID, err := strconv.ParseUint(c.Param("steam_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid steam id"})
			return
		}

		user, err := st.GetUser(steamID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// SetNickname stores the caller's nickname after validation.
func SetNickname(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Nickname string `json:"nickname"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nickname required"})
			return
		}
		if msg := ValidateNickname(req.Nickname); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}

		steamID := c.GetUint64("steam_id")
		if err := st.SetNickname(steamID, req.Nickname); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"nickname": req.Nickname})
	}
}

// RequestScan queues a profile scan for the caller, rate limited per user.
func RequestScan(st *store.Store, jobs queue.Client, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		steamID := c.GetUint64("steam_id")

		if rdb != nil && cfg.ScanCooldownSeconds > 0 {
			key := fmt.Sprintf("scan_rate:%d", steamID)
			ok, err := rdb.SetNX(context.Background(), key, "1",
				time.Duration(cfg.ScanCooldownSeconds)*time.Second).Result()
			if err == nil && !ok {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "scan already requested, try later"})
				return
			}
		}

		if err := st.MarkScanRequested(steamID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if err := jobs.Produce(queue.ScanProfile{SteamID: steamID}); err != nil {
			log.Printf("[API] Failed to queue scan for %d: %v", steamID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "queue unavailable"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "scan queued"})
	}
}
