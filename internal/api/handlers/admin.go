package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dotaladder/backend/internal/models"
	"github.com/dotaladder/backend/internal/queue"
	"github.com/dotaladder/backend/internal/store"
)

func matchIDParam(c *gin.Context) (uint32, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
		return 0, false
	}
	return uint32(id), true
}

// CancelMatch force-cancels a match that has not ended. The bot hosting it
// loses its next status transition and drops the job on its own.
func CancelMatch(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		cancelled, err := st.AdminCancelMatch(matchID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !cancelled {
			c.JSON(http.StatusConflict, gin.H{"error": "match already over"})
			return
		}
		log.Printf("[API] Match %d cancelled by admin %d", matchID, c.GetUint64("steam_id"))
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	}
}

// RehostMatch queues a fresh hosting job for a match stuck in creation, for
// when the bot that claimed it died before getting anywhere.
func RehostMatch(st *store.Store, jobs queue.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		match, err := st.GetMatch(matchID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if match == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown match"})
			return
		}
		if match.Status != models.MatchStatusCreation {
			c.JSON(http.StatusConflict, gin.H{"error": "match already progressed"})
			return
		}

		if err := jobs.Produce(queue.CreateMatch{MatchID: matchID}); err != nil {
			log.Printf("[API] Failed to queue rehost of match %d: %v", matchID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "queue unavailable"})
			return
		}
		log.Printf("[API] Match %d rehost queued by admin %d", matchID, c.GetUint64("steam_id"))
		c.JSON(http.StatusAccepted, gin.H{"status": "rehost queued"})
	}
}

// ScanAll queues a profile rescan for every known user.
func ScanAll(st *store.Store, jobs queue.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := st.ListUserIDs()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		queued := 0
		for _, id := range ids {
			if err := jobs.Produce(queue.ScanProfile{SteamID: id}); err != nil {
				log.Printf("[API] Scan-all stopped after %d users: %v", queued, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "queue unavailable", "queued": queued})
				return
			}
			queued++
		}

		log.Printf("[API] Scan-all queued %d users (admin %d)", queued, c.GetUint64("steam_id"))
		c.JSON(http.StatusAccepted, gin.H{"queued": queued})
	}
}
