package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/models"
	"github.com/dotaladder/backend/internal/queue"
	"github.com/dotaladder/backend/internal/store"
)

func validSection(section string) bool {
	switch section {
	case models.LadderHigh, models.LadderMedium, models.LadderLow:
		return true
	}
	return false
}

// GetScoreboard returns the ladder of one section ordered by MMR.
func GetScoreboard(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		section := c.Param("section")
		if !validSection(section) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown ladder section"})
			return
		}

		rows, err := st.ListScoreboard(section, 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"section": section, "scoreboard": rows})
	}
}

// JoinQueue enters the caller into their section's queue. When enough players
// are waiting a match is drafted and a job queued for a bot to host it.
func JoinQueue(st *store.Store, jobs queue.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AllPick       bool `json:"ap"`
			RandomDraft   bool `json:"rd"`
			CaptainsDraft bool `json:"cd"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode votes required"})
			return
		}
		if !req.AllPick && !req.RandomDraft && !req.CaptainsDraft {
			c.JSON(http.StatusBadRequest, gin.H{"error": "vote for at least one game mode"})
			return
		}

		steamID := c.GetUint64("steam_id")
		user, err := st.GetUser(steamID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if user == nil || !user.Section.Valid {
			c.JSON(http.StatusConflict, gin.H{"error": "scan your profile before queueing"})
			return
		}
		if user.BanDate.Valid {
			c.JSON(http.StatusForbidden, gin.H{"error": "banned"})
			return
		}
		if user.CurrentMatch.Valid {
			c.JSON(http.StatusConflict, gin.H{"error": "already in a match"})
			return
		}

		section := user.Section.String
		vote := models.EncodeModeVote(req.AllPick, req.RandomDraft, req.CaptainsDraft)
		if err := st.JoinQueue(steamID, section, vote); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if err := tryStartMatch(st, jobs, section, cfg.PlayersPerMatch); err != nil {
			log.Printf("[API] Failed to start %s match: %v", section, err)
		}

		count, _ := st.QueueCount(section)
		c.JSON(http.StatusOK, gin.H{"section": section, "queued": count})
	}
}

// tryStartMatch drafts a match once the section queue is full and hands it to
// the bots. Claiming the players and queueing the job are separate steps, so a
// crash in between strands the players out of the queue; the admin rehost
// endpoint covers that gap.
func tryStartMatch(st *store.Store, jobs queue.Client, section string, playersPerMatch int) error {
	users, votes, err := st.TakeQueuedPlayers(section, playersPerMatch)
	if err != nil || users == nil {
		return err
	}

	draft := models.BuildMatch(section, users, votes)
	matchID, err := st.CreateMatch(draft)
	if err != nil {
		return err
	}
	log.Printf("[API] Match %d drafted on %s ladder with %d players", matchID, section, len(users))
	return jobs.Produce(queue.CreateMatch{MatchID: matchID})
}

// LeaveQueue removes the caller from every queue they are waiting in.
func LeaveQueue(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		steamID := c.GetUint64("steam_id")
		if err := st.LeaveQueue(steamID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "left queue"})
	}
}
