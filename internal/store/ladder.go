package store

import (
	"fmt"
	"time"

	"github.com/dotaladder/backend/internal/models"
)

// JoinQueue enters a user into the queue of their ladder section.
func (s *Store) JoinQueue(steamID uint64, section string, modeVote int) error {
	_, err := s.db.Exec(`
		INSERT INTO queued_players (id, queue_name, mode_vote, added)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id, queue_name) DO NOTHING`,
		steamID, section, modeVote, time.Now().UTC())
	return err
}

// LeaveQueue removes a user from every queue they are in.
func (s *Store) LeaveQueue(steamID uint64) error {
	_, err := s.db.Exec(`DELETE FROM queued_players WHERE id = $1`, steamID)
	return err
}

// QueueCount returns the number of players waiting in one section.
func (s *Store) QueueCount(section string) (int, error) {
	var n int
	err := s.db.Get(&n, `SELECT COUNT(*) FROM queued_players WHERE queue_name = $1`, section)
	return n, err
}

// TakeQueuedPlayers claims up to limit players from a section queue, oldest
// first, removing them from the queue. FOR UPDATE SKIP LOCKED keeps two
// concurrent claims from building a match out of the same players.
func (s *Store) TakeQueuedPlayers(section string, limit int) ([]models.User, []int, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var queued []models.QueuedPlayer
	err = tx.Select(&queued, `
		SELECT * FROM queued_players
		WHERE queue_name = $1
		ORDER BY added
		FOR UPDATE SKIP LOCKED
		LIMIT $2`, section, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("claim queued players: %w", err)
	}
	if len(queued) < limit {
		return nil, nil, nil
	}

	users := make([]models.User, 0, len(queued))
	votes := make([]int, 0, len(queued))
	for _, q := range queued {
		var user models.User
		if err := tx.Get(&user, `SELECT * FROM users WHERE id = $1`, q.ID); err != nil {
			return nil, nil, err
		}
		users = append(users, user)
		votes = append(votes, q.ModeVote)
		if _, err := tx.Exec(`DELETE FROM queued_players WHERE id = $1 AND queue_name = $2`,
			q.ID, q.QueueName); err != nil {
			return nil, nil, err
		}
	}

	return users, votes, tx.Commit()
}

// CreateMatch inserts a match draft and its player rows, snapshotting each
// player's mmr_before from their scoreboard and pointing current_match at the
// new match.
func (s *Store) CreateMatch(draft models.MatchDraft) (uint32, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var matchID uint32
	err = tx.QueryRow(`
		INSERT INTO matches (status, created, password, section, mode)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		models.MatchStatusCreation, draft.Created, draft.Password, draft.Section, draft.Mode).Scan(&matchID)
	if err != nil {
		return 0, fmt.Errorf("insert match: %w", err)
	}

	for _, p := range draft.Players {
		var mmr int
		if err := tx.Get(&mmr, `
			SELECT COALESCE((SELECT mmr FROM scoreboards WHERE user_id = $1 AND ladder_name = $2), 0)`,
			p.UserID, draft.Section); err != nil {
			return 0, err
		}
		if _, err := tx.Exec(`
			INSERT INTO players_in_match (player_id, match_id, mmr_before, is_radiant, team_slot)
			VALUES ($1, $2, $3, $4, $5)`,
			p.UserID, matchID, mmr, p.IsRadiant, p.TeamSlot); err != nil {
			return 0, fmt.Errorf("insert player %d: %w", p.UserID, err)
		}
		if _, err := tx.Exec(`UPDATE users SET current_match = $1 WHERE id = $2`,
			matchID, p.UserID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return matchID, nil
}

// AdminCancelMatch force-cancels a match that has not ended yet. The bots'
// conditional status transitions make them drop the job when they lose this
// race.
func (s *Store) AdminCancelMatch(matchID uint32) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE matches SET status = $1
		WHERE id = $2 AND status NOT IN ($3, $1)`,
		models.MatchStatusCancelled, matchID, models.MatchStatusEnded)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
