package store

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dotaladder/backend/internal/models"
)

// Store is the relational gateway shared by the web handlers and the bots.
// Every call runs its own short transaction; nothing is held open across
// lobby waits.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetMatch returns the match by id, or nil when it does not exist.
func (s *Store) GetMatch(matchID uint32) (*models.Match, error) {
	var match models.Match
	err := s.db.Get(&match, `SELECT * FROM matches WHERE id = $1`, matchID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match %d: %w", matchID, err)
	}
	return &match, nil
}

// GetMatchPlayers returns the player rows of one match.
func (s *Store) GetMatchPlayers(matchID uint32) ([]models.PlayerInMatch, error) {
	var players []models.PlayerInMatch
	err := s.db.Select(&players, `
		SELECT player_id, match_id, mmr_before, mmr_after, is_radiant, team_slot, is_leaver, is_dodge
		FROM players_in_match
		WHERE match_id = $1
		ORDER BY is_radiant DESC, team_slot`, matchID)
	if err != nil {
		return nil, fmt.Errorf("get players of match %d: %w", matchID, err)
	}
	return players, nil
}

// TransitionMatchStatus moves a match from one status to another. It reports
// false when the match is no longer in the expected status, which happens when
// an admin moved it first or the job was redelivered.
func (s *Store) TransitionMatchStatus(matchID uint32, from, to int) (bool, error) {
	res, err := s.db.Exec(`UPDATE matches SET status = $1 WHERE id = $2 AND status = $3`, to, matchID, from)
	if err != nil {
		return false, fmt.Errorf("transition match %d %d->%d: %w", matchID, from, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetMatchServer records the game server address once the lobby launched.
func (s *Store) SetMatchServer(matchID uint32, server string) error {
	_, err := s.db.Exec(`UPDATE matches SET server = $1 WHERE id = $2`, server, matchID)
	if err != nil {
		return fmt.Errorf("set server of match %d: %w", matchID, err)
	}
	return nil
}

// ResolveDodge cancels a match and punishes the players who blocked its start.
// Penalized players lose the dodge penalty (floored at 0) and their dodge
// counter increments; everyone else keeps mmr_after = mmr_before. Returns
// false without writing anything when the match already left fromStatus.
func (s *Store) ResolveDodge(matchID uint32, fromStatus int, penalized map[uint64]bool) (bool, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE matches SET status = $1 WHERE id = $2 AND status = $3`,
		models.MatchStatusCancelled, matchID, fromStatus)
	if err != nil {
		return false, fmt.Errorf("cancel match %d: %w", matchID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return false, nil
	}

	var match models.Match
	if err := tx.Get(&match, `SELECT * FROM matches WHERE id = $1`, matchID); err != nil {
		return false, err
	}

	var players []models.PlayerInMatch
	if err := tx.Select(&players, `SELECT * FROM players_in_match WHERE match_id = $1`, matchID); err != nil {
		return false, err
	}

	for _, p := range players {
		if _, err := tx.Exec(`UPDATE users SET current_match = NULL WHERE id = $1 AND current_match = $2`,
			p.PlayerID, matchID); err != nil {
			return false, err
		}

		mmrAfter := dodgeMMR(p.MMRBefore, penalized[p.PlayerID])
		if penalized[p.PlayerID] {
			if _, err := tx.Exec(`
				UPDATE players_in_match SET mmr_after = $1, is_dodge = TRUE
				WHERE match_id = $2 AND player_id = $3`, mmrAfter, matchID, p.PlayerID); err != nil {
				return false, err
			}
			if _, err := tx.Exec(`
				UPDATE scoreboards SET mmr = $1, dodge = dodge + 1
				WHERE user_id = $2 AND ladder_name = $3`, mmrAfter, p.PlayerID, match.Section); err != nil {
				return false, err
			}
		} else {
			if _, err := tx.Exec(`
				UPDATE players_in_match SET mmr_after = $1
				WHERE match_id = $2 AND player_id = $3`, mmrAfter, matchID, p.PlayerID); err != nil {
				return false, err
			}
		}
	}

	return true, tx.Commit()
}

// ResolveEndgame records the outcome of a played match and settles every
// scoreboard. Winners gain the win delta, losers pay the loss penalty, and
// mid-game leavers pay the leave penalty instead of either. Returns false
// without writing anything when the match already left the in-progress status.
func (s *Store) ResolveEndgame(matchID uint32, outcome int, memberIDs, leaverIDs []uint64) (bool, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var radiantWin interface{}
	switch outcome {
	case models.MatchOutcomeRadiantWin:
		radiantWin = true
	case models.MatchOutcomeDireWin:
		radiantWin = false
	default:
		radiantWin = nil
	}

	res, err := tx.Exec(`
		UPDATE matches SET status = $1, server = NULL, radiant_win = $2
		WHERE id = $3 AND status = $4`,
		models.MatchStatusEnded, radiantWin, matchID, models.MatchStatusInProgress)
	if err != nil {
		return false, fmt.Errorf("end match %d: %w", matchID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return false, nil
	}

	var match models.Match
	if err := tx.Get(&match, `SELECT * FROM matches WHERE id = $1`, matchID); err != nil {
		return false, err
	}

	var players []models.PlayerInMatch
	if err := tx.Select(&players, `SELECT * FROM players_in_match WHERE match_id = $1`, matchID); err != nil {
		return false, err
	}

	memberSet := make(map[uint64]bool, len(memberIDs))
	for _, id := range memberIDs {
		memberSet[id] = true
	}
	leaverSet := make(map[uint64]bool, len(leaverIDs))
	for _, id := range leaverIDs {
		leaverSet[id] = true
	}

	for _, p := range players {
		if _, err := tx.Exec(`UPDATE users SET current_match = NULL WHERE id = $1 AND current_match = $2`,
			p.PlayerID, matchID); err != nil {
			return false, err
		}

		out := endgameOutcome(p.MMRBefore, p.IsRadiant, outcome, memberSet[p.PlayerID], leaverSet[p.PlayerID])
		if out.Won {
			if _, err := tx.Exec(`UPDATE scoreboards SET win = win + 1 WHERE user_id = $1 AND ladder_name = $2`,
				p.PlayerID, match.Section); err != nil {
				return false, err
			}
		}
		if out.Lost {
			if _, err := tx.Exec(`UPDATE scoreboards SET loss = loss + 1 WHERE user_id = $1 AND ladder_name = $2`,
				p.PlayerID, match.Section); err != nil {
				return false, err
			}
		}
		if out.Left {
			if _, err := tx.Exec(`
				UPDATE players_in_match SET is_leaver = TRUE WHERE match_id = $1 AND player_id = $2`,
				matchID, p.PlayerID); err != nil {
				return false, err
			}
			if _, err := tx.Exec(`UPDATE scoreboards SET leave = leave + 1 WHERE user_id = $1 AND ladder_name = $2`,
				p.PlayerID, match.Section); err != nil {
				return false, err
			}
		}

		if _, err := tx.Exec(`
			UPDATE players_in_match SET mmr_after = $1 WHERE match_id = $2 AND player_id = $3`,
			out.MMRAfter, matchID, p.PlayerID); err != nil {
			return false, err
		}
		if _, err := tx.Exec(`
			UPDATE scoreboards SET mmr = $1, matches = matches + 1 WHERE user_id = $2 AND ladder_name = $3`,
			out.MMRAfter, p.PlayerID, match.Section); err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}
