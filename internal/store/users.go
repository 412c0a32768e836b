package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dotaladder/backend/internal/models"
)

// GetUser returns the user by steam id, or nil when unknown.
func (s *Store) GetUser(steamID uint64) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT * FROM users WHERE id = $1`, steamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", steamID, err)
	}
	return &user, nil
}

// GetOrCreateUser fetches a user, inserting an empty row on first sight.
func (s *Store) GetOrCreateUser(steamID uint64) (*models.User, error) {
	user, err := s.GetUser(steamID)
	if err != nil || user != nil {
		return user, err
	}
	if _, err := s.db.Exec(`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, steamID); err != nil {
		return nil, fmt.Errorf("create user %d: %w", steamID, err)
	}
	return s.GetUser(steamID)
}

// SetNickname stores a validated nickname.
func (s *Store) SetNickname(steamID uint64, nickname string) error {
	_, err := s.db.Exec(`UPDATE users SET nickname = $1 WHERE id = $2`, nickname, steamID)
	return err
}

// HasPermission checks a named permission of the user.
func (s *Store) HasPermission(steamID uint64, name string) (bool, error) {
	var exists bool
	err := s.db.Get(&exists, `
		SELECT EXISTS (
			SELECT 1 FROM permissions p
			JOIN user_permissions up ON up.id = p.permission_id
			WHERE p.user_id = $1 AND up.name = $2
		)`, steamID, name)
	return exists, err
}

// GivePermission grants a named permission to the user.
func (s *Store) GivePermission(steamID uint64, name string) error {
	_, err := s.db.Exec(`
		INSERT INTO permissions (permission_id, user_id)
		SELECT id, $1 FROM user_permissions WHERE name = $2
		ON CONFLICT DO NOTHING`, steamID, name)
	return err
}

// MarkScanRequested records the moment a scan was asked for, creating the
// scan-info row on first request.
func (s *Store) MarkScanRequested(steamID uint64) error {
	_, err := s.db.Exec(`
		INSERT INTO profile_scan_info (id, last_scan_request)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET last_scan_request = EXCLUDED.last_scan_request`,
		steamID, time.Now().UTC())
	return err
}

// CommitScanResult stores the scanned rating, the recomputed ladder section and
// the scan timestamp, and makes sure the user owns a scoreboard row in that
// section.
func (s *Store) CommitScanResult(steamID uint64, soloMMR *int, section string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if soloMMR != nil {
		if _, err := tx.Exec(`UPDATE users SET solo_mmr = $1 WHERE id = $2`, *soloMMR, steamID); err != nil {
			return err
		}
	}
	if section != "" {
		if _, err := tx.Exec(`UPDATE users SET section = $1 WHERE id = $2`, section, steamID); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO scoreboards (user_id, ladder_name)
			VALUES ($1, $2)
			ON CONFLICT (user_id, ladder_name) DO NOTHING`, steamID, section); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`
		INSERT INTO profile_scan_info (id, last_scan_request)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, steamID, time.Now().UTC()); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE profile_scan_info SET last_scan = $1 WHERE id = $2`,
		time.Now().UTC(), steamID); err != nil {
		return err
	}

	return tx.Commit()
}

// ListUserIDs returns the ids of every known user.
func (s *Store) ListUserIDs() ([]uint64, error) {
	var ids []uint64
	err := s.db.Select(&ids, `SELECT id FROM users ORDER BY id`)
	return ids, err
}

// ListScoreboard returns a ladder ordered by MMR.
func (s *Store) ListScoreboard(ladder string, limit int) ([]models.Scoreboard, error) {
	var rows []models.Scoreboard
	err := s.db.Select(&rows, `
		SELECT * FROM scoreboards
		WHERE ladder_name = $1
		ORDER BY mmr DESC
		LIMIT $2`, ladder, limit)
	return rows, err
}
