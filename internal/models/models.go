package models

import (
	"database/sql"
	"time"
)

// Match status lifecycle: Creation -> WaitingForPlayers -> {InProgress -> Ended} | Cancelled.
const (
	MatchStatusCreation          = 0
	MatchStatusWaitingForPlayers = 1
	MatchStatusCancelled         = 2
	MatchStatusInProgress        = 3
	MatchStatusEnded             = 4
)

// Ladder sections.
const (
	LadderHigh   = "high"
	LadderMedium = "medium"
	LadderLow    = "low"
)

// Permissions.
const (
	PermissionAdmin = "admin"
)

// Match outcome codes reported by the lobby status. Anything else is unknown.
const (
	MatchOutcomeRadiantWin = 2
	MatchOutcomeDireWin    = 3
)

// MMR deltas applied at match resolution. All results are floored at 0.
const (
	MMRWinDelta     = 50
	MMRLossPenalty  = 50
	MMRDodgePenalty = 150
	MMRLeavePenalty = 300
)

// User represents a ladder player, keyed by Steam ID (64 bits).
type User struct {
	ID           uint64         `db:"id" json:"id"`
	Nickname     sql.NullString `db:"nickname" json:"nickname,omitempty"`
	Avatar       sql.NullString `db:"avatar" json:"avatar,omitempty"`
	AvatarMedium sql.NullString `db:"avatar_medium" json:"avatar_medium,omitempty"`
	AvatarFull   sql.NullString `db:"avatar_full" json:"avatar_full,omitempty"`
	Verified     bool           `db:"verified" json:"verified"`
	BanDate      sql.NullTime   `db:"ban_date" json:"ban_date,omitempty"`
	CurrentMatch sql.NullInt64  `db:"current_match" json:"current_match,omitempty"`
	SoloMMR      sql.NullInt64  `db:"solo_mmr" json:"solo_mmr,omitempty"`
	Section      sql.NullString `db:"section" json:"section,omitempty"`
}

// ProfileScanInfo tracks the last Dota profile scan of a user.
type ProfileScanInfo struct {
	ID              uint64       `db:"id" json:"id"`
	LastScanRequest time.Time    `db:"last_scan_request" json:"last_scan_request"`
	LastScan        sql.NullTime `db:"last_scan" json:"last_scan,omitempty"`
}

// Match is one hosted game on a ladder section.
type Match struct {
	ID         uint32         `db:"id" json:"id"`
	Status     int            `db:"status" json:"status"`
	Created    time.Time      `db:"created" json:"created"`
	Password   string         `db:"password" json:"-"`
	Server     sql.NullString `db:"server" json:"server,omitempty"`
	Section    string         `db:"section" json:"section"`
	RadiantWin sql.NullBool   `db:"radiant_win" json:"radiant_win,omitempty"`
	Mode       string         `db:"mode" json:"mode"`
}

// PlayerInMatch is one player slot inside a match. After resolution exactly one
// of normal completion, is_dodge or is_leaver holds.
type PlayerInMatch struct {
	PlayerID  uint64        `db:"player_id" json:"player_id"`
	MatchID   uint32        `db:"match_id" json:"match_id"`
	MMRBefore int           `db:"mmr_before" json:"mmr_before"`
	MMRAfter  sql.NullInt64 `db:"mmr_after" json:"mmr_after,omitempty"`
	IsRadiant bool          `db:"is_radiant" json:"is_radiant"`
	TeamSlot  int           `db:"team_slot" json:"team_slot"`
	IsLeaver  bool          `db:"is_leaver" json:"is_leaver"`
	IsDodge   bool          `db:"is_dodge" json:"is_dodge"`
}

// Scoreboard aggregates a user's results in one ladder. matches = win+loss+leave
// eventually; dodges do not count as matches.
type Scoreboard struct {
	UserID     uint64 `db:"user_id" json:"user_id"`
	LadderName string `db:"ladder_name" json:"ladder_name"`
	MMR        int    `db:"mmr" json:"mmr"`
	Matches    int    `db:"matches" json:"matches"`
	Win        int    `db:"win" json:"win"`
	Loss       int    `db:"loss" json:"loss"`
	Dodge      int    `db:"dodge" json:"dodge"`
	Leave      int    `db:"leave" json:"leave"`
}

// QueuedPlayer is a user waiting in a ladder queue.
type QueuedPlayer struct {
	ID        uint64    `db:"id" json:"id"`
	QueueName string    `db:"queue_name" json:"queue_name"`
	ModeVote  int       `db:"mode_vote" json:"mode_vote"`
	Added     time.Time `db:"added" json:"added"`
}

// Mode vote bit flags.
const (
	ModeVoteAllDraft      = 1 // ap
	ModeVoteRandomDraft   = 2 // rd
	ModeVoteCaptainsDraft = 4 // cd
)

// EncodeModeVote packs the chosen game modes into the vote bit field.
func EncodeModeVote(ap, rd, cd bool) int {
	vote := 0
	if ap {
		vote |= ModeVoteAllDraft
	}
	if rd {
		vote |= ModeVoteRandomDraft
	}
	if cd {
		vote |= ModeVoteCaptainsDraft
	}
	return vote
}
