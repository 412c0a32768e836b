package bot

import "github.com/dotaladder/backend/internal/models"

// Store is the slice of the persistence gateway the bots need. Implemented by
// internal/store against postgres; tests swap in an in-memory fake.
type Store interface {
	GetMatch(matchID uint32) (*models.Match, error)
	GetMatchPlayers(matchID uint32) ([]models.PlayerInMatch, error)
	// TransitionMatchStatus reports false when the match is no longer in the
	// expected status (admin override or redelivered job); callers treat that
	// as a no-op completion.
	TransitionMatchStatus(matchID uint32, from, to int) (bool, error)
	SetMatchServer(matchID uint32, server string) error
	ResolveDodge(matchID uint32, fromStatus int, penalized map[uint64]bool) (bool, error)
	ResolveEndgame(matchID uint32, outcome int, memberIDs, leaverIDs []uint64) (bool, error)

	GetUser(steamID uint64) (*models.User, error)
	CommitScanResult(steamID uint64, soloMMR *int, section string) error
}
